package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Article titles are unique; exact-title dedup is the documented policy for
// repeated adds.
type Article struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string            `gorm:"not null;uniqueIndex;column:title" json:"title"`
	Content   string            `gorm:"not null;type:text;column:content" json:"content"`
	URL       string            `gorm:"column:url" json:"url"`
	Metadata  datatypes.JSONMap `gorm:"column:metadata" json:"metadata"`
	CreatedAt time.Time         `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null" json:"updated_at"`
}

func (Article) TableName() string {
	return "articles"
}
