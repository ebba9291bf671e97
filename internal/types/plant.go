package types

import (
	"time"
)

// Plant is owned by exactly one user. PlantID is a short random identifier
// generated at creation; MinSoil is inferred once when the plant is added and
// never recomputed.
type Plant struct {
	PlantID   string    `gorm:"primaryKey;column:plant_id" json:"plant_id"`
	Username  string    `gorm:"not null;index;column:username" json:"username"`
	Name      string    `gorm:"not null;column:name" json:"name"`
	Species   string    `gorm:"column:species" json:"species"`
	MinSoil   int       `gorm:"not null;default:30;column:min_soil" json:"min_soil"`
	ImageURL  string    `gorm:"column:image_url" json:"image_url"`
	ImagePath string    `gorm:"column:image_path" json:"image_path"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Plant) TableName() string {
	return "plants"
}
