package types

import (
	"gorm.io/datatypes"
)

// IndexEntry is a derived view of the articles table: one row per normalized
// term, postings mapping article id to term frequency. The whole table is
// rewritten on each index build and is never edited directly.
type IndexEntry struct {
	Term     string            `gorm:"primaryKey;column:term" json:"term"`
	Postings datatypes.JSONMap `gorm:"not null;column:postings" json:"postings"`
}

func (IndexEntry) TableName() string {
	return "index_entries"
}
