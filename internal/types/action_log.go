package types

import (
	"time"
)

// ActionLog records that a plant-scoped action was credited on a given day.
// The unique index makes the daily-limit check a single conditional insert
// instead of a read-then-write.
type ActionLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"not null;uniqueIndex:idx_action_log_daily;column:username" json:"username"`
	PlantID   string    `gorm:"not null;uniqueIndex:idx_action_log_daily;column:plant_id" json:"plant_id"`
	Action    string    `gorm:"not null;uniqueIndex:idx_action_log_daily;column:action" json:"action"`
	Day       string    `gorm:"not null;uniqueIndex:idx_action_log_daily;column:day" json:"day"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (ActionLog) TableName() string {
	return "action_logs"
}
