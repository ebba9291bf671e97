package types

import (
	"time"
)

type User struct {
	Username           string    `gorm:"primaryKey;column:username" json:"username"`
	DisplayName        string    `gorm:"not null;column:display_name" json:"display_name"`
	Password           string    `gorm:"not null;column:password" json:"-"`
	Email              string    `gorm:"not null;column:email" json:"email"`
	Score              int       `gorm:"not null;default:0;column:score" json:"score"`
	WeeklyScore        int       `gorm:"not null;default:0;column:weekly_score" json:"weekly_score"`
	TasksCompleted     int       `gorm:"not null;default:0;column:tasks_completed" json:"tasks_completed"`
	LastResetWeek      int       `gorm:"not null;default:0;column:last_reset_week" json:"last_reset_week"`
	ChallengeID        int       `gorm:"not null;default:0;column:challenge_id" json:"challenge_id"`
	ChallengeProgress  int       `gorm:"not null;default:0;column:challenge_progress" json:"challenge_progress"`
	ChallengeCompleted bool      `gorm:"not null;default:false;column:challenge_completed" json:"challenge_completed"`
	CreatedAt          time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
