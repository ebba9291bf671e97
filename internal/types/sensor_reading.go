package types

import (
	"time"

	"github.com/google/uuid"
)

// SensorReading is append-only. Timestamp is the capture time, CreatedAt the
// ingestion time; they are normally equal. Any subset of the value fields may
// be present.
type SensorReading struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PlantID   string    `gorm:"not null;index;column:plant_id" json:"plant_id"`
	Temp      *float64  `gorm:"column:temp" json:"temp,omitempty"`
	Humidity  *float64  `gorm:"column:humidity" json:"humidity,omitempty"`
	Soil      *float64  `gorm:"column:soil" json:"soil,omitempty"`
	Light     *float64  `gorm:"column:light" json:"light,omitempty"`
	Timestamp time.Time `gorm:"not null;index;column:timestamp" json:"timestamp"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (SensorReading) TableName() string {
	return "sensors"
}
