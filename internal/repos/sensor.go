package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sharkteam/plantcloud-backend/internal/logger"
	pkgerrors "github.com/sharkteam/plantcloud-backend/internal/pkg/errors"
	"github.com/sharkteam/plantcloud-backend/internal/types"
)

type SensorRepo interface {
	Create(ctx context.Context, tx *gorm.DB, reading *types.SensorReading) error
	// UpdateFields is the only mutation path for an existing reading; fields
	// holds column->value pairs for the subset being changed.
	UpdateFields(ctx context.Context, tx *gorm.DB, readingID uuid.UUID, fields map[string]interface{}) error
	HistoryByPlant(ctx context.Context, tx *gorm.DB, plantID string, limit int) ([]*types.SensorReading, error)
	LatestByPlant(ctx context.Context, tx *gorm.DB, plantID string) (*types.SensorReading, error)
	AllNewestFirst(ctx context.Context, tx *gorm.DB, limit int) ([]*types.SensorReading, error)
}

type sensorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSensorRepo(db *gorm.DB, baseLog *logger.Logger) SensorRepo {
	return &sensorRepo{db: db, log: baseLog.With("repo", "SensorRepo")}
}

func (sr *sensorRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return sr.db
}

func (sr *sensorRepo) Create(ctx context.Context, tx *gorm.DB, reading *types.SensorReading) error {
	return sr.conn(tx).WithContext(ctx).Create(reading).Error
}

func (sr *sensorRepo) UpdateFields(ctx context.Context, tx *gorm.DB, readingID uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := sr.conn(tx).WithContext(ctx).
		Model(&types.SensorReading{}).
		Where("id = ?", readingID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

func (sr *sensorRepo) HistoryByPlant(ctx context.Context, tx *gorm.DB, plantID string, limit int) ([]*types.SensorReading, error) {
	q := sr.conn(tx).WithContext(ctx).
		Where("plant_id = ?", plantID).
		Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var readings []*types.SensorReading
	if err := q.Find(&readings).Error; err != nil {
		return nil, err
	}
	return readings, nil
}

func (sr *sensorRepo) LatestByPlant(ctx context.Context, tx *gorm.DB, plantID string) (*types.SensorReading, error) {
	var reading types.SensorReading
	err := sr.conn(tx).WithContext(ctx).
		Where("plant_id = ?", plantID).
		Order("timestamp DESC").
		First(&reading).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reading, nil
}

func (sr *sensorRepo) AllNewestFirst(ctx context.Context, tx *gorm.DB, limit int) ([]*types.SensorReading, error) {
	q := sr.conn(tx).WithContext(ctx).Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var readings []*types.SensorReading
	if err := q.Find(&readings).Error; err != nil {
		return nil, err
	}
	return readings, nil
}
