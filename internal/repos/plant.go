package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/sharkteam/plantcloud-backend/internal/logger"
	pkgerrors "github.com/sharkteam/plantcloud-backend/internal/pkg/errors"
	"github.com/sharkteam/plantcloud-backend/internal/types"
)

type PlantRepo interface {
	Create(ctx context.Context, tx *gorm.DB, plant *types.Plant) error
	Get(ctx context.Context, tx *gorm.DB, username, plantID string) (*types.Plant, error)
	ListByUsername(ctx context.Context, tx *gorm.DB, username string) ([]*types.Plant, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Plant, error)
	Delete(ctx context.Context, tx *gorm.DB, username, plantID string) error
	CountByUsername(ctx context.Context, tx *gorm.DB, username string) (int64, error)
}

type plantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlantRepo(db *gorm.DB, baseLog *logger.Logger) PlantRepo {
	return &plantRepo{db: db, log: baseLog.With("repo", "PlantRepo")}
}

func (pr *plantRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return pr.db
}

func (pr *plantRepo) Create(ctx context.Context, tx *gorm.DB, plant *types.Plant) error {
	return pr.conn(tx).WithContext(ctx).Create(plant).Error
}

func (pr *plantRepo) Get(ctx context.Context, tx *gorm.DB, username, plantID string) (*types.Plant, error) {
	var plant types.Plant
	err := pr.conn(tx).WithContext(ctx).
		Where("username = ? AND plant_id = ?", username, plantID).
		First(&plant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &plant, nil
}

func (pr *plantRepo) ListByUsername(ctx context.Context, tx *gorm.DB, username string) ([]*types.Plant, error) {
	var plants []*types.Plant
	if err := pr.conn(tx).WithContext(ctx).
		Where("username = ?", username).
		Order("created_at").
		Find(&plants).Error; err != nil {
		return nil, err
	}
	return plants, nil
}

func (pr *plantRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Plant, error) {
	var plants []*types.Plant
	if err := pr.conn(tx).WithContext(ctx).
		Order("created_at").
		Find(&plants).Error; err != nil {
		return nil, err
	}
	return plants, nil
}

func (pr *plantRepo) Delete(ctx context.Context, tx *gorm.DB, username, plantID string) error {
	res := pr.conn(tx).WithContext(ctx).
		Where("username = ? AND plant_id = ?", username, plantID).
		Delete(&types.Plant{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

func (pr *plantRepo) CountByUsername(ctx context.Context, tx *gorm.DB, username string) (int64, error) {
	var count int64
	if err := pr.conn(tx).WithContext(ctx).
		Model(&types.Plant{}).
		Where("username = ?", username).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
