package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sharkteam/plantcloud-backend/internal/logger"
	"github.com/sharkteam/plantcloud-backend/internal/types"
)

type ActionLogRepo interface {
	// TryClaim inserts the (user, plant, action, day) row if it does not exist
	// yet. Returns false when the row was already present, i.e. the daily
	// limit is reached. The conditional insert closes the check-then-write
	// race a separate lookup would leave open.
	TryClaim(ctx context.Context, tx *gorm.DB, entry *types.ActionLog) (bool, error)
	DeleteByUsername(ctx context.Context, tx *gorm.DB, username string) error
}

type actionLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActionLogRepo(db *gorm.DB, baseLog *logger.Logger) ActionLogRepo {
	return &actionLogRepo{db: db, log: baseLog.With("repo", "ActionLogRepo")}
}

func (ar *actionLogRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return ar.db
}

func (ar *actionLogRepo) TryClaim(ctx context.Context, tx *gorm.DB, entry *types.ActionLog) (bool, error) {
	res := ar.conn(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "username"},
				{Name: "plant_id"},
				{Name: "action"},
				{Name: "day"},
			},
			DoNothing: true,
		}).
		Create(entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (ar *actionLogRepo) DeleteByUsername(ctx context.Context, tx *gorm.DB, username string) error {
	return ar.conn(tx).WithContext(ctx).
		Where("username = ?", username).
		Delete(&types.ActionLog{}).Error
}
