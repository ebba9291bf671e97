package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/sharkteam/plantcloud-backend/internal/logger"
	pkgerrors "github.com/sharkteam/plantcloud-backend/internal/pkg/errors"
	"github.com/sharkteam/plantcloud-backend/internal/types"
)

type UserRepo interface {
	Create(ctx context.Context, tx *gorm.DB, user *types.User) error
	GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*types.User, error)
	UsernameExists(ctx context.Context, tx *gorm.DB, username string) (bool, error)
	// ApplyScoreDelta adds points to both counters and bumps the task count in
	// a single UPDATE, relying on the store's per-row atomicity.
	ApplyScoreDelta(ctx context.Context, tx *gorm.DB, username string, points int) error
	// AddBonus adds points to both score counters without touching the task
	// count. Used for challenge rewards.
	AddBonus(ctx context.Context, tx *gorm.DB, username string, points int) error
	// ResetWeekly zeroes the weekly counters and challenge progress and records
	// the new week key and active challenge id.
	ResetWeekly(ctx context.Context, tx *gorm.DB, username string, weekKey int, challengeID int) error
	SetChallengeProgress(ctx context.Context, tx *gorm.DB, username string, progress int, completed bool) error
	TopByScore(ctx context.Context, tx *gorm.DB, limit int) ([]*types.User, error)
	TopByWeeklyScore(ctx context.Context, tx *gorm.DB, limit int) ([]*types.User, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (ur *userRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return ur.db
}

func (ur *userRepo) Create(ctx context.Context, tx *gorm.DB, user *types.User) error {
	return ur.conn(tx).WithContext(ctx).Create(user).Error
}

func (ur *userRepo) GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*types.User, error) {
	var user types.User
	err := ur.conn(tx).WithContext(ctx).
		Where("username = ?", username).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (ur *userRepo) UsernameExists(ctx context.Context, tx *gorm.DB, username string) (bool, error) {
	var count int64
	if err := ur.conn(tx).WithContext(ctx).
		Model(&types.User{}).
		Where("username = ?", username).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (ur *userRepo) ApplyScoreDelta(ctx context.Context, tx *gorm.DB, username string, points int) error {
	res := ur.conn(tx).WithContext(ctx).
		Model(&types.User{}).
		Where("username = ?", username).
		Updates(map[string]interface{}{
			"score":           gorm.Expr("score + ?", points),
			"weekly_score":    gorm.Expr("weekly_score + ?", points),
			"tasks_completed": gorm.Expr("tasks_completed + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

func (ur *userRepo) AddBonus(ctx context.Context, tx *gorm.DB, username string, points int) error {
	res := ur.conn(tx).WithContext(ctx).
		Model(&types.User{}).
		Where("username = ?", username).
		Updates(map[string]interface{}{
			"score":        gorm.Expr("score + ?", points),
			"weekly_score": gorm.Expr("weekly_score + ?", points),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

func (ur *userRepo) ResetWeekly(ctx context.Context, tx *gorm.DB, username string, weekKey int, challengeID int) error {
	res := ur.conn(tx).WithContext(ctx).
		Model(&types.User{}).
		Where("username = ?", username).
		Updates(map[string]interface{}{
			"weekly_score":        0,
			"last_reset_week":     weekKey,
			"challenge_id":        challengeID,
			"challenge_progress":  0,
			"challenge_completed": false,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

func (ur *userRepo) SetChallengeProgress(ctx context.Context, tx *gorm.DB, username string, progress int, completed bool) error {
	return ur.conn(tx).WithContext(ctx).
		Model(&types.User{}).
		Where("username = ?", username).
		Updates(map[string]interface{}{
			"challenge_progress":  progress,
			"challenge_completed": completed,
		}).Error
}

func (ur *userRepo) TopByScore(ctx context.Context, tx *gorm.DB, limit int) ([]*types.User, error) {
	var results []*types.User
	if err := ur.conn(tx).WithContext(ctx).
		Order("score DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ur *userRepo) TopByWeeklyScore(ctx context.Context, tx *gorm.DB, limit int) ([]*types.User, error) {
	var results []*types.User
	if err := ur.conn(tx).WithContext(ctx).
		Order("weekly_score DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
