package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/sharkteam/plantcloud-backend/internal/logger"
	pkgerrors "github.com/sharkteam/plantcloud-backend/internal/pkg/errors"
	"github.com/sharkteam/plantcloud-backend/internal/types"
)

type UserTokenRepo interface {
	Create(ctx context.Context, tx *gorm.DB, token *types.UserToken) error
	GetByAccessToken(ctx context.Context, tx *gorm.DB, accessToken string) (*types.UserToken, error)
	GetByRefreshToken(ctx context.Context, tx *gorm.DB, refreshToken string) (*types.UserToken, error)
	GetByUsername(ctx context.Context, tx *gorm.DB, username string) ([]*types.UserToken, error)
	Delete(ctx context.Context, tx *gorm.DB, token *types.UserToken) error
	DeleteByUsername(ctx context.Context, tx *gorm.DB, username string) error
}

type userTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return &userTokenRepo{db: db, log: baseLog.With("repo", "UserTokenRepo")}
}

func (utr *userTokenRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return utr.db
}

func (utr *userTokenRepo) Create(ctx context.Context, tx *gorm.DB, token *types.UserToken) error {
	return utr.conn(tx).WithContext(ctx).Create(token).Error
}

func (utr *userTokenRepo) GetByAccessToken(ctx context.Context, tx *gorm.DB, accessToken string) (*types.UserToken, error) {
	var token types.UserToken
	err := utr.conn(tx).WithContext(ctx).
		Where("access_token = ?", accessToken).
		First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (utr *userTokenRepo) GetByRefreshToken(ctx context.Context, tx *gorm.DB, refreshToken string) (*types.UserToken, error) {
	var token types.UserToken
	err := utr.conn(tx).WithContext(ctx).
		Where("refresh_token = ?", refreshToken).
		First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (utr *userTokenRepo) GetByUsername(ctx context.Context, tx *gorm.DB, username string) ([]*types.UserToken, error) {
	var tokens []*types.UserToken
	if err := utr.conn(tx).WithContext(ctx).
		Where("username = ?", username).
		Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

func (utr *userTokenRepo) Delete(ctx context.Context, tx *gorm.DB, token *types.UserToken) error {
	if token == nil {
		return nil
	}
	return utr.conn(tx).WithContext(ctx).Delete(token).Error
}

func (utr *userTokenRepo) DeleteByUsername(ctx context.Context, tx *gorm.DB, username string) error {
	return utr.conn(tx).WithContext(ctx).
		Where("username = ?", username).
		Delete(&types.UserToken{}).Error
}
