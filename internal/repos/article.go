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

type ArticleRepo interface {
	Create(ctx context.Context, tx *gorm.DB, article *types.Article) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Article, error)
	TitleExists(ctx context.Context, tx *gorm.DB, title string) (bool, error)
	// ListNewestFirst orders by creation time descending; limit <= 0 means all.
	ListNewestFirst(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Article, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Article, error)
}

type articleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArticleRepo(db *gorm.DB, baseLog *logger.Logger) ArticleRepo {
	return &articleRepo{db: db, log: baseLog.With("repo", "ArticleRepo")}
}

func (ar *articleRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return ar.db
}

func (ar *articleRepo) Create(ctx context.Context, tx *gorm.DB, article *types.Article) error {
	return ar.conn(tx).WithContext(ctx).Create(article).Error
}

func (ar *articleRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Article, error) {
	var article types.Article
	err := ar.conn(tx).WithContext(ctx).
		Where("id = ?", id).
		First(&article).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &article, nil
}

func (ar *articleRepo) TitleExists(ctx context.Context, tx *gorm.DB, title string) (bool, error) {
	var count int64
	if err := ar.conn(tx).WithContext(ctx).
		Model(&types.Article{}).
		Where("title = ?", title).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (ar *articleRepo) ListNewestFirst(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Article, error) {
	q := ar.conn(tx).WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var articles []*types.Article
	if err := q.Find(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}

func (ar *articleRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Article, error) {
	var articles []*types.Article
	if len(ids) == 0 {
		return articles, nil
	}
	if err := ar.conn(tx).WithContext(ctx).
		Where("id IN ?", ids).
		Find(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}
