package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/sharkteam/plantcloud-backend/internal/logger"
	"github.com/sharkteam/plantcloud-backend/internal/types"
)

// indexBatchSize bounds batched writes and deletes against the index table,
// mirroring the hosted document store's per-batch operation cap.
const indexBatchSize = 400

type IndexEntryRepo interface {
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
	GetByTerms(ctx context.Context, tx *gorm.DB, terms []string) ([]*types.IndexEntry, error)
	// DeleteAll removes every index entry in bounded batches.
	DeleteAll(ctx context.Context, tx *gorm.DB) error
	// CreateBatch writes entries in bounded batches.
	CreateBatch(ctx context.Context, tx *gorm.DB, entries []*types.IndexEntry) error
}

type indexEntryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIndexEntryRepo(db *gorm.DB, baseLog *logger.Logger) IndexEntryRepo {
	return &indexEntryRepo{db: db, log: baseLog.With("repo", "IndexEntryRepo")}
}

func (ir *indexEntryRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return ir.db
}

func (ir *indexEntryRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	if err := ir.conn(tx).WithContext(ctx).
		Model(&types.IndexEntry{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (ir *indexEntryRepo) GetByTerms(ctx context.Context, tx *gorm.DB, terms []string) ([]*types.IndexEntry, error) {
	var entries []*types.IndexEntry
	if len(terms) == 0 {
		return entries, nil
	}
	if err := ir.conn(tx).WithContext(ctx).
		Where("term IN ?", terms).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (ir *indexEntryRepo) DeleteAll(ctx context.Context, tx *gorm.DB) error {
	conn := ir.conn(tx).WithContext(ctx)
	for {
		var terms []string
		if err := conn.Model(&types.IndexEntry{}).
			Limit(indexBatchSize).
			Pluck("term", &terms).Error; err != nil {
			return err
		}
		if len(terms) == 0 {
			return nil
		}
		if err := conn.Where("term IN ?", terms).
			Delete(&types.IndexEntry{}).Error; err != nil {
			return err
		}
	}
}

func (ir *indexEntryRepo) CreateBatch(ctx context.Context, tx *gorm.DB, entries []*types.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return ir.conn(tx).WithContext(ctx).
		CreateInBatches(entries, indexBatchSize).Error
}
