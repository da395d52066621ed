// Package postgres 重复检测仓储的 GORM 实现
package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/fundraisehq/donorcrm/internal/dedup/domain"
	pkgdb "github.com/fundraisehq/donorcrm/pkg/db"
)

type duplicateMatchRepository struct{ db *gorm.DB }

// NewDuplicateMatchRepository 创建候选重复对仓储
func NewDuplicateMatchRepository(db *gorm.DB) domain.DuplicateMatchRepository {
	return &duplicateMatchRepository{db: db}
}

var _ domain.DuplicateMatchRepository = (*duplicateMatchRepository)(nil)

func (r *duplicateMatchRepository) conn(ctx context.Context) *gorm.DB {
	if tx, ok := pkgdb.TxFromContext(ctx); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}

func (r *duplicateMatchRepository) Save(ctx context.Context, match *domain.DuplicateMatch) error {
	return r.conn(ctx).Create(match).Error
}

func (r *duplicateMatchRepository) Update(ctx context.Context, match *domain.DuplicateMatch) error {
	return r.conn(ctx).Save(match).Error
}

func (r *duplicateMatchRepository) GetByID(ctx context.Context, id uint) (*domain.DuplicateMatch, error) {
	var match domain.DuplicateMatch
	err := r.conn(ctx).First(&match, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// ExistsUnresolved 两个方向都查，调用方不必关心存储顺序
func (r *duplicateMatchRepository) ExistsUnresolved(ctx context.Context, contactA, contactB uint) (bool, error) {
	var count int64
	err := r.conn(ctx).Model(&domain.DuplicateMatch{}).
		Where("resolved = false").
		Where("(contact1_id = ? AND contact2_id = ?) OR (contact1_id = ? AND contact2_id = ?)",
			contactA, contactB, contactB, contactA).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *duplicateMatchRepository) ListByTenant(ctx context.Context, tenantID string, unresolvedOnly bool, offset, limit int) ([]*domain.DuplicateMatch, int64, error) {
	base := r.conn(ctx).Model(&domain.DuplicateMatch{}).Where("tenant_id = ?", tenantID)
	if unresolvedOnly {
		base = base.Where("resolved = false")
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var matches []*domain.DuplicateMatch
	err := base.Order("confidence_score DESC, id").Offset(offset).Limit(limit).Find(&matches).Error
	if err != nil {
		return nil, 0, err
	}
	return matches, total, nil
}

func (r *duplicateMatchRepository) CountUnresolved(ctx context.Context, tenantID string) (int64, error) {
	var count int64
	err := r.conn(ctx).Model(&domain.DuplicateMatch{}).
		Where("tenant_id = ? AND resolved = false", tenantID).
		Count(&count).Error
	return count, err
}

type mergeHistoryRepository struct{ db *gorm.DB }

// NewMergeHistoryRepository 创建合并审计仓储
func NewMergeHistoryRepository(db *gorm.DB) domain.MergeHistoryRepository {
	return &mergeHistoryRepository{db: db}
}

func (r *mergeHistoryRepository) conn(ctx context.Context) *gorm.DB {
	if tx, ok := pkgdb.TxFromContext(ctx); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}

func (r *mergeHistoryRepository) Save(ctx context.Context, history *domain.MergeHistory) error {
	return r.conn(ctx).Create(history).Error
}

func (r *mergeHistoryRepository) ListByContact(ctx context.Context, primaryContactID uint) ([]*domain.MergeHistory, error) {
	var records []*domain.MergeHistory
	err := r.conn(ctx).
		Where("primary_contact_id = ?", primaryContactID).
		Order("merged_at DESC").
		Find(&records).Error
	return records, err
}
