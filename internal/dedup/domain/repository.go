package domain

import "context"

// DuplicateMatchRepository 候选重复对仓储接口
type DuplicateMatchRepository interface {
	// Save 插入候选对
	Save(ctx context.Context, match *DuplicateMatch) error
	// Update 持久化状态变更
	Update(ctx context.Context, match *DuplicateMatch) error
	// GetByID 按 ID 获取候选对
	GetByID(ctx context.Context, id uint) (*DuplicateMatch, error)
	// ExistsUnresolved 无序对是否已有未解决的记录（两个方向都算）
	ExistsUnresolved(ctx context.Context, contactA, contactB uint) (bool, error)
	// ListByTenant 分页列出租户的候选对；unresolvedOnly 为真时只列未解决的
	ListByTenant(ctx context.Context, tenantID string, unresolvedOnly bool, offset, limit int) ([]*DuplicateMatch, int64, error)
	// CountUnresolved 统计未解决候选对数量
	CountUnresolved(ctx context.Context, tenantID string) (int64, error)
}

// MergeHistoryRepository 合并审计仓储接口
type MergeHistoryRepository interface {
	// Save 追加审计记录
	Save(ctx context.Context, history *MergeHistory) error
	// ListByContact 列出联系人作为主记录的合并历史
	ListByContact(ctx context.Context, primaryContactID uint) ([]*MergeHistory, error)
}
