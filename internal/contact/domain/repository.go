package domain

import (
	"context"
	"errors"
)

var (
	ErrContactNotFound = errors.New("contact not found")
	ErrEmailNotFound   = errors.New("email not found")
)

// ContactRepository 联系人仓储接口
type ContactRepository interface {
	// WithTx 在同一事务中执行 fn，事务通过 context 传递
	WithTx(ctx context.Context, fn func(txCtx context.Context) error) error

	// Save 保存联系人（插入或更新）
	Save(ctx context.Context, contact *Contact) error
	// GetByID 按 ID 获取联系人，预加载邮箱/电话/地址/雇主
	GetByID(ctx context.Context, id uint) (*Contact, error)
	// ListByTenant 分页列出租户名下的联系人（预加载子记录）
	ListByTenant(ctx context.Context, tenantID string, offset, limit int) ([]*Contact, int64, error)

	// FindEmail 按地址精确查找邮箱记录（区分大小写，按存储值匹配）
	FindEmail(ctx context.Context, address string) (*Email, error)
	// FindOrCreateByEmail 原子化 find-or-create：
	// 邮箱已存在时更新关联联系人的可变字段并返回；不存在时插入联系人与邮箱。
	// 并发竞争由 emails.address 唯一约束 + on-conflict 兜底，绝不产生重复联系人。
	// 返回值第二项表示是否新建了联系人。
	FindOrCreateByEmail(ctx context.Context, address string, contact *Contact) (*Contact, bool, error)

	// AttachEmail 为已有联系人追加邮箱；地址冲突时视为无操作
	AttachEmail(ctx context.Context, email *Email) error

	// LinkTenant 建立租户-联系人关联，已存在时为无操作
	LinkTenant(ctx context.Context, tenantID string, contactID uint) error

	// AddLocation 追加地址记录
	AddLocation(ctx context.Context, loc *Location) error
	// AddEmployer 追加雇主记录
	AddEmployer(ctx context.Context, emp *EmployerData) error
	// AddPhone 追加电话记录
	AddPhone(ctx context.Context, phone *Phone) error

	// RemoveEmail 删除邮箱并在同一事务内保证主邮箱晋升
	RemoveEmail(ctx context.Context, emailID uint) error
	// MergeInto 将 secondary 的邮箱/电话/地址/雇主/租户关联转移到 primary，
	// 降级迁移过来的重复主记录，并软删除 secondary 联系人。
	MergeInto(ctx context.Context, primaryID, secondaryID uint) error
}
