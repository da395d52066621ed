package domain

import (
	"context"
	"errors"
)

var (
	ErrDonationNotFound   = errors.New("donation not found")
	ErrCredentialNotFound = errors.New("webhook credential not found")
)

// DonationRepository 捐赠仓储接口
type DonationRepository interface {
	// Save 插入捐赠记录
	Save(ctx context.Context, donation *Donation) error
	// GetByID 按 ID 获取捐赠（含自定义字段与商品行）
	GetByID(ctx context.Context, id uint) (*Donation, error)
	// ListByContact 列出联系人名下的捐赠
	ListByContact(ctx context.Context, contactID uint, offset, limit int) ([]*Donation, int64, error)
	// AddCustomFields 批量追加自定义字段
	AddCustomFields(ctx context.Context, fields []DonationCustomField) error
	// AddMerchandise 批量追加商品行
	AddMerchandise(ctx context.Context, items []DonationMerchandise) error
	// ReassignContact 将一个联系人的全部捐赠转移到另一联系人（合并时使用）
	ReassignContact(ctx context.Context, fromContactID, toContactID uint) error
}

// CredentialRepository 凭证仓储接口
type CredentialRepository interface {
	// FindByUsername 按用户名查找激活的凭证；tenantHint 非空时进一步收窄
	FindByUsername(ctx context.Context, username, tenantHint string) (*WebhookCredential, error)
}

// CredentialCache 凭证短 TTL 缓存，降低每次接入都打库的开销
type CredentialCache interface {
	Get(ctx context.Context, username, tenantHint string) (*WebhookCredential, error)
	Save(ctx context.Context, username, tenantHint string, cred *WebhookCredential) error
}

// EventPublisher 领域事件发布接口
type EventPublisher interface {
	Publish(ctx context.Context, eventType, key string, payload any) error
}
