package application

import (
	"context"

	"github.com/fundraisehq/donorcrm/internal/contact/domain"
	"github.com/fundraisehq/donorcrm/pkg/utils"
)

// ContactQueryService 联系人查询服务
type ContactQueryService struct {
	repo domain.ContactRepository
}

// NewContactQueryService 创建联系人查询服务实例
func NewContactQueryService(repo domain.ContactRepository) *ContactQueryService {
	return &ContactQueryService{repo: repo}
}

// GetContact 按 ID 获取联系人（含邮箱/电话/地址/雇主）
func (s *ContactQueryService) GetContact(ctx context.Context, id uint) (*domain.Contact, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByTenant 分页列出租户名下联系人
func (s *ContactQueryService) ListByTenant(ctx context.Context, tenantID string, page, pageSize int) ([]*domain.Contact, *utils.Pagination, error) {
	p := utils.NewPagination(page, pageSize, 0)
	contacts, total, err := s.repo.ListByTenant(ctx, tenantID, p.Offset(), p.Limit())
	if err != nil {
		return nil, nil, err
	}
	return contacts, utils.NewPagination(page, pageSize, total), nil
}
