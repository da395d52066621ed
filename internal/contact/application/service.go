package application

import (
	"github.com/fundraisehq/donorcrm/internal/contact/domain"
	"github.com/fundraisehq/donorcrm/pkg/metrics"
)

// ContactService 聚合联系人命令与查询服务
type ContactService struct {
	Command *ContactCommandService
	Query   *ContactQueryService
}

// NewContactService 创建联系人服务
func NewContactService(repo domain.ContactRepository, matcher DonorMatcher, publisher domain.EventPublisher, m *metrics.Metrics) *ContactService {
	return &ContactService{
		Command: NewContactCommandService(repo, matcher, publisher, m),
		Query:   NewContactQueryService(repo),
	}
}
