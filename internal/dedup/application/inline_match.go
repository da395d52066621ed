package application

import (
	"context"

	contactapp "github.com/fundraisehq/donorcrm/internal/contact/application"
	contactdomain "github.com/fundraisehq/donorcrm/internal/contact/domain"
	"github.com/fundraisehq/donorcrm/internal/dedup/domain"
)

// InlineMatchService 接入时的高置信度匹配器。
// 复用批量扫描的四个分项得分，但门槛高得多：综合得分达到阈值
// 且至少一个主标识（邮箱或电话）精确命中才算匹配，
// 防止仅凭名字/地址相似就把新捐赠挂错人。
type InlineMatchService struct {
	contacts  contactdomain.ContactRepository
	threshold float64
	pageSize  int
}

var _ contactapp.DonorMatcher = (*InlineMatchService)(nil)

// NewInlineMatchService 创建内联匹配器
func NewInlineMatchService(contacts contactdomain.ContactRepository, threshold float64, pageSize int) *InlineMatchService {
	if threshold <= 0 {
		threshold = 90
	}
	if pageSize <= 0 {
		pageSize = 500
	}
	return &InlineMatchService{contacts: contacts, threshold: threshold, pageSize: pageSize}
}

// MatchDonor 在租户联系人中寻找高置信度匹配
func (s *InlineMatchService) MatchDonor(ctx context.Context, cmd contactapp.ResolveDonorCommand) (uint, bool, error) {
	if cmd.TenantID == "" {
		return 0, false, nil
	}

	candidate := profileFromCommand(cmd)

	var bestID uint
	bestScore := 0.0
	offset := 0
	for {
		contacts, _, err := s.contacts.ListByTenant(ctx, cmd.TenantID, offset, s.pageSize)
		if err != nil {
			return 0, false, err
		}
		for _, c := range contacts {
			existing := domain.ProfileFromContact(c)
			scores := domain.Score(candidate, existing)
			if scores.Confidence < s.threshold {
				continue
			}
			if !domain.HasExactIdentifier(candidate, existing) {
				continue
			}
			if scores.Confidence > bestScore {
				bestScore = scores.Confidence
				bestID = c.ID
			}
		}
		if len(contacts) < s.pageSize {
			break
		}
		offset += s.pageSize
	}

	return bestID, bestID != 0, nil
}

func profileFromCommand(cmd contactapp.ResolveDonorCommand) domain.ContactProfile {
	p := domain.ContactProfile{
		FirstName: cmd.FirstName,
		LastName:  cmd.LastName,
	}
	if cmd.Email != "" {
		p.Emails = append(p.Emails, cmd.Email)
	}
	if cmd.Phone != "" {
		p.Phones = append(p.Phones, cmd.Phone)
	}
	if cmd.Street != "" || cmd.City != "" || cmd.State != "" || cmd.Zip != "" {
		p.Addresses = append(p.Addresses, domain.Address{
			Street: cmd.Street,
			City:   cmd.City,
			State:  cmd.State,
			Zip:    cmd.Zip,
		})
	}
	return p
}
