package application

import (
	"context"
	"time"

	"github.com/fundraisehq/donorcrm/internal/contact/domain"
	"github.com/fundraisehq/donorcrm/pkg/logger"
	"github.com/fundraisehq/donorcrm/pkg/metrics"
)

// ResolveDonorCommand 身份解析命令：来自 webhook 的捐赠者信息
type ResolveDonorCommand struct {
	TenantID  string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Street    string
	City      string
	State     string
	Zip       string
	Country   string

	Employer           string
	Occupation         string
	EmployerStreet     string
	EmployerCity       string
	EmployerState      string
	EmployerZip        string
}

// hasAddress 捐赠者是否携带任一地址字段
func (c ResolveDonorCommand) hasAddress() bool {
	return c.Street != "" || c.City != "" || c.State != "" || c.Zip != "" || c.Country != ""
}

// hasEmployer 捐赠者是否携带任一雇主字段
func (c ResolveDonorCommand) hasEmployer() bool {
	return c.Employer != "" || c.Occupation != "" || c.EmployerStreet != "" ||
		c.EmployerCity != "" || c.EmployerState != "" || c.EmployerZip != ""
}

// DonorMatcher 接入时的高置信度内联匹配器。
// 仅当综合得分达到高阈值且邮箱或电话精确命中时返回匹配。
type DonorMatcher interface {
	MatchDonor(ctx context.Context, cmd ResolveDonorCommand) (contactID uint, ok bool, err error)
}

// ContactCommandService 联系人命令服务
type ContactCommandService struct {
	repo      domain.ContactRepository
	matcher   DonorMatcher
	publisher domain.EventPublisher
	metrics   *metrics.Metrics
}

// NewContactCommandService 创建联系人命令服务实例；matcher、publisher、metrics 均可为 nil
func NewContactCommandService(repo domain.ContactRepository, matcher DonorMatcher, publisher domain.EventPublisher, m *metrics.Metrics) *ContactCommandService {
	return &ContactCommandService{repo: repo, matcher: matcher, publisher: publisher, metrics: m}
}

// ResolveDonor 为捐赠者找到或创建规范联系人记录。
// 无邮箱视为匿名捐赠，直接返回 nil。
// 邮箱命中则就地更新可变字段；未命中先询问内联匹配器，
// 仍无果才新建联系人。关联/地址/雇主写入失败只告警，不中断解析。
func (s *ContactCommandService) ResolveDonor(ctx context.Context, cmd ResolveDonorCommand) (*domain.Contact, error) {
	if cmd.Email == "" {
		return nil, nil
	}

	contact, created, err := s.resolveByEmail(ctx, cmd)
	if err != nil {
		return nil, err
	}

	if created {
		if s.metrics != nil {
			s.metrics.ContactsCreated.Inc()
		}
		if cmd.Phone != "" {
			phone := &domain.Phone{
				ContactID: contact.ID,
				Number:    cmd.Phone,
				Type:      domain.ChannelTypeMain,
				IsPrimary: true,
			}
			if err := s.repo.AddPhone(ctx, phone); err != nil {
				logger.Warn(ctx, "failed to attach phone", "contact_id", contact.ID, "error", err)
			}
		}
		if s.publisher != nil {
			event := domain.ContactCreatedEvent{
				ContactID: contact.ID,
				Email:     cmd.Email,
				TenantID:  cmd.TenantID,
				Timestamp: time.Now(),
			}
			_ = s.publisher.Publish(ctx, domain.ContactCreatedEventType, cmd.Email, event)
		}
	}

	// 租户关联：幂等，失败不致命
	if cmd.TenantID != "" {
		if err := s.repo.LinkTenant(ctx, cmd.TenantID, contact.ID); err != nil {
			logger.Warn(ctx, "failed to link tenant",
				"tenant_id", cmd.TenantID,
				"contact_id", contact.ID,
				"error", err,
			)
		}
	}

	// 地址：任一字段存在才落库，失败不致命
	if cmd.hasAddress() {
		loc := &domain.Location{
			ContactID: contact.ID,
			Type:      domain.ChannelTypeMain,
			Street:    cmd.Street,
			City:      cmd.City,
			State:     cmd.State,
			Zip:       cmd.Zip,
			Country:   cmd.Country,
			IsPrimary: created,
		}
		if err := s.repo.AddLocation(ctx, loc); err != nil {
			logger.Warn(ctx, "failed to attach location", "contact_id", contact.ID, "error", err)
		}
	}

	// 雇主：任一字段存在才落库，失败不致命
	if cmd.hasEmployer() {
		emp := &domain.EmployerData{
			ContactID:  contact.ID,
			Employer:   cmd.Employer,
			Occupation: cmd.Occupation,
			Street:     cmd.EmployerStreet,
			City:       cmd.EmployerCity,
			State:      cmd.EmployerState,
			Zip:        cmd.EmployerZip,
		}
		if !emp.IsEmpty() {
			if err := s.repo.AddEmployer(ctx, emp); err != nil {
				logger.Warn(ctx, "failed to attach employer", "contact_id", contact.ID, "error", err)
			}
		}
	}

	return contact, nil
}

// resolveByEmail 精确命中 → 内联匹配 → 原子新建 三级解析
func (s *ContactCommandService) resolveByEmail(ctx context.Context, cmd ResolveDonorCommand) (*domain.Contact, bool, error) {
	candidate := &domain.Contact{
		FirstName: cmd.FirstName,
		LastName:  cmd.LastName,
		Status:    domain.ContactStatusDonor,
	}

	existing, err := s.repo.FindEmail(ctx, cmd.Email)
	if err != nil && err != domain.ErrEmailNotFound {
		return nil, false, err
	}

	if existing == nil && s.matcher != nil {
		// 邮箱未命中：让高置信度匹配器决定是否挂到已有联系人上
		matchedID, ok, merr := s.matcher.MatchDonor(ctx, cmd)
		if merr != nil {
			logger.Warn(ctx, "inline donor match failed", "error", merr)
		} else if ok {
			contact, aerr := s.attachEmail(ctx, matchedID, cmd)
			if aerr == nil {
				return contact, false, nil
			}
			logger.Warn(ctx, "failed to attach email to matched contact",
				"contact_id", matchedID,
				"error", aerr,
			)
		}
	}

	contact, created, err := s.repo.FindOrCreateByEmail(ctx, cmd.Email, candidate)
	if err != nil {
		return nil, false, err
	}
	return contact, created, nil
}

// attachEmail 将新邮箱挂到内联匹配命中的联系人上并更新可变字段
func (s *ContactCommandService) attachEmail(ctx context.Context, contactID uint, cmd ResolveDonorCommand) (*domain.Contact, error) {
	var contact *domain.Contact
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.GetByID(txCtx, contactID)
		if err != nil {
			return err
		}

		if cmd.FirstName != "" {
			existing.FirstName = cmd.FirstName
		}
		if cmd.LastName != "" {
			existing.LastName = cmd.LastName
		}
		existing.Status = domain.ContactStatusDonor
		if err := s.repo.Save(txCtx, existing); err != nil {
			return err
		}

		// 唯一约束兜底并发：邮箱已被他人占用时视为无操作
		email := &domain.Email{
			ContactID: existing.ID,
			Address:   cmd.Email,
			Type:      domain.ChannelTypePersonal,
			IsPrimary: existing.PrimaryEmail() == nil,
		}
		if err := s.repo.AttachEmail(txCtx, email); err != nil {
			return err
		}
		contact = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return contact, nil
}
