package application

import (
	"context"
	"encoding/json"
	"time"

	contactapp "github.com/fundraisehq/donorcrm/internal/contact/application"
	contactdomain "github.com/fundraisehq/donorcrm/internal/contact/domain"
	"github.com/fundraisehq/donorcrm/internal/donation/domain"
	"github.com/fundraisehq/donorcrm/pkg/logger"
	"github.com/fundraisehq/donorcrm/pkg/metrics"
)

// IngestResult 接入成功的结果
type IngestResult struct {
	Donation *domain.Donation
	Donor    *contactdomain.Contact
}

// IngestService 捐赠接入编排：归一化 → 身份解析 → 捐赠落库 → 事件发布。
// 捐赠本体落库失败是致命的；自定义字段、商品行、事件发布都是尽力而为。
type IngestService struct {
	normalizer *Normalizer
	contacts   *contactapp.ContactCommandService
	donations  domain.DonationRepository
	publisher  domain.EventPublisher
	metrics    *metrics.Metrics
}

// NewIngestService 创建接入服务；publisher 与 metrics 可为 nil
func NewIngestService(
	normalizer *Normalizer,
	contacts *contactapp.ContactCommandService,
	donations domain.DonationRepository,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
) *IngestService {
	return &IngestService{
		normalizer: normalizer,
		contacts:   contacts,
		donations:  donations,
		publisher:  publisher,
		metrics:    m,
	}
}

// Ingest 处理一次 webhook 捐赠事件。
// cred 为 nil 时表示开发旁路放行，无租户上下文。
func (s *IngestService) Ingest(ctx context.Context, cred *domain.WebhookCredential, body []byte) (*IngestResult, *IngestError) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, WrapIngestError(KindInvalidPayload, "malformed JSON body", err)
	}

	data, donor, ierr := s.normalizer.Normalize(ctx, &payload)
	if ierr != nil {
		return nil, ierr
	}

	var tenantID string
	var userID uint
	if cred != nil {
		tenantID = cred.TenantID
		userID = cred.UserID
	}

	contact, ierr := s.resolveDonor(ctx, tenantID, donor, payload.Donor)
	if ierr != nil {
		return nil, ierr
	}

	donation := &domain.Donation{
		TenantID:          tenantID,
		UserID:            userID,
		Amount:            data.Amount,
		PaidAt:            data.PaidAt,
		RecurringPeriod:   data.RecurringPeriod,
		RecurringDuration: data.RecurringDuration,
		OrderNumber:       data.OrderNumber,
		Status:            data.Status,
		IsMobile:          data.IsMobile,
		IsExpress:         data.IsExpress,
		IsPaypal:          data.IsPaypal,
		SmartBoostAmount:  data.SmartBoostAmount,
		RefCode:           data.RefCode,
		CommitteeName:     data.CommitteeName,
		EntityID:          data.EntityID,
		LineItemID:        data.LineItemID,
	}
	if contact != nil {
		donation.ContactID = &contact.ID
	}

	if err := s.donations.Save(ctx, donation); err != nil {
		return nil, WrapIngestError(KindDatabaseError, "failed to record donation", err)
	}
	if s.metrics != nil {
		s.metrics.DonationsTotal.Inc()
	}

	// 尽力而为的附属写入：失败只记日志，不影响请求结果
	if len(data.CustomFields) > 0 {
		fields := make([]domain.DonationCustomField, len(data.CustomFields))
		copy(fields, data.CustomFields)
		for i := range fields {
			fields[i].DonationID = donation.ID
		}
		if err := s.donations.AddCustomFields(ctx, fields); err != nil {
			logger.Warn(ctx, "failed to save donation custom fields", "donation_id", donation.ID, "error", err)
		}
	}
	if len(data.Merchandise) > 0 {
		items := make([]domain.DonationMerchandise, len(data.Merchandise))
		copy(items, data.Merchandise)
		for i := range items {
			items[i].DonationID = donation.ID
		}
		if err := s.donations.AddMerchandise(ctx, items); err != nil {
			logger.Warn(ctx, "failed to save donation merchandise", "donation_id", donation.ID, "error", err)
		}
	}

	s.publishReceived(ctx, donation, contact)

	return &IngestResult{Donation: donation, Donor: contact}, nil
}

// resolveDonor 身份解析；捐赠者缺失或无邮箱时按匿名处理
func (s *IngestService) resolveDonor(ctx context.Context, tenantID string, donor *DonorData, raw *RawDonor) (*contactdomain.Contact, *IngestError) {
	if donor == nil || raw == nil || raw.Email == "" {
		return nil, nil
	}

	cmd := contactapp.ResolveDonorCommand{
		TenantID:  tenantID,
		FirstName: donor.FirstName,
		LastName:  donor.LastName,
		Email:     raw.Email,
		Phone:     raw.Phone,
		Street:    raw.Addr1,
		City:      raw.City,
		State:     raw.State,
		Zip:       raw.Zip,
		Country:   raw.Country,
	}
	if raw.EmployerData != nil {
		cmd.Employer = raw.EmployerData.Employer
		cmd.Occupation = raw.EmployerData.Occupation
		cmd.EmployerStreet = raw.EmployerData.Addr1
		cmd.EmployerCity = raw.EmployerData.City
		cmd.EmployerState = raw.EmployerData.State
		cmd.EmployerZip = raw.EmployerData.Zip
	}

	contact, err := s.contacts.ResolveDonor(ctx, cmd)
	if err != nil {
		return nil, WrapIngestError(KindDatabaseError, "failed to resolve donor identity", err)
	}
	return contact, nil
}

// publishReceived fire-and-forget 事件发布，失败绝不影响 HTTP 响应
func (s *IngestService) publishReceived(ctx context.Context, donation *domain.Donation, contact *contactdomain.Contact) {
	if s.publisher == nil {
		return
	}

	event := domain.DonationReceivedEvent{
		DonationID:   donation.ID,
		UserID:       donation.UserID,
		TenantID:     donation.TenantID,
		ContactID:    donation.ContactID,
		Amount:       donation.Amount,
		DonationType: donation.DonationType(),
		Timestamp:    time.Now(),
	}
	if contact != nil {
		event.DonorName = contact.FullName()
		if primary := contact.PrimaryEmail(); primary != nil {
			event.DonorEmail = primary.Address
		}
	}

	bg := context.WithoutCancel(ctx)
	go func() {
		pubCtx, cancel := context.WithTimeout(bg, 5*time.Second)
		defer cancel()
		if err := s.publisher.Publish(pubCtx, domain.DonationReceivedEventType, donation.OrderNumber, event); err != nil {
			logger.Error(pubCtx, "failed to publish donation event", "donation_id", donation.ID, "error", err)
		}
	}()
}
