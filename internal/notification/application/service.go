// Package application 捐赠提醒应用服务
package application

import (
	"context"
	"time"

	donationdomain "github.com/fundraisehq/donorcrm/internal/donation/domain"
	"github.com/fundraisehq/donorcrm/internal/notification/domain"
	"github.com/fundraisehq/donorcrm/pkg/logger"
)

// NotificationService 捐赠提醒服务。
// 提醒是接入管道的旁路副作用：任何失败只记录，绝不向上传播。
type NotificationService struct {
	repo   domain.NotificationRepository
	sender domain.Sender
}

// NewNotificationService 创建提醒服务
func NewNotificationService(repo domain.NotificationRepository, sender domain.Sender) *NotificationService {
	return &NotificationService{repo: repo, sender: sender}
}

// NotifyDonation 记录并投递一条捐赠提醒
func (s *NotificationService) NotifyDonation(ctx context.Context, event donationdomain.DonationReceivedEvent) {
	notification := &domain.Notification{
		UserID:       event.UserID,
		DonationID:   event.DonationID,
		ContactID:    event.ContactID,
		Amount:       event.Amount,
		DonorName:    event.DonorName,
		DonorEmail:   event.DonorEmail,
		DonationType: event.DonationType,
		Status:       domain.NotificationStatusPending,
	}

	if err := s.repo.Save(ctx, notification); err != nil {
		logger.Error(ctx, "failed to persist donation notification",
			"donation_id", event.DonationID, "error", err)
		return
	}

	if s.sender == nil {
		return
	}

	if err := s.sender.Send(ctx, notification); err != nil {
		notification.Status = domain.NotificationStatusFailed
		notification.ErrorMessage = err.Error()
		logger.Error(ctx, "failed to send donation notification",
			"notification_id", notification.ID, "error", err)
	} else {
		now := time.Now()
		notification.Status = domain.NotificationStatusSent
		notification.SentAt = &now
	}

	if err := s.repo.Save(ctx, notification); err != nil {
		logger.Error(ctx, "failed to update donation notification status",
			"notification_id", notification.ID, "error", err)
	}
}

// History 分页查询用户的提醒历史
func (s *NotificationService) History(ctx context.Context, userID uint, offset, limit int) ([]*domain.Notification, int64, error) {
	return s.repo.ListByUser(ctx, userID, offset, limit)
}
