// Package postgres 通知仓储的 GORM 实现
package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/fundraisehq/donorcrm/internal/notification/domain"
)

type notificationRepository struct{ db *gorm.DB }

// NewNotificationRepository 创建通知仓储
func NewNotificationRepository(db *gorm.DB) domain.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Save(ctx context.Context, notification *domain.Notification) error {
	return r.db.WithContext(ctx).Save(notification).Error
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID uint, offset, limit int) ([]*domain.Notification, int64, error) {
	base := r.db.WithContext(ctx).Model(&domain.Notification{}).Where("user_id = ?", userID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []*domain.Notification
	err := base.Order("created_at DESC").Offset(offset).Limit(limit).Find(&notifications).Error
	if err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}
