// Package domain 捐赠提醒通知的领域模型
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// NotificationStatus 通知状态
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "PENDING"
	NotificationStatusSent    NotificationStatus = "SENT"
	NotificationStatusFailed  NotificationStatus = "FAILED"
)

// Notification 捐赠提醒记录
type Notification struct {
	gorm.Model
	// UserID 接收提醒的租户用户
	UserID uint `gorm:"index" json:"user_id"`
	// DonationID 关联捐赠
	DonationID uint `gorm:"index" json:"donation_id"`
	// ContactID 捐赠者联系人，匿名捐赠时为空
	ContactID *uint `gorm:"index" json:"contact_id,omitempty"`
	// Amount 捐赠金额
	Amount decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	// DonorName 捐赠者姓名
	DonorName string `gorm:"type:varchar(255)" json:"donor_name,omitempty"`
	// DonorEmail 捐赠者邮箱
	DonorEmail string `gorm:"type:varchar(320)" json:"donor_email,omitempty"`
	// DonationType once/weekly/monthly
	DonationType string `gorm:"type:varchar(10)" json:"donation_type"`
	// Status 发送状态
	Status NotificationStatus `gorm:"type:varchar(20);index;default:'PENDING'" json:"status"`
	// ErrorMessage 发送失败原因
	ErrorMessage string `gorm:"type:text" json:"error_message,omitempty"`
	// SentAt 发送时间
	SentAt *time.Time `json:"sent_at,omitempty"`
}

// NotificationRepository 通知仓储接口
type NotificationRepository interface {
	// Save 保存或更新通知记录
	Save(ctx context.Context, notification *Notification) error
	// ListByUser 分页获取用户的通知列表
	ListByUser(ctx context.Context, userID uint, offset, limit int) ([]*Notification, int64, error)
}

// Sender 通知投递接口
type Sender interface {
	Send(ctx context.Context, notification *Notification) error
}
