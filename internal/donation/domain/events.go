package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DonationReceivedEventType 捐赠接入完成事件类型
const DonationReceivedEventType = "donation.received"

// DonationReceivedEvent 捐赠接入完成事件，供通知消费者使用
type DonationReceivedEvent struct {
	DonationID   uint            `json:"donation_id"`
	UserID       uint            `json:"user_id"`
	TenantID     string          `json:"tenant_id"`
	ContactID    *uint           `json:"contact_id,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	DonorName    string          `json:"donor_name,omitempty"`
	DonorEmail   string          `json:"donor_email,omitempty"`
	DonationType string          `json:"donation_type"`
	Timestamp    time.Time       `json:"timestamp"`
}
