// Package domain 捐赠领域模型
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RecurringPeriod 捐赠周期
type RecurringPeriod string

const (
	RecurringPeriodOnce    RecurringPeriod = "once"
	RecurringPeriodWeekly  RecurringPeriod = "weekly"
	RecurringPeriodMonthly RecurringPeriod = "monthly"
)

// RecurringDurationUnbounded 无限期订阅的哨兵值
const RecurringDurationUnbounded = 9999

// Donation 捐赠记录。ContactID 为空表示匿名捐赠。
type Donation struct {
	gorm.Model
	ContactID *uint           `gorm:"index" json:"contact_id"`
	TenantID  string          `gorm:"type:varchar(64);index" json:"tenant_id"`
	UserID    uint            `gorm:"index" json:"user_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	PaidAt    time.Time       `gorm:"index" json:"paid_at"`

	RecurringPeriod   RecurringPeriod `gorm:"type:varchar(10);default:'once'" json:"recurring_period"`
	RecurringDuration int             `gorm:"default:0" json:"recurring_duration"`

	OrderNumber string `gorm:"type:varchar(64);index" json:"order_number"`
	Status      string `gorm:"type:varchar(32)" json:"status"`

	IsMobile  bool `json:"is_mobile"`
	IsExpress bool `json:"is_express"`
	IsPaypal  bool `json:"is_paypal"`

	SmartBoostAmount *decimal.Decimal `gorm:"type:decimal(12,2)" json:"smart_boost_amount,omitempty"`
	RefCode          string           `gorm:"type:varchar(128)" json:"ref_code,omitempty"`
	CommitteeName    string           `gorm:"type:varchar(255)" json:"committee_name,omitempty"`
	EntityID         string           `gorm:"type:varchar(64)" json:"entity_id,omitempty"`
	LineItemID       string           `gorm:"type:varchar(64)" json:"lineitem_id,omitempty"`

	CustomFields []DonationCustomField `gorm:"foreignKey:DonationID" json:"custom_fields,omitempty"`
	Merchandise  []DonationMerchandise `gorm:"foreignKey:DonationID" json:"merchandise,omitempty"`
}

// IsRecurring 是否为周期性捐赠
func (d *Donation) IsRecurring() bool {
	return d.RecurringPeriod != "" && d.RecurringPeriod != RecurringPeriodOnce
}

// DonationType 通知展示用的捐赠类型
func (d *Donation) DonationType() string {
	if d.IsRecurring() {
		return string(d.RecurringPeriod)
	}
	return string(RecurringPeriodOnce)
}

// DonationCustomField 捐赠自定义字段
type DonationCustomField struct {
	gorm.Model
	DonationID uint   `gorm:"index" json:"donation_id"`
	Name       string `gorm:"type:varchar(255)" json:"name"`
	Value      string `gorm:"type:text" json:"value"`
}

// DonationMerchandise 捐赠附带的周边商品行
type DonationMerchandise struct {
	gorm.Model
	DonationID uint            `gorm:"index" json:"donation_id"`
	Name       string          `gorm:"type:varchar(255)" json:"name"`
	Variation  string          `gorm:"type:varchar(255)" json:"variation,omitempty"`
	Quantity   int             `gorm:"default:1" json:"quantity"`
	Price      decimal.Decimal `gorm:"type:decimal(12,2)" json:"price"`
}

// WebhookCredential 租户 webhook 凭证。
// 该对象只在服务内部与凭证缓存间流转，绝不进入 HTTP 响应。
type WebhookCredential struct {
	gorm.Model
	TenantID    string `gorm:"type:varchar(64);index" json:"tenant_id"`
	APIUsername string `gorm:"type:varchar(128);index" json:"api_username"`
	APIPassword string `gorm:"type:varchar(128)" json:"api_password"`
	UserID      uint   `gorm:"index" json:"user_id"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`
}
