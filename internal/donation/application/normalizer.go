package application

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fundraisehq/donorcrm/internal/donation/domain"
	"github.com/fundraisehq/donorcrm/pkg/logger"
)

// DonationData 归一化后的捐赠数据
type DonationData struct {
	Amount            decimal.Decimal
	PaidAt            time.Time
	RecurringPeriod   domain.RecurringPeriod
	RecurringDuration int
	OrderNumber       string
	Status            string
	IsMobile          bool
	IsExpress         bool
	IsPaypal          bool
	SmartBoostAmount  *decimal.Decimal
	RefCode           string
	CommitteeName     string
	EntityID          string
	LineItemID        string
	CustomFields      []domain.DonationCustomField
	Merchandise       []domain.DonationMerchandise
}

// DonorData 归一化后的捐赠者数据。
// 邮箱/电话/地址留在原始 donor 对象上，由身份解析阶段读取。
type DonorData struct {
	FirstName string
	LastName  string
}

// Normalizer 载荷归一化器
type Normalizer struct{}

// NewNormalizer 创建归一化器
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize 把原始载荷归一化为规范形态。
// 金额回退链：contribution.amount → lineitems[0].amount → lineitems[0].recurringAmount；
// 全部无法解析为有限非负数时返回 invalid_payload_structure。
func (n *Normalizer) Normalize(ctx context.Context, payload *WebhookPayload) (*DonationData, *DonorData, *IngestError) {
	if payload == nil || payload.Contribution == nil {
		return nil, nil, NewIngestError(KindInvalidPayloadStructure, "missing contribution object")
	}
	c := payload.Contribution

	amount, ok := n.resolveAmount(c, payload.LineItems)
	if !ok {
		return nil, nil, NewIngestError(KindInvalidPayloadStructure, "no parseable donation amount").
			WithDetails("checked contribution.amount, lineitems[0].amount, lineitems[0].recurringAmount")
	}

	paidAt, ok := n.resolvePaidAt(c, payload.LineItems)
	if !ok {
		return nil, nil, NewIngestError(KindInvalidPayloadStructure, "no parseable paid_at timestamp").
			WithDetails("checked lineitems[0].paidAt, contribution.paidAt, contribution.createdAt")
	}

	data := &DonationData{
		Amount:            amount,
		PaidAt:            paidAt,
		RecurringPeriod:   n.resolvePeriod(bool(c.IsRecurring), c.RecurringPeriod),
		RecurringDuration: normalizeRecurringDuration(c.RecurringDuration.String()),
		OrderNumber:       c.OrderNumber.String(),
		Status:            c.Status,
		IsMobile:          bool(c.IsMobile),
		IsExpress:         bool(c.IsExpress),
		IsPaypal:          bool(c.IsPaypal),
		RefCode:           c.RefCode,
	}

	// 可选数字字段解析失败时降级为空值，只告警不中断
	if !c.SmartBoostAmount.IsZero() {
		if v, err := decimal.NewFromString(c.SmartBoostAmount.String()); err == nil {
			data.SmartBoostAmount = &v
		} else {
			logger.Warn(ctx, "malformed smartBoostAmount, dropped", "value", c.SmartBoostAmount.String())
		}
	}

	if len(payload.LineItems) > 0 {
		li := payload.LineItems[0]
		data.CommitteeName = li.CommitteeName
		data.EntityID = li.EntityID.String()
		data.LineItemID = li.LineItemID.String()
	}

	for _, f := range c.CustomFields {
		if f.Name == "" {
			continue
		}
		data.CustomFields = append(data.CustomFields, domain.DonationCustomField{
			Name:  f.Name,
			Value: f.Value.String(),
		})
	}

	for _, m := range c.Merchandise {
		if m.Name == "" {
			continue
		}
		item := domain.DonationMerchandise{
			Name:      m.Name,
			Variation: m.Variation,
			Quantity:  1,
		}
		if q, err := strconv.Atoi(strings.TrimSpace(m.Quantity.String())); err == nil && q > 0 {
			item.Quantity = q
		} else if !m.Quantity.IsZero() {
			logger.Warn(ctx, "malformed merchandise quantity, defaulted to 1", "value", m.Quantity.String())
		}
		if p, err := decimal.NewFromString(m.Price.String()); err == nil {
			item.Price = p
		} else if !m.Price.IsZero() {
			logger.Warn(ctx, "malformed merchandise price, dropped", "value", m.Price.String())
		}
		data.Merchandise = append(data.Merchandise, item)
	}

	var donor *DonorData
	if payload.Donor != nil {
		donor = &DonorData{
			FirstName: strings.TrimSpace(payload.Donor.FirstName),
			LastName:  strings.TrimSpace(payload.Donor.LastName),
		}
	}

	return data, donor, nil
}

// resolveAmount 金额回退链
func (n *Normalizer) resolveAmount(c *RawContribution, items []RawLineItem) (decimal.Decimal, bool) {
	candidates := []string{c.Amount.String()}
	if len(items) > 0 {
		candidates = append(candidates, items[0].Amount.String(), items[0].RecurringAmount.String())
	}
	for _, raw := range candidates {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		v, err := decimal.NewFromString(raw)
		if err != nil || v.IsNegative() {
			continue
		}
		return v, true
	}
	return decimal.Zero, false
}

// resolvePaidAt 时间回退链：lineitem.paidAt → contribution.paidAt → contribution.createdAt
func (n *Normalizer) resolvePaidAt(c *RawContribution, items []RawLineItem) (time.Time, bool) {
	var candidates []string
	if len(items) > 0 {
		candidates = append(candidates, items[0].PaidAt)
	}
	candidates = append(candidates, c.PaidAt, c.CreatedAt)
	for _, raw := range candidates {
		if t, ok := parseTimestamp(raw); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// resolvePeriod 仅当 isRecurring 为真且周期串可识别时才给出 weekly/monthly
func (n *Normalizer) resolvePeriod(isRecurring bool, period string) domain.RecurringPeriod {
	if !isRecurring {
		return domain.RecurringPeriodOnce
	}
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "monthly", "month":
		return domain.RecurringPeriodMonthly
	case "weekly", "week":
		return domain.RecurringPeriodWeekly
	default:
		return domain.RecurringPeriodOnce
	}
}

// normalizeRecurringDuration "infinite"/"Infinity" → 9999；数字串取整；其余 → 0
func normalizeRecurringDuration(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	lower := strings.ToLower(raw)
	if lower == "infinite" || lower == "infinity" || lower == "+inf" || lower == "inf" {
		return domain.RecurringDurationUnbounded
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		if v < 0 {
			return 0
		}
		if v >= float64(domain.RecurringDurationUnbounded) {
			return domain.RecurringDurationUnbounded
		}
		return int(v)
	}
	return 0
}

// parseTimestamp 接受 RFC3339 或 epoch（秒/毫秒）
func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02 15:04:05", raw); err == nil {
		return t, true
	}
	if epoch, err := strconv.ParseInt(raw, 10, 64); err == nil && epoch > 0 {
		// 毫秒级时间戳的数量级远大于秒级
		if epoch > 1e12 {
			return time.UnixMilli(epoch), true
		}
		return time.Unix(epoch, 0), true
	}
	return time.Time{}, false
}
