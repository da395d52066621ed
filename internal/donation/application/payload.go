package application

import (
	"bytes"
	"encoding/json"
	"strings"
)

// StringOrNumber 第三方载荷中既可能是字符串也可能是数字的字段，
// 统一保留为字符串原文，由归一化阶段决定如何解析。
type StringOrNumber string

func (s *StringOrNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = StringOrNumber(v)
		return nil
	}
	*s = StringOrNumber(b)
	return nil
}

func (s StringOrNumber) String() string { return string(s) }

// IsZero 字段缺失或为空
func (s StringOrNumber) IsZero() bool { return s == "" }

// BoolOrString 既可能是布尔也可能是 "true"/"false" 字符串的字段。
// 无法识别的取值按 false 处理，不作为致命错误。
type BoolOrString bool

func (v *BoolOrString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("true")):
		*v = true
	case bytes.Equal(b, []byte("false")), bytes.Equal(b, []byte("null")):
		*v = false
	default:
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*v = false
			return nil
		}
		*v = BoolOrString(strings.EqualFold(strings.TrimSpace(s), "true"))
	}
	return nil
}

// WebhookPayload 第三方捐赠事件的原始载荷
type WebhookPayload struct {
	Donor        *RawDonor        `json:"donor"`
	Contribution *RawContribution `json:"contribution"`
	LineItems    []RawLineItem    `json:"lineitems"`
}

// RawDonor 原始捐赠者信息
type RawDonor struct {
	FirstName    string       `json:"firstname"`
	LastName     string       `json:"lastname"`
	Addr1        string       `json:"addr1"`
	City         string       `json:"city"`
	State        string       `json:"state"`
	Zip          string       `json:"zip"`
	Country      string       `json:"country"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone"`
	EmployerData *RawEmployer `json:"employerData"`
}

// RawEmployer 原始雇主信息
type RawEmployer struct {
	Employer   string `json:"employer"`
	Occupation string `json:"occupation"`
	Addr1      string `json:"addr1"`
	City       string `json:"city"`
	State      string `json:"state"`
	Zip        string `json:"zip"`
}

// RawContribution 原始捐赠主体
type RawContribution struct {
	OrderNumber       StringOrNumber   `json:"orderNumber"`
	Amount            StringOrNumber   `json:"amount"`
	PaidAt            string           `json:"paidAt"`
	CreatedAt         string           `json:"createdAt"`
	IsRecurring       BoolOrString     `json:"isRecurring"`
	RecurringPeriod   string           `json:"recurringPeriod"`
	RecurringDuration StringOrNumber   `json:"recurringDuration"`
	IsMobile          BoolOrString     `json:"isMobile"`
	IsExpress         BoolOrString     `json:"isExpress"`
	IsPaypal          BoolOrString     `json:"isPaypal"`
	Status            string           `json:"status"`
	SmartBoostAmount  StringOrNumber   `json:"smartBoostAmount"`
	RefCode           string           `json:"refcode"`
	CustomFields      []RawCustomField `json:"customFields"`
	Merchandise       []RawMerchandise `json:"merchandise"`
}

// RawCustomField 原始自定义字段
type RawCustomField struct {
	Name  string         `json:"name"`
	Value StringOrNumber `json:"value"`
}

// RawMerchandise 原始商品行
type RawMerchandise struct {
	Name      string         `json:"name"`
	Variation string         `json:"variation"`
	Quantity  StringOrNumber `json:"quantity"`
	Price     StringOrNumber `json:"price"`
}

// RawLineItem 原始分账行
type RawLineItem struct {
	Amount          StringOrNumber `json:"amount"`
	RecurringAmount StringOrNumber `json:"recurringAmount"`
	PaidAt          string         `json:"paidAt"`
	CommitteeName   string         `json:"committeeName"`
	EntityID        StringOrNumber `json:"entityId"`
	LineItemID      StringOrNumber `json:"lineitemId"`
}
