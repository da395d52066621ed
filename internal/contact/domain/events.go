package domain

import "time"

const (
	// ContactCreatedEventType 新联系人事件类型
	ContactCreatedEventType = "contact.created"
	// ContactMergedEventType 联系人合并事件类型
	ContactMergedEventType = "contact.merged"
)

// ContactCreatedEvent 身份解析新建联系人时发布
type ContactCreatedEvent struct {
	ContactID uint      `json:"contact_id"`
	Email     string    `json:"email"`
	TenantID  string    `json:"tenant_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ContactMergedEvent 合并解决后发布
type ContactMergedEvent struct {
	PrimaryContactID uint      `json:"primary_contact_id"`
	MergedContactID  uint      `json:"merged_contact_id"`
	MergedBy         string    `json:"merged_by"`
	Timestamp        time.Time `json:"timestamp"`
}
