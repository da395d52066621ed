// Package domain 重复联系人检测领域模型
package domain

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrMatchNotFound    = errors.New("duplicate match not found")
	ErrAlreadyResolved  = errors.New("duplicate match already resolved")
	ErrPrimaryNotInPair = errors.New("primary contact is not part of the pair")
)

// DuplicateMatch 候选重复对。无序对规范化存储：contact1_id < contact2_id。
// 未解决状态下每个无序对至多一行，由带条件的唯一索引保证。
type DuplicateMatch struct {
	gorm.Model
	Contact1ID uint `gorm:"uniqueIndex:idx_unresolved_pair,where:resolved = false" json:"contact1_id"`
	Contact2ID uint `gorm:"uniqueIndex:idx_unresolved_pair,where:resolved = false" json:"contact2_id"`
	TenantID   string `gorm:"type:varchar(64);index" json:"tenant_id"`

	ConfidenceScore float64 `json:"confidence_score"`
	NameScore       float64 `json:"name_score"`
	EmailScore      float64 `json:"email_score"`
	PhoneScore      float64 `json:"phone_score"`
	AddressScore    float64 `json:"address_score"`

	Resolved   bool       `gorm:"default:false;index" json:"resolved"`
	ReviewedBy string     `gorm:"type:varchar(128)" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
}

// NewDuplicateMatch 构造规范化的候选对（小 ID 在前）
func NewDuplicateMatch(tenantID string, contactA, contactB uint, scores ScoreBreakdown) *DuplicateMatch {
	c1, c2 := contactA, contactB
	if c1 > c2 {
		c1, c2 = c2, c1
	}
	return &DuplicateMatch{
		Contact1ID:      c1,
		Contact2ID:      c2,
		TenantID:        tenantID,
		ConfidenceScore: scores.Confidence,
		NameScore:       scores.Name,
		EmailScore:      scores.Email,
		PhoneScore:      scores.Phone,
		AddressScore:    scores.Address,
	}
}

// Contains 联系人是否属于该候选对
func (m *DuplicateMatch) Contains(contactID uint) bool {
	return m.Contact1ID == contactID || m.Contact2ID == contactID
}

// Other 返回候选对中另一个联系人
func (m *DuplicateMatch) Other(contactID uint) uint {
	if m.Contact1ID == contactID {
		return m.Contact2ID
	}
	return m.Contact1ID
}

// Resolve 状态机：unresolved → resolved，只允许一次
func (m *DuplicateMatch) Resolve(reviewedBy string, at time.Time) error {
	if m.Resolved {
		return ErrAlreadyResolved
	}
	m.Resolved = true
	m.ReviewedBy = reviewedBy
	m.ReviewedAt = &at
	return nil
}

// MergeHistory 合并审计记录，只追加不修改
type MergeHistory struct {
	gorm.Model
	PrimaryContactID uint   `gorm:"index" json:"primary_contact_id"`
	MergedContactID  uint   `gorm:"index" json:"merged_contact_id"`
	MergedBy         string `gorm:"type:varchar(128)" json:"merged_by"`
	MergedAt         time.Time `json:"merged_at"`
}
