// Package domain 联系人（捐赠者档案）的领域模型
package domain

import (
	"strings"

	"gorm.io/gorm"
)

// ContactStatus 联系人状态
type ContactStatus string

const (
	ContactStatusProspect ContactStatus = "prospect" // 潜在捐赠者
	ContactStatusActive   ContactStatus = "active"   // 活跃联系人
	ContactStatusDonor    ContactStatus = "donor"    // 已捐赠
)

// ChannelType 联系渠道类型
type ChannelType string

const (
	ChannelTypeMain     ChannelType = "main"
	ChannelTypePersonal ChannelType = "personal"
	ChannelTypeWork     ChannelType = "work"
)

// Contact 联系人实体
type Contact struct {
	gorm.Model
	// FirstName 名
	FirstName string `gorm:"column:first_name;type:varchar(100)" json:"first_name"`
	// LastName 姓
	LastName string `gorm:"column:last_name;type:varchar(100)" json:"last_name"`
	// Status 联系人状态
	Status ContactStatus `gorm:"column:status;type:varchar(20);index;not null;default:'prospect'" json:"status"`

	// 关联子记录
	Emails    []Email        `gorm:"foreignKey:ContactID" json:"emails,omitempty"`
	Phones    []Phone        `gorm:"foreignKey:ContactID" json:"phones,omitempty"`
	Locations []Location     `gorm:"foreignKey:ContactID" json:"locations,omitempty"`
	Employers []EmployerData `gorm:"foreignKey:ContactID" json:"employers,omitempty"`
}

// FullName 返回拼接后的姓名
func (c *Contact) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// PrimaryEmail 返回主邮箱（无主邮箱时返回第一个）
func (c *Contact) PrimaryEmail() *Email {
	for i := range c.Emails {
		if c.Emails[i].IsPrimary {
			return &c.Emails[i]
		}
	}
	if len(c.Emails) > 0 {
		return &c.Emails[0]
	}
	return nil
}

// Email 邮箱记录，每条只属于一个联系人
type Email struct {
	gorm.Model
	// ContactID 所属联系人
	ContactID uint `gorm:"column:contact_id;index;not null" json:"contact_id"`
	// Address 邮箱地址，存活记录内全局唯一，支撑 find-or-create 的原子 upsert。
	// 部分索引只约束未软删除的行，移除后的地址可被重新接入。
	Address string `gorm:"column:address;type:varchar(320);uniqueIndex:idx_emails_live_address,where:deleted_at IS NULL;not null" json:"address"`
	// Type 渠道类型
	Type ChannelType `gorm:"column:type;type:varchar(20);not null;default:'personal'" json:"type"`
	// IsPrimary 是否主邮箱（每个联系人至多一个）
	IsPrimary bool `gorm:"column:is_primary;not null;default:false" json:"is_primary"`
	// Verified 是否已验证
	Verified bool `gorm:"column:verified;not null;default:false" json:"verified"`
}

// Phone 电话记录
type Phone struct {
	gorm.Model
	// ContactID 所属联系人
	ContactID uint `gorm:"column:contact_id;index;not null" json:"contact_id"`
	// Number 原始号码（展示用）
	Number string `gorm:"column:number;type:varchar(40);not null" json:"number"`
	// Type 渠道类型
	Type ChannelType `gorm:"column:type;type:varchar(20);not null;default:'main'" json:"type"`
	// IsPrimary 是否主电话
	IsPrimary bool `gorm:"column:is_primary;not null;default:false" json:"is_primary"`
	// Verified 是否已验证
	Verified bool `gorm:"column:verified;not null;default:false" json:"verified"`
}

// Location 地址记录
type Location struct {
	gorm.Model
	// ContactID 所属联系人
	ContactID uint `gorm:"column:contact_id;index;not null" json:"contact_id"`
	// Type 地址类型
	Type ChannelType `gorm:"column:type;type:varchar(20);not null;default:'main'" json:"type"`
	// Street 街道
	Street string `gorm:"column:street;type:varchar(255)" json:"street"`
	// City 城市
	City string `gorm:"column:city;type:varchar(100)" json:"city"`
	// State 州/省
	State string `gorm:"column:state;type:varchar(100)" json:"state"`
	// Zip 邮编
	Zip string `gorm:"column:zip;type:varchar(20)" json:"zip"`
	// Country 国家
	Country string `gorm:"column:country;type:varchar(100)" json:"country"`
	// IsPrimary 是否主地址
	IsPrimary bool `gorm:"column:is_primary;not null;default:false" json:"is_primary"`
	// Verified 是否已验证
	Verified bool `gorm:"column:verified;not null;default:false" json:"verified"`
}

// EmployerData 雇主信息，所有字段可选
type EmployerData struct {
	gorm.Model
	// ContactID 所属联系人
	ContactID uint `gorm:"column:contact_id;index;not null" json:"contact_id"`
	// Employer 雇主名称
	Employer string `gorm:"column:employer;type:varchar(255)" json:"employer,omitempty"`
	// Occupation 职业
	Occupation string `gorm:"column:occupation;type:varchar(255)" json:"occupation,omitempty"`
	// Street 雇主地址
	Street string `gorm:"column:street;type:varchar(255)" json:"street,omitempty"`
	// City 雇主城市
	City string `gorm:"column:city;type:varchar(100)" json:"city,omitempty"`
	// State 雇主州/省
	State string `gorm:"column:state;type:varchar(100)" json:"state,omitempty"`
	// Zip 雇主邮编
	Zip string `gorm:"column:zip;type:varchar(20)" json:"zip,omitempty"`
}

// IsEmpty 所有字段为空时不落库
func (e *EmployerData) IsEmpty() bool {
	return e.Employer == "" && e.Occupation == "" && e.Street == "" &&
		e.City == "" && e.State == "" && e.Zip == ""
}

// TenantContact 租户与联系人的多对多关联（幂等：重复插入视为无操作）
type TenantContact struct {
	gorm.Model
	// TenantID 租户 ID
	TenantID string `gorm:"column:tenant_id;type:varchar(64);uniqueIndex:idx_tenant_contact,where:deleted_at IS NULL;not null" json:"tenant_id"`
	// ContactID 联系人 ID
	ContactID uint `gorm:"column:contact_id;uniqueIndex:idx_tenant_contact,where:deleted_at IS NULL;index;not null" json:"contact_id"`
}
