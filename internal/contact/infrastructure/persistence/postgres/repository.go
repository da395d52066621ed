// Package postgres 联系人仓储的 GORM 实现
package postgres

import (
	"errors"
	"fmt"

	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fundraisehq/donorcrm/internal/contact/domain"
	pkgdb "github.com/fundraisehq/donorcrm/pkg/db"
)

type contactRepository struct{ db *gorm.DB }

// NewContactRepository 创建联系人仓储
func NewContactRepository(db *gorm.DB) domain.ContactRepository {
	return &contactRepository{db: db}
}

var _ domain.ContactRepository = (*contactRepository)(nil)

// liveRows 部分唯一索引的冲突目标条件，与模型上的 where:deleted_at IS NULL 索引对应
func liveRows() clause.Where {
	return clause.Where{Exprs: []clause.Expression{
		clause.Expr{SQL: "deleted_at IS NULL"},
	}}
}

// conn 优先使用 context 中的事务
func (r *contactRepository) conn(ctx context.Context) *gorm.DB {
	if tx, ok := pkgdb.TxFromContext(ctx); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}

// WithTx 开启事务；已处于事务中时直接复用
func (r *contactRepository) WithTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if _, ok := pkgdb.TxFromContext(ctx); ok {
		return fn(ctx)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(pkgdb.NewTxContext(ctx, tx))
	})
}

func (r *contactRepository) Save(ctx context.Context, contact *domain.Contact) error {
	return r.conn(ctx).Omit("Emails", "Phones", "Locations", "Employers").Save(contact).Error
}

func (r *contactRepository) GetByID(ctx context.Context, id uint) (*domain.Contact, error) {
	var contact domain.Contact
	err := r.conn(ctx).
		Preload("Emails").
		Preload("Phones").
		Preload("Locations").
		Preload("Employers").
		First(&contact, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrContactNotFound
	}
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *contactRepository) ListByTenant(ctx context.Context, tenantID string, offset, limit int) ([]*domain.Contact, int64, error) {
	base := r.conn(ctx).Model(&domain.Contact{}).
		Joins("JOIN tenant_contacts tc ON tc.contact_id = contacts.id AND tc.deleted_at IS NULL").
		Where("tc.tenant_id = ?", tenantID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var contacts []*domain.Contact
	err := base.
		Preload("Emails").
		Preload("Phones").
		Preload("Locations").
		Preload("Employers").
		Order("contacts.id").
		Offset(offset).
		Limit(limit).
		Find(&contacts).Error
	if err != nil {
		return nil, 0, err
	}
	return contacts, total, nil
}

func (r *contactRepository) FindEmail(ctx context.Context, address string) (*domain.Email, error) {
	var email domain.Email
	err := r.conn(ctx).Where("address = ?", address).First(&email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrEmailNotFound
	}
	if err != nil {
		return nil, err
	}
	return &email, nil
}

// FindOrCreateByEmail 原子化 find-or-create。
// 并发下两个请求同时未命中时，emails.address 唯一约束保证只有一方插入成功；
// 失败方丢弃自己刚建的联系人并采用胜出方的记录。
func (r *contactRepository) FindOrCreateByEmail(ctx context.Context, address string, candidate *domain.Contact) (*domain.Contact, bool, error) {
	var result *domain.Contact
	created := false

	err := r.WithTx(ctx, func(txCtx context.Context) error {
		tx := r.conn(txCtx)

		var email domain.Email
		err := tx.Where("address = ?", address).First(&email).Error
		if err == nil {
			existing, uerr := r.updateMutable(tx, email.ContactID, candidate)
			if uerr != nil {
				return uerr
			}
			result = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		contact := domain.Contact{
			FirstName: candidate.FirstName,
			LastName:  candidate.LastName,
			Status:    candidate.Status,
		}
		if contact.Status == "" {
			contact.Status = domain.ContactStatusProspect
		}
		if err := tx.Create(&contact).Error; err != nil {
			return err
		}

		newEmail := domain.Email{
			ContactID: contact.ID,
			Address:   address,
			Type:      domain.ChannelTypePersonal,
			IsPrimary: true,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "address"}},
			TargetWhere: liveRows(),
			DoNothing:   true,
		}).Create(&newEmail)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// 输掉了竞态：丢弃自己的联系人，采用已入库的那条
			if err := tx.Unscoped().Delete(&domain.Contact{}, contact.ID).Error; err != nil {
				return err
			}
			var winner domain.Email
			if err := tx.Where("address = ?", address).First(&winner).Error; err != nil {
				return err
			}
			existing, uerr := r.updateMutable(tx, winner.ContactID, candidate)
			if uerr != nil {
				return uerr
			}
			result = existing
			return nil
		}

		created = true
		result = &contact
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

// updateMutable 就地更新联系人的可变字段（姓名、状态）
func (r *contactRepository) updateMutable(tx *gorm.DB, contactID uint, candidate *domain.Contact) (*domain.Contact, error) {
	var contact domain.Contact
	if err := tx.First(&contact, contactID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrContactNotFound
		}
		return nil, err
	}
	if candidate.FirstName != "" {
		contact.FirstName = candidate.FirstName
	}
	if candidate.LastName != "" {
		contact.LastName = candidate.LastName
	}
	if candidate.Status != "" {
		contact.Status = candidate.Status
	}
	if err := tx.Save(&contact).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *contactRepository) AttachEmail(ctx context.Context, email *domain.Email) error {
	return r.conn(ctx).Clauses(clause.OnConflict{
		Columns:     []clause.Column{{Name: "address"}},
		TargetWhere: liveRows(),
		DoNothing:   true,
	}).Create(email).Error
}

func (r *contactRepository) LinkTenant(ctx context.Context, tenantID string, contactID uint) error {
	link := domain.TenantContact{TenantID: tenantID, ContactID: contactID}
	return r.conn(ctx).Clauses(clause.OnConflict{
		Columns:     []clause.Column{{Name: "tenant_id"}, {Name: "contact_id"}},
		TargetWhere: liveRows(),
		DoNothing:   true,
	}).Create(&link).Error
}

func (r *contactRepository) AddLocation(ctx context.Context, loc *domain.Location) error {
	return r.conn(ctx).Create(loc).Error
}

func (r *contactRepository) AddEmployer(ctx context.Context, emp *domain.EmployerData) error {
	return r.conn(ctx).Create(emp).Error
}

func (r *contactRepository) AddPhone(ctx context.Context, phone *domain.Phone) error {
	return r.conn(ctx).Create(phone).Error
}

// RemoveEmail 删除邮箱，并在同一事务内保证主邮箱晋升（§ 主记录不变式）
func (r *contactRepository) RemoveEmail(ctx context.Context, emailID uint) error {
	return r.WithTx(ctx, func(txCtx context.Context) error {
		tx := r.conn(txCtx)

		var email domain.Email
		if err := tx.First(&email, emailID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrEmailNotFound
			}
			return err
		}
		if err := tx.Delete(&email).Error; err != nil {
			return err
		}
		return ensurePrimary(tx, "emails", email.ContactID)
	})
}

// MergeInto 把 secondary 的所有子记录与租户关联转移到 primary，
// 软删除 secondary，并修复每个渠道的主记录不变式。
func (r *contactRepository) MergeInto(ctx context.Context, primaryID, secondaryID uint) error {
	if primaryID == secondaryID {
		return fmt.Errorf("cannot merge contact %d into itself", primaryID)
	}
	return r.WithTx(ctx, func(txCtx context.Context) error {
		tx := r.conn(txCtx)

		var primary, secondary domain.Contact
		if err := tx.First(&primary, primaryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrContactNotFound
			}
			return err
		}
		if err := tx.First(&secondary, secondaryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrContactNotFound
			}
			return err
		}

		// 子记录整体转移
		for _, model := range []any{
			&domain.Email{}, &domain.Phone{}, &domain.Location{}, &domain.EmployerData{},
		} {
			if err := tx.Model(model).
				Where("contact_id = ?", secondaryID).
				Update("contact_id", primaryID).Error; err != nil {
				return err
			}
		}

		// 租户关联：先幂等补到 primary，再移除 secondary 的
		var links []domain.TenantContact
		if err := tx.Where("contact_id = ?", secondaryID).Find(&links).Error; err != nil {
			return err
		}
		for _, link := range links {
			fresh := domain.TenantContact{TenantID: link.TenantID, ContactID: primaryID}
			if err := tx.Clauses(clause.OnConflict{
				Columns:     []clause.Column{{Name: "tenant_id"}, {Name: "contact_id"}},
				TargetWhere: liveRows(),
				DoNothing:   true,
			}).Create(&fresh).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("contact_id = ?", secondaryID).Delete(&domain.TenantContact{}).Error; err != nil {
			return err
		}

		// 每个渠道至多一个主记录
		for _, table := range []string{"emails", "phones", "locations"} {
			if err := ensurePrimary(tx, table, primaryID); err != nil {
				return err
			}
		}

		// 软删除被合并方
		return tx.Delete(&domain.Contact{}, secondaryID).Error
	})
}

// ensurePrimary 修复主记录不变式：至多一个 is_primary，有记录则必有主记录
func ensurePrimary(tx *gorm.DB, table string, contactID uint) error {
	// 降级多余的主记录，保留 id 最小的一个
	demote := fmt.Sprintf(`
		UPDATE %s SET is_primary = false
		WHERE contact_id = ? AND is_primary = true AND deleted_at IS NULL
		  AND id <> (
			SELECT min(id) FROM %s
			WHERE contact_id = ? AND is_primary = true AND deleted_at IS NULL
		  )`, table, table)
	if err := tx.Exec(demote, contactID, contactID).Error; err != nil {
		return err
	}

	// 没有主记录时晋升 id 最小的一条
	promote := fmt.Sprintf(`
		UPDATE %s SET is_primary = true
		WHERE id = (
			SELECT min(id) FROM %s
			WHERE contact_id = ? AND deleted_at IS NULL
		)
		AND NOT EXISTS (
			SELECT 1 FROM %s
			WHERE contact_id = ? AND is_primary = true AND deleted_at IS NULL
		)`, table, table, table)
	return tx.Exec(promote, contactID, contactID).Error
}
