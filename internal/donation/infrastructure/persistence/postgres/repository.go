// Package postgres 捐赠与凭证仓储的 GORM 实现
package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/fundraisehq/donorcrm/internal/donation/domain"
	pkgdb "github.com/fundraisehq/donorcrm/pkg/db"
)

type donationRepository struct{ db *gorm.DB }

// NewDonationRepository 创建捐赠仓储
func NewDonationRepository(db *gorm.DB) domain.DonationRepository {
	return &donationRepository{db: db}
}

var _ domain.DonationRepository = (*donationRepository)(nil)

func (r *donationRepository) conn(ctx context.Context) *gorm.DB {
	if tx, ok := pkgdb.TxFromContext(ctx); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}

func (r *donationRepository) Save(ctx context.Context, donation *domain.Donation) error {
	return r.conn(ctx).Omit("CustomFields", "Merchandise").Create(donation).Error
}

func (r *donationRepository) GetByID(ctx context.Context, id uint) (*domain.Donation, error) {
	var donation domain.Donation
	err := r.conn(ctx).
		Preload("CustomFields").
		Preload("Merchandise").
		First(&donation, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrDonationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &donation, nil
}

func (r *donationRepository) ListByContact(ctx context.Context, contactID uint, offset, limit int) ([]*domain.Donation, int64, error) {
	base := r.conn(ctx).Model(&domain.Donation{}).Where("contact_id = ?", contactID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var donations []*domain.Donation
	err := base.Order("paid_at DESC").Offset(offset).Limit(limit).Find(&donations).Error
	if err != nil {
		return nil, 0, err
	}
	return donations, total, nil
}

func (r *donationRepository) AddCustomFields(ctx context.Context, fields []domain.DonationCustomField) error {
	if len(fields) == 0 {
		return nil
	}
	return r.conn(ctx).Create(&fields).Error
}

func (r *donationRepository) AddMerchandise(ctx context.Context, items []domain.DonationMerchandise) error {
	if len(items) == 0 {
		return nil
	}
	return r.conn(ctx).Create(&items).Error
}

func (r *donationRepository) ReassignContact(ctx context.Context, fromContactID, toContactID uint) error {
	return r.conn(ctx).Model(&domain.Donation{}).
		Where("contact_id = ?", fromContactID).
		Update("contact_id", toContactID).Error
}

type credentialRepository struct{ db *gorm.DB }

// NewCredentialRepository 创建凭证仓储
func NewCredentialRepository(db *gorm.DB) domain.CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) FindByUsername(ctx context.Context, username, tenantHint string) (*domain.WebhookCredential, error) {
	query := r.db.WithContext(ctx).Where("api_username = ?", username)
	if tenantHint != "" {
		query = query.Where("tenant_id = ?", tenantHint)
	}

	var cred domain.WebhookCredential
	err := query.First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCredentialNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}
