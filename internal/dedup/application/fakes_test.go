package application

import (
	"context"
	"sort"

	contactdomain "github.com/fundraisehq/donorcrm/internal/contact/domain"
	"github.com/fundraisehq/donorcrm/internal/dedup/domain"
)

// fakeContactRepo 内存版联系人仓储，按测试需要实现
type fakeContactRepo struct {
	contacts map[uint]*contactdomain.Contact
	tenants  map[uint]string
	merged   [][2]uint // [primary, secondary]
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{
		contacts: make(map[uint]*contactdomain.Contact),
		tenants:  make(map[uint]string),
	}
}

func (f *fakeContactRepo) add(tenantID string, c *contactdomain.Contact) {
	f.contacts[c.ID] = c
	f.tenants[c.ID] = tenantID
}

func (f *fakeContactRepo) WithTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeContactRepo) Save(ctx context.Context, contact *contactdomain.Contact) error {
	f.contacts[contact.ID] = contact
	return nil
}

func (f *fakeContactRepo) GetByID(ctx context.Context, id uint) (*contactdomain.Contact, error) {
	c, ok := f.contacts[id]
	if !ok {
		return nil, contactdomain.ErrContactNotFound
	}
	return c, nil
}

func (f *fakeContactRepo) ListByTenant(ctx context.Context, tenantID string, offset, limit int) ([]*contactdomain.Contact, int64, error) {
	var ids []uint
	for id, t := range f.tenants {
		if t == tenantID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var all []*contactdomain.Contact
	for _, id := range ids {
		all = append(all, f.contacts[id])
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (f *fakeContactRepo) FindEmail(ctx context.Context, address string) (*contactdomain.Email, error) {
	for _, c := range f.contacts {
		for i := range c.Emails {
			if c.Emails[i].Address == address {
				return &c.Emails[i], nil
			}
		}
	}
	return nil, contactdomain.ErrEmailNotFound
}

func (f *fakeContactRepo) FindOrCreateByEmail(ctx context.Context, address string, contact *contactdomain.Contact) (*contactdomain.Contact, bool, error) {
	if email, err := f.FindEmail(ctx, address); err == nil {
		return f.contacts[email.ContactID], false, nil
	}
	contact.ID = uint(len(f.contacts) + 1)
	contact.Emails = []contactdomain.Email{{ContactID: contact.ID, Address: address, IsPrimary: true}}
	f.contacts[contact.ID] = contact
	return contact, true, nil
}

func (f *fakeContactRepo) AttachEmail(ctx context.Context, email *contactdomain.Email) error {
	c, ok := f.contacts[email.ContactID]
	if !ok {
		return contactdomain.ErrContactNotFound
	}
	c.Emails = append(c.Emails, *email)
	return nil
}

func (f *fakeContactRepo) LinkTenant(ctx context.Context, tenantID string, contactID uint) error {
	f.tenants[contactID] = tenantID
	return nil
}

func (f *fakeContactRepo) AddLocation(ctx context.Context, loc *contactdomain.Location) error {
	c, ok := f.contacts[loc.ContactID]
	if !ok {
		return contactdomain.ErrContactNotFound
	}
	c.Locations = append(c.Locations, *loc)
	return nil
}

func (f *fakeContactRepo) AddEmployer(ctx context.Context, emp *contactdomain.EmployerData) error {
	return nil
}

func (f *fakeContactRepo) AddPhone(ctx context.Context, phone *contactdomain.Phone) error {
	c, ok := f.contacts[phone.ContactID]
	if !ok {
		return contactdomain.ErrContactNotFound
	}
	c.Phones = append(c.Phones, *phone)
	return nil
}

func (f *fakeContactRepo) RemoveEmail(ctx context.Context, emailID uint) error {
	return nil
}

func (f *fakeContactRepo) MergeInto(ctx context.Context, primaryID, secondaryID uint) error {
	if _, ok := f.contacts[primaryID]; !ok {
		return contactdomain.ErrContactNotFound
	}
	if _, ok := f.contacts[secondaryID]; !ok {
		return contactdomain.ErrContactNotFound
	}
	f.merged = append(f.merged, [2]uint{primaryID, secondaryID})
	delete(f.contacts, secondaryID)
	delete(f.tenants, secondaryID)
	return nil
}

// fakeMatchRepo 内存版候选对仓储
type fakeMatchRepo struct {
	matches map[uint]*domain.DuplicateMatch
	nextID  uint
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[uint]*domain.DuplicateMatch)}
}

func (f *fakeMatchRepo) Save(ctx context.Context, match *domain.DuplicateMatch) error {
	f.nextID++
	match.ID = f.nextID
	f.matches[match.ID] = match
	return nil
}

func (f *fakeMatchRepo) Update(ctx context.Context, match *domain.DuplicateMatch) error {
	f.matches[match.ID] = match
	return nil
}

func (f *fakeMatchRepo) GetByID(ctx context.Context, id uint) (*domain.DuplicateMatch, error) {
	m, ok := f.matches[id]
	if !ok {
		return nil, domain.ErrMatchNotFound
	}
	return m, nil
}

func (f *fakeMatchRepo) ExistsUnresolved(ctx context.Context, contactA, contactB uint) (bool, error) {
	for _, m := range f.matches {
		if m.Resolved {
			continue
		}
		if (m.Contact1ID == contactA && m.Contact2ID == contactB) ||
			(m.Contact1ID == contactB && m.Contact2ID == contactA) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMatchRepo) ListByTenant(ctx context.Context, tenantID string, unresolvedOnly bool, offset, limit int) ([]*domain.DuplicateMatch, int64, error) {
	var out []*domain.DuplicateMatch
	for _, m := range f.matches {
		if m.TenantID != tenantID {
			continue
		}
		if unresolvedOnly && m.Resolved {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

func (f *fakeMatchRepo) CountUnresolved(ctx context.Context, tenantID string) (int64, error) {
	var count int64
	for _, m := range f.matches {
		if m.TenantID == tenantID && !m.Resolved {
			count++
		}
	}
	return count, nil
}

func (f *fakeMatchRepo) unresolvedCount() int {
	var count int
	for _, m := range f.matches {
		if !m.Resolved {
			count++
		}
	}
	return count
}

// fakeHistoryRepo 内存版合并审计仓储
type fakeHistoryRepo struct {
	records []*domain.MergeHistory
}

func (f *fakeHistoryRepo) Save(ctx context.Context, history *domain.MergeHistory) error {
	f.records = append(f.records, history)
	return nil
}

func (f *fakeHistoryRepo) ListByContact(ctx context.Context, primaryContactID uint) ([]*domain.MergeHistory, error) {
	var out []*domain.MergeHistory
	for _, r := range f.records {
		if r.PrimaryContactID == primaryContactID {
			out = append(out, r)
		}
	}
	return out, nil
}

// fakeDonationRepo 只记录转移调用
type fakeDonationRepo struct {
	reassigned [][2]uint
}

func (f *fakeDonationRepo) ReassignContact(ctx context.Context, fromContactID, toContactID uint) error {
	f.reassigned = append(f.reassigned, [2]uint{fromContactID, toContactID})
	return nil
}
