package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundraisehq/donorcrm/internal/contact/domain"
)

// fakeContactRepo 内存版仓储，可按测试需要注入单点故障
type fakeContactRepo struct {
	contacts map[uint]*domain.Contact
	tenants  map[uint]string
	nextID   uint

	locationErr error
	phoneErr    error
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{
		contacts: make(map[uint]*domain.Contact),
		tenants:  make(map[uint]string),
	}
}

func (f *fakeContactRepo) seed(c *domain.Contact) {
	if c.ID == 0 {
		f.nextID++
		c.ID = f.nextID
	} else if c.ID > f.nextID {
		f.nextID = c.ID
	}
	f.contacts[c.ID] = c
}

func (f *fakeContactRepo) WithTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeContactRepo) Save(ctx context.Context, contact *domain.Contact) error {
	f.contacts[contact.ID] = contact
	return nil
}

func (f *fakeContactRepo) GetByID(ctx context.Context, id uint) (*domain.Contact, error) {
	c, ok := f.contacts[id]
	if !ok {
		return nil, domain.ErrContactNotFound
	}
	return c, nil
}

func (f *fakeContactRepo) ListByTenant(ctx context.Context, tenantID string, offset, limit int) ([]*domain.Contact, int64, error) {
	return nil, 0, nil
}

func (f *fakeContactRepo) FindEmail(ctx context.Context, address string) (*domain.Email, error) {
	for _, c := range f.contacts {
		for i := range c.Emails {
			if c.Emails[i].Address == address {
				return &c.Emails[i], nil
			}
		}
	}
	return nil, domain.ErrEmailNotFound
}

func (f *fakeContactRepo) FindOrCreateByEmail(ctx context.Context, address string, contact *domain.Contact) (*domain.Contact, bool, error) {
	if email, err := f.FindEmail(ctx, address); err == nil {
		return f.contacts[email.ContactID], false, nil
	}
	f.nextID++
	contact.ID = f.nextID
	contact.Emails = []domain.Email{{ContactID: contact.ID, Address: address, IsPrimary: true}}
	f.contacts[contact.ID] = contact
	return contact, true, nil
}

func (f *fakeContactRepo) AttachEmail(ctx context.Context, email *domain.Email) error {
	c, ok := f.contacts[email.ContactID]
	if !ok {
		return domain.ErrContactNotFound
	}
	c.Emails = append(c.Emails, *email)
	return nil
}

func (f *fakeContactRepo) LinkTenant(ctx context.Context, tenantID string, contactID uint) error {
	f.tenants[contactID] = tenantID
	return nil
}

func (f *fakeContactRepo) AddLocation(ctx context.Context, loc *domain.Location) error {
	if f.locationErr != nil {
		return f.locationErr
	}
	c, ok := f.contacts[loc.ContactID]
	if !ok {
		return domain.ErrContactNotFound
	}
	c.Locations = append(c.Locations, *loc)
	return nil
}

func (f *fakeContactRepo) AddEmployer(ctx context.Context, emp *domain.EmployerData) error {
	return nil
}

func (f *fakeContactRepo) AddPhone(ctx context.Context, phone *domain.Phone) error {
	if f.phoneErr != nil {
		return f.phoneErr
	}
	c, ok := f.contacts[phone.ContactID]
	if !ok {
		return domain.ErrContactNotFound
	}
	c.Phones = append(c.Phones, *phone)
	return nil
}

func (f *fakeContactRepo) RemoveEmail(ctx context.Context, emailID uint) error { return nil }

func (f *fakeContactRepo) MergeInto(ctx context.Context, primaryID, secondaryID uint) error {
	return nil
}

// fakeMatcher 固定返回预设结果的内联匹配器
type fakeMatcher struct {
	contactID uint
	ok        bool
	err       error
	calls     int
}

func (f *fakeMatcher) MatchDonor(ctx context.Context, cmd ResolveDonorCommand) (uint, bool, error) {
	f.calls++
	return f.contactID, f.ok, f.err
}

type fakeEventPublisher struct {
	events []string
}

func (f *fakeEventPublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	f.events = append(f.events, eventType)
	return nil
}

func janeCommand() ResolveDonorCommand {
	return ResolveDonorCommand{
		TenantID:  "t1",
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@example.com",
		Phone:     "5551234567",
		Street:    "1 Main St",
		City:      "Springfield",
		State:     "IL",
		Zip:       "62704",
	}
}

func TestResolveDonorAnonymous(t *testing.T) {
	repo := newFakeContactRepo()
	svc := NewContactCommandService(repo, nil, nil, nil)

	cmd := janeCommand()
	cmd.Email = ""
	contact, err := svc.ResolveDonor(context.Background(), cmd)
	require.NoError(t, err)
	assert.Nil(t, contact)
	assert.Empty(t, repo.contacts)
}

func TestResolveDonorCreatesContact(t *testing.T) {
	repo := newFakeContactRepo()
	publisher := &fakeEventPublisher{}
	svc := NewContactCommandService(repo, nil, publisher, nil)

	contact, err := svc.ResolveDonor(context.Background(), janeCommand())
	require.NoError(t, err)
	require.NotNil(t, contact)

	assert.Equal(t, "Jane", contact.FirstName)
	assert.Equal(t, domain.ContactStatusDonor, contact.Status)
	require.Len(t, contact.Emails, 1)
	assert.True(t, contact.Emails[0].IsPrimary)
	require.Len(t, contact.Phones, 1)
	assert.Equal(t, "5551234567", contact.Phones[0].Number)
	require.Len(t, contact.Locations, 1)
	assert.Equal(t, "Springfield", contact.Locations[0].City)
	assert.Equal(t, "t1", repo.tenants[contact.ID])
	assert.Equal(t, []string{domain.ContactCreatedEventType}, publisher.events)
}

func TestResolveDonorReusesExistingEmail(t *testing.T) {
	repo := newFakeContactRepo()
	existing := &domain.Contact{FirstName: "J", LastName: "D", Status: domain.ContactStatusDonor}
	repo.seed(existing)
	existing.Emails = []domain.Email{{ContactID: existing.ID, Address: "jane@example.com", IsPrimary: true}}

	publisher := &fakeEventPublisher{}
	svc := NewContactCommandService(repo, nil, publisher, nil)

	contact, err := svc.ResolveDonor(context.Background(), janeCommand())
	require.NoError(t, err)
	assert.Equal(t, existing.ID, contact.ID)
	assert.Len(t, repo.contacts, 1)
	// 复用已有联系人不发 created 事件，也不补电话
	assert.Empty(t, publisher.events)
	assert.Empty(t, contact.Phones)
}

func TestResolveDonorAttachesEmailOnInlineMatch(t *testing.T) {
	repo := newFakeContactRepo()
	matched := &domain.Contact{FirstName: "Janet", LastName: "Doe", Status: domain.ContactStatusDonor}
	repo.seed(matched)
	matched.Emails = []domain.Email{{ContactID: matched.ID, Address: "old@example.com", IsPrimary: true}}

	matcher := &fakeMatcher{contactID: matched.ID, ok: true}
	svc := NewContactCommandService(repo, matcher, nil, nil)

	contact, err := svc.ResolveDonor(context.Background(), janeCommand())
	require.NoError(t, err)

	assert.Equal(t, 1, matcher.calls)
	assert.Equal(t, matched.ID, contact.ID)
	assert.Len(t, repo.contacts, 1)
	// 新邮箱挂到命中联系人上，可变字段就地更新
	require.Len(t, contact.Emails, 2)
	assert.Equal(t, "jane@example.com", contact.Emails[1].Address)
	assert.False(t, contact.Emails[1].IsPrimary)
	assert.Equal(t, "Jane", contact.FirstName)
}

func TestResolveDonorMatcherFailureFallsBackToCreate(t *testing.T) {
	repo := newFakeContactRepo()
	matcher := &fakeMatcher{err: errors.New("matcher unavailable")}
	svc := NewContactCommandService(repo, matcher, nil, nil)

	contact, err := svc.ResolveDonor(context.Background(), janeCommand())
	require.NoError(t, err)
	require.NotNil(t, contact)
	assert.Len(t, repo.contacts, 1)
}

func TestResolveDonorAncillaryFailuresNotFatal(t *testing.T) {
	repo := newFakeContactRepo()
	repo.locationErr = errors.New("locations table unavailable")
	repo.phoneErr = errors.New("phones table unavailable")
	svc := NewContactCommandService(repo, nil, nil, nil)

	contact, err := svc.ResolveDonor(context.Background(), janeCommand())
	require.NoError(t, err)
	require.NotNil(t, contact)
	assert.Empty(t, contact.Locations)
	assert.Empty(t, contact.Phones)
}
