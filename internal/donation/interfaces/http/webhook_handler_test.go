package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contactapp "github.com/fundraisehq/donorcrm/internal/contact/application"
	contactdomain "github.com/fundraisehq/donorcrm/internal/contact/domain"
	"github.com/fundraisehq/donorcrm/internal/donation/application"
	"github.com/fundraisehq/donorcrm/internal/donation/domain"
)

type stubContactRepo struct {
	contacts map[uint]*contactdomain.Contact
	nextID   uint
}

func newStubContactRepo() *stubContactRepo {
	return &stubContactRepo{contacts: make(map[uint]*contactdomain.Contact)}
}

func (s *stubContactRepo) WithTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

func (s *stubContactRepo) Save(ctx context.Context, contact *contactdomain.Contact) error {
	s.contacts[contact.ID] = contact
	return nil
}

func (s *stubContactRepo) GetByID(ctx context.Context, id uint) (*contactdomain.Contact, error) {
	c, ok := s.contacts[id]
	if !ok {
		return nil, contactdomain.ErrContactNotFound
	}
	return c, nil
}

func (s *stubContactRepo) ListByTenant(ctx context.Context, tenantID string, offset, limit int) ([]*contactdomain.Contact, int64, error) {
	return nil, 0, nil
}

func (s *stubContactRepo) FindEmail(ctx context.Context, address string) (*contactdomain.Email, error) {
	for _, c := range s.contacts {
		for i := range c.Emails {
			if c.Emails[i].Address == address {
				return &c.Emails[i], nil
			}
		}
	}
	return nil, contactdomain.ErrEmailNotFound
}

func (s *stubContactRepo) FindOrCreateByEmail(ctx context.Context, address string, contact *contactdomain.Contact) (*contactdomain.Contact, bool, error) {
	if email, err := s.FindEmail(ctx, address); err == nil {
		return s.contacts[email.ContactID], false, nil
	}
	s.nextID++
	contact.ID = s.nextID
	contact.Emails = []contactdomain.Email{{ContactID: contact.ID, Address: address, IsPrimary: true}}
	s.contacts[contact.ID] = contact
	return contact, true, nil
}

func (s *stubContactRepo) AttachEmail(ctx context.Context, email *contactdomain.Email) error {
	return nil
}

func (s *stubContactRepo) LinkTenant(ctx context.Context, tenantID string, contactID uint) error {
	return nil
}

func (s *stubContactRepo) AddLocation(ctx context.Context, loc *contactdomain.Location) error {
	return nil
}

func (s *stubContactRepo) AddEmployer(ctx context.Context, emp *contactdomain.EmployerData) error {
	return nil
}

func (s *stubContactRepo) AddPhone(ctx context.Context, phone *contactdomain.Phone) error {
	return nil
}

func (s *stubContactRepo) RemoveEmail(ctx context.Context, emailID uint) error { return nil }

func (s *stubContactRepo) MergeInto(ctx context.Context, primaryID, secondaryID uint) error {
	return nil
}

type stubDonationRepo struct {
	donations []*domain.Donation
	nextID    uint
}

func (s *stubDonationRepo) Save(ctx context.Context, donation *domain.Donation) error {
	s.nextID++
	donation.ID = s.nextID
	s.donations = append(s.donations, donation)
	return nil
}

func (s *stubDonationRepo) GetByID(ctx context.Context, id uint) (*domain.Donation, error) {
	return nil, domain.ErrDonationNotFound
}

func (s *stubDonationRepo) ListByContact(ctx context.Context, contactID uint, offset, limit int) ([]*domain.Donation, int64, error) {
	return nil, 0, nil
}

func (s *stubDonationRepo) AddCustomFields(ctx context.Context, fields []domain.DonationCustomField) error {
	return nil
}

func (s *stubDonationRepo) AddMerchandise(ctx context.Context, items []domain.DonationMerchandise) error {
	return nil
}

func (s *stubDonationRepo) ReassignContact(ctx context.Context, fromContactID, toContactID uint) error {
	return nil
}

type stubCredentialRepo struct {
	cred *domain.WebhookCredential
}

func (s *stubCredentialRepo) FindByUsername(ctx context.Context, username, tenantHint string) (*domain.WebhookCredential, error) {
	if s.cred != nil && s.cred.APIUsername == username {
		return s.cred, nil
	}
	return nil, domain.ErrCredentialNotFound
}

func newTestEngine() (*gin.Engine, *stubDonationRepo) {
	gin.SetMode(gin.TestMode)

	contacts := newStubContactRepo()
	donations := &stubDonationRepo{}
	credRepo := &stubCredentialRepo{cred: &domain.WebhookCredential{
		TenantID:    "t1",
		APIUsername: "hook-user",
		APIPassword: "hook-secret",
		UserID:      7,
		IsActive:    true,
	}}

	credentials := application.NewCredentialService(credRepo, nil, false, "test")
	commands := contactapp.NewContactCommandService(contacts, nil, nil, nil)
	ingest := application.NewIngestService(application.NewNormalizer(), commands, donations, nil, nil)
	handler := NewWebhookHandler(credentials, ingest, "", nil)

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.NoMethod(handler.MethodNotAllowed)
	engine.NoRoute(handler.NotFound)
	handler.RegisterRoutes(engine)
	return engine, donations
}

func authHeader(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

const donationBody = `{
	"donor": {"firstname": "Jane", "lastname": "Doe", "email": "jane@example.com"},
	"contribution": {"orderNumber": "ORD-1", "amount": "25.00", "paidAt": "2026-08-01T12:00:00Z"}
}`

func postDonation(engine *gin.Engine, body, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/webhook/donation", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestWebhookSuccess(t *testing.T) {
	engine, donations := newTestEngine()

	w := postDonation(engine, donationBody, authHeader("hook-user", "hook-secret"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp, "success")
	assert.Contains(t, resp, "donation")
	assert.Contains(t, resp, "donor")
	assert.Contains(t, resp, "request_id")
	assert.Contains(t, resp, "timestamp")
	assert.NotEqual(t, "null", string(resp["donor"]))

	require.Len(t, donations.donations, 1)
	assert.Equal(t, "t1", donations.donations[0].TenantID)
}

func TestWebhookAnonymousDonorIsNull(t *testing.T) {
	engine, _ := newTestEngine()

	body := `{"contribution": {"amount": "10", "paidAt": "2026-08-01T12:00:00Z"}}`
	w := postDonation(engine, body, authHeader("hook-user", "hook-secret"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "null", string(resp["donor"]))
}

func TestWebhookUnauthorized(t *testing.T) {
	engine, donations := newTestEngine()

	w := postDonation(engine, donationBody, authHeader("hook-user", "wrong"))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unauthorized", resp.Error)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Empty(t, donations.donations)
}

func TestWebhookMissingCredentials(t *testing.T) {
	engine, _ := newTestEngine()

	w := postDonation(engine, donationBody, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookMethodNotAllowed(t *testing.T) {
	engine, _ := newTestEngine()

	req := httptest.NewRequest(http.MethodGet, "/v1/webhook/donation", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "method_not_allowed", resp.Error)
}

func TestWebhookUnknownRoute(t *testing.T) {
	engine, _ := newTestEngine()

	req := httptest.NewRequest(http.MethodPost, "/v1/webhook/unknown", strings.NewReader("{}"))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookMalformedJSON(t *testing.T) {
	engine, _ := newTestEngine()

	w := postDonation(engine, `{"donor":`, authHeader("hook-user", "hook-secret"))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_payload", resp.Error)
}

func TestWebhookStructurallyInvalid(t *testing.T) {
	engine, donations := newTestEngine()

	body := `{"contribution": {"paidAt": "2026-08-01T12:00:00Z"}}`
	w := postDonation(engine, body, authHeader("hook-user", "hook-secret"))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_payload_structure", resp.Error)
	assert.NotEmpty(t, resp.Details)
	assert.Empty(t, donations.donations)
}
