package application

import (
	"context"
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundraisehq/donorcrm/internal/donation/domain"
)

type fakeCredentialRepo struct {
	creds []*domain.WebhookCredential
	calls int
}

func (f *fakeCredentialRepo) FindByUsername(ctx context.Context, username, tenantHint string) (*domain.WebhookCredential, error) {
	f.calls++
	for _, c := range f.creds {
		if c.APIUsername != username {
			continue
		}
		if tenantHint != "" && c.TenantID != tenantHint {
			continue
		}
		return c, nil
	}
	return nil, domain.ErrCredentialNotFound
}

type fakeCredentialCache struct {
	entries map[string]*domain.WebhookCredential
}

func newFakeCredentialCache() *fakeCredentialCache {
	return &fakeCredentialCache{entries: make(map[string]*domain.WebhookCredential)}
}

func (f *fakeCredentialCache) Get(ctx context.Context, username, tenantHint string) (*domain.WebhookCredential, error) {
	return f.entries[tenantHint+":"+username], nil
}

func (f *fakeCredentialCache) Save(ctx context.Context, username, tenantHint string, cred *domain.WebhookCredential) error {
	f.entries[tenantHint+":"+username] = cred
	return nil
}

func basicAuth(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

func activeCredential() *domain.WebhookCredential {
	return &domain.WebhookCredential{
		TenantID:    "t1",
		APIUsername: "hook-user",
		APIPassword: "hook-secret",
		UserID:      7,
		IsActive:    true,
	}
}

func TestAuthenticateValidCredentials(t *testing.T) {
	repo := &fakeCredentialRepo{creds: []*domain.WebhookCredential{activeCredential()}}
	svc := NewCredentialService(repo, nil, false, "development")

	cred, ierr := svc.Authenticate(context.Background(), http.MethodPost, basicAuth("hook-user", "hook-secret"), "")
	require.Nil(t, ierr)
	require.NotNil(t, cred)
	assert.Equal(t, "t1", cred.TenantID)
	assert.Equal(t, uint(7), cred.UserID)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	repo := &fakeCredentialRepo{creds: []*domain.WebhookCredential{activeCredential()}}
	svc := NewCredentialService(repo, nil, false, "development")

	_, ierr := svc.Authenticate(context.Background(), http.MethodPost, basicAuth("hook-user", "wrong"), "")
	require.NotNil(t, ierr)
	assert.Equal(t, KindUnauthorized, ierr.Kind)
	assert.Equal(t, http.StatusUnauthorized, ierr.Kind.HTTPStatus())
}

func TestAuthenticateInactiveCredential(t *testing.T) {
	cred := activeCredential()
	cred.IsActive = false
	repo := &fakeCredentialRepo{creds: []*domain.WebhookCredential{cred}}
	svc := NewCredentialService(repo, nil, false, "development")

	_, ierr := svc.Authenticate(context.Background(), http.MethodPost, basicAuth("hook-user", "hook-secret"), "")
	require.NotNil(t, ierr)
	assert.Equal(t, KindUnauthorized, ierr.Kind)
}

func TestAuthenticateUnknownUsername(t *testing.T) {
	repo := &fakeCredentialRepo{}
	svc := NewCredentialService(repo, nil, false, "development")

	_, ierr := svc.Authenticate(context.Background(), http.MethodPost, basicAuth("nobody", "x"), "")
	require.NotNil(t, ierr)
	assert.Equal(t, KindNotFound, ierr.Kind)
	assert.Equal(t, http.StatusNotFound, ierr.Kind.HTTPStatus())
}

func TestAuthenticateMethodNotAllowed(t *testing.T) {
	repo := &fakeCredentialRepo{creds: []*domain.WebhookCredential{activeCredential()}}
	svc := NewCredentialService(repo, nil, false, "development")

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		_, ierr := svc.Authenticate(context.Background(), method, basicAuth("hook-user", "hook-secret"), "")
		require.NotNil(t, ierr)
		assert.Equal(t, KindMethodNotAllowed, ierr.Kind)
	}
}

func TestAuthenticateMalformedHeader(t *testing.T) {
	repo := &fakeCredentialRepo{creds: []*domain.WebhookCredential{activeCredential()}}
	svc := NewCredentialService(repo, nil, false, "development")

	for _, header := range []string{"Bearer abc", "Basic not-base64!", basicAuth("no-colon", "")[:10]} {
		_, ierr := svc.Authenticate(context.Background(), http.MethodPost, header, "")
		require.NotNil(t, ierr, "header %q", header)
		assert.Equal(t, KindUnauthorized, ierr.Kind)
	}
}

func TestAuthenticateBypass(t *testing.T) {
	repo := &fakeCredentialRepo{}

	// 开发环境允许无凭证放行
	dev := NewCredentialService(repo, nil, true, "development")
	cred, ierr := dev.Authenticate(context.Background(), http.MethodPost, "", "")
	require.Nil(t, ierr)
	assert.Nil(t, cred)

	// 生产环境强制关闭旁路
	for _, env := range []string{"production", "prod"} {
		prod := NewCredentialService(repo, nil, true, env)
		_, ierr := prod.Authenticate(context.Background(), http.MethodPost, "", "")
		require.NotNil(t, ierr)
		assert.Equal(t, KindUnauthorized, ierr.Kind)
	}

	// 未开启旁路时缺失凭证直接拒绝
	off := NewCredentialService(repo, nil, false, "development")
	_, ierr = off.Authenticate(context.Background(), http.MethodPost, "", "")
	require.NotNil(t, ierr)
	assert.Equal(t, KindUnauthorized, ierr.Kind)
}

func TestAuthenticateTenantHintNarrowsLookup(t *testing.T) {
	t1 := activeCredential()
	t2 := &domain.WebhookCredential{
		TenantID:    "t2",
		APIUsername: "hook-user",
		APIPassword: "other-secret",
		UserID:      8,
		IsActive:    true,
	}
	repo := &fakeCredentialRepo{creds: []*domain.WebhookCredential{t1, t2}}
	svc := NewCredentialService(repo, nil, false, "development")

	cred, ierr := svc.Authenticate(context.Background(), http.MethodPost, basicAuth("hook-user", "other-secret"), "t2")
	require.Nil(t, ierr)
	assert.Equal(t, "t2", cred.TenantID)

	// 提示租户不匹配时按未找到处理
	_, ierr = svc.Authenticate(context.Background(), http.MethodPost, basicAuth("hook-user", "hook-secret"), "t3")
	require.NotNil(t, ierr)
	assert.Equal(t, KindNotFound, ierr.Kind)
}

func TestAuthenticateUsesCache(t *testing.T) {
	repo := &fakeCredentialRepo{creds: []*domain.WebhookCredential{activeCredential()}}
	cache := newFakeCredentialCache()
	svc := NewCredentialService(repo, cache, false, "development")

	header := basicAuth("hook-user", "hook-secret")
	_, ierr := svc.Authenticate(context.Background(), http.MethodPost, header, "")
	require.Nil(t, ierr)
	assert.Equal(t, 1, repo.calls)

	// 第二次命中缓存，不再回源
	_, ierr = svc.Authenticate(context.Background(), http.MethodPost, header, "")
	require.Nil(t, ierr)
	assert.Equal(t, 1, repo.calls)
}
