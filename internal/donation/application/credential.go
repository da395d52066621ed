package application

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/fundraisehq/donorcrm/internal/donation/domain"
	"github.com/fundraisehq/donorcrm/pkg/logger"
)

// CredentialService webhook 凭证校验服务。
// allowUnauthenticated 仅用于开发环境联调，production 环境下配置校验会拒绝开启。
type CredentialService struct {
	repo                 domain.CredentialRepository
	cache                domain.CredentialCache
	allowUnauthenticated bool
	environment          string
}

// NewCredentialService 创建凭证校验服务；cache 可为 nil
func NewCredentialService(repo domain.CredentialRepository, cache domain.CredentialCache, allowUnauthenticated bool, environment string) *CredentialService {
	return &CredentialService{
		repo:                 repo,
		cache:                cache,
		allowUnauthenticated: allowUnauthenticated,
		environment:          environment,
	}
}

// bypassEnabled 生产环境强制关闭免认证旁路
func (s *CredentialService) bypassEnabled() bool {
	return s.allowUnauthenticated && s.environment != "production" && s.environment != "prod"
}

// Authenticate 校验请求凭证。
// 返回的凭证为 nil 且无错误时表示开发旁路放行（无租户上下文）。
// 对外统一返回 unauthorized，不泄露具体是哪一步失败；内部日志更具体。
func (s *CredentialService) Authenticate(ctx context.Context, method, authHeader, tenantHint string) (*domain.WebhookCredential, *IngestError) {
	if method != http.MethodPost {
		return nil, NewIngestError(KindMethodNotAllowed, "only POST requests are accepted")
	}

	if authHeader == "" {
		if s.bypassEnabled() {
			logger.Warn(ctx, "webhook accepted without credentials (development bypass)")
			return nil, nil
		}
		return nil, NewIngestError(KindUnauthorized, "missing credentials")
	}

	username, password, ok := decodeBasicAuth(authHeader)
	if !ok {
		logger.Warn(ctx, "malformed basic auth header")
		return nil, NewIngestError(KindUnauthorized, "invalid credentials")
	}

	cred, err := s.lookup(ctx, username, tenantHint)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialNotFound) {
			return nil, NewIngestError(KindNotFound, "no webhook configured for these credentials")
		}
		return nil, WrapIngestError(KindDatabaseError, "credential lookup failed", err)
	}

	if !cred.IsActive {
		logger.Warn(ctx, "webhook credential inactive", "tenant_id", cred.TenantID)
		return nil, NewIngestError(KindUnauthorized, "invalid credentials")
	}

	userOK := subtle.ConstantTimeCompare([]byte(cred.APIUsername), []byte(username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(cred.APIPassword), []byte(password)) == 1
	if !userOK || !passOK {
		logger.Warn(ctx, "webhook credential mismatch", "tenant_id", cred.TenantID)
		return nil, NewIngestError(KindUnauthorized, "invalid credentials")
	}

	return cred, nil
}

// lookup 先查缓存，未命中回源并写回
func (s *CredentialService) lookup(ctx context.Context, username, tenantHint string) (*domain.WebhookCredential, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, username, tenantHint)
		if err != nil {
			logger.Warn(ctx, "credential cache read failed", "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	cred, err := s.repo.FindByUsername(ctx, username, tenantHint)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Save(ctx, username, tenantHint, cred); err != nil {
			logger.Warn(ctx, "credential cache write failed", "error", err)
		}
	}
	return cred, nil
}

// decodeBasicAuth 解析 Basic 认证头
func decodeBasicAuth(header string) (username, password string, ok bool) {
	const prefix = "Basic "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header[len(prefix):]))
	if err != nil {
		return "", "", false
	}
	username, password, ok = strings.Cut(string(decoded), ":")
	return username, password, ok
}
