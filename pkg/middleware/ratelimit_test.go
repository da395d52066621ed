package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundraisehq/donorcrm/pkg/ratelimit"
)

type fakeLimiter struct {
	keys    []string
	allowed bool
	err     error
}

func (f *fakeLimiter) Allow(ctx context.Context, key string, limit ratelimit.Limit) (*ratelimit.Result, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return nil, f.err
	}
	return &ratelimit.Result{
		Allowed:    f.allowed,
		Remaining:  limit.Burst - 1,
		ResetAfter: time.Second,
		RetryAfter: 2 * time.Second,
	}, nil
}

func newRateLimitedEngine(limiter ratelimit.RateLimiter, qps int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RateLimitMiddleware(limiter, "X-Tenant-ID", qps))
	engine.POST("/webhook", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return engine
}

func TestRateLimitKeyedByTenantHeader(t *testing.T) {
	limiter := &fakeLimiter{allowed: true}
	engine := newRateLimitedEngine(limiter, 10)

	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	req.Header.Set("X-Tenant-ID", "acme")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, limiter.keys, 1)
	assert.Equal(t, "donorcrm:ratelimit:webhook:acme", limiter.keys[0])
}

func TestRateLimitFallsBackToClientIP(t *testing.T) {
	limiter := &fakeLimiter{allowed: true}
	engine := newRateLimitedEngine(limiter, 10)

	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	req.RemoteAddr = "203.0.113.7:4567"
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, limiter.keys, 1)
	assert.Equal(t, "donorcrm:ratelimit:webhook:203.0.113.7", limiter.keys[0])
}

func TestRateLimitRejectsWithRetryAfter(t *testing.T) {
	limiter := &fakeLimiter{allowed: false}
	engine := newRateLimitedEngine(limiter, 10)

	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	req.Header.Set("X-Tenant-ID", "acme")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
}

func TestRateLimitDisabledWhenZeroQPS(t *testing.T) {
	limiter := &fakeLimiter{allowed: false}
	engine := newRateLimitedEngine(limiter, 0)

	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, limiter.keys)
}

func TestRateLimitFailsOpenOnLimiterError(t *testing.T) {
	limiter := &fakeLimiter{err: assert.AnError}
	engine := newRateLimitedEngine(limiter, 10)

	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	req.Header.Set("X-Tenant-ID", "acme")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
