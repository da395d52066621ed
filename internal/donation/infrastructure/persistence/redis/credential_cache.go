package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fundraisehq/donorcrm/internal/donation/domain"
)

type credentialCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewCredentialCache 创建短 TTL 凭证缓存。
// 显式对象而非包级单例，避免跨请求/跨租户的陈旧缓存泄漏。
func NewCredentialCache(client redis.UniversalClient, ttl time.Duration) domain.CredentialCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &credentialCache{
		client: client,
		prefix: "webhook:cred:",
		ttl:    ttl,
	}
}

func (c *credentialCache) key(username, tenantHint string) string {
	return fmt.Sprintf("%s%s:%s", c.prefix, tenantHint, username)
}

func (c *credentialCache) Get(ctx context.Context, username, tenantHint string) (*domain.WebhookCredential, error) {
	data, err := c.client.Get(ctx, c.key(username, tenantHint)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cred domain.WebhookCredential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

func (c *credentialCache) Save(ctx context.Context, username, tenantHint string, cred *domain.WebhookCredential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(username, tenantHint), data, c.ttl).Err()
}
