// Package ratelimit 基于 Redis 的分布式限流，webhook 接入层按租户维度限流
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// keyPrefix 限流 key 的统一命名空间，避免与凭证缓存等其他 Redis key 冲突
const keyPrefix = "donorcrm:ratelimit"

// Key 拼接限流 key，例如 Key("webhook", tenantID)
func Key(parts ...string) string {
	return keyPrefix + ":" + strings.Join(parts, ":")
}

// Limit 限流参数
type Limit struct {
	// 周期内允许的请求数
	Rate int
	// 限流周期
	Period time.Duration
	// 突发容量
	Burst int
}

// PerSecond 按 QPS 构造限流参数，突发容量默认为 2 倍 QPS
func PerSecond(qps int) Limit {
	return Limit{
		Rate:   qps,
		Period: time.Second,
		Burst:  qps * 2,
	}
}

// Result 限流判定结果
type Result struct {
	// 是否放行
	Allowed bool
	// 剩余配额
	Remaining int
	// 配额重置等待时间
	ResetAfter time.Duration
	// 被拒绝时的重试等待时间
	RetryAfter time.Duration
}

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit Limit) (*Result, error)
}

// RedisRateLimiter 基于 redis_rate（GCRA 算法）的限流器实现
type RedisRateLimiter struct {
	limiter *redis_rate.Limiter
}

// NewRedisRateLimiter 创建 Redis 限流器
func NewRedisRateLimiter(rdb *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{
		limiter: redis_rate.NewLimiter(rdb),
	}
}

// Allow 判定一次请求是否放行
func (r *RedisRateLimiter) Allow(ctx context.Context, key string, limit Limit) (*Result, error) {
	res, err := r.limiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   limit.Rate,
		Period: limit.Period,
		Burst:  limit.Burst,
	})
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	return &Result{
		Allowed:    res.Allowed > 0,
		Remaining:  res.Remaining,
		ResetAfter: res.ResetAfter,
		RetryAfter: res.RetryAfter,
	}, nil
}
