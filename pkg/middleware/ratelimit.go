package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fundraisehq/donorcrm/pkg/ratelimit"
)

// RateLimitMiddleware Gin 限流中间件。
// 按租户提示头取限流维度，未携带租户头的请求回落到客户端 IP。
func RateLimitMiddleware(limiter ratelimit.RateLimiter, tenantHeader string, qps int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if qps <= 0 {
			c.Next()
			return
		}

		subject := c.GetHeader(tenantHeader)
		if subject == "" {
			subject = c.ClientIP()
		}
		key := ratelimit.Key("webhook", subject)
		limit := ratelimit.PerSecond(qps)

		res, err := limiter.Allow(c.Request.Context(), key, limit)
		if err != nil {
			// 限流器故障时放行，不阻断接入
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit.Burst))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(res.ResetAfter.Seconds()), 10))

		if !res.Allowed {
			c.Header("Retry-After", strconv.FormatInt(int64(res.RetryAfter.Seconds()), 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too Many Requests",
				"retry_after": res.RetryAfter.String(),
			})
			return
		}

		c.Next()
	}
}
