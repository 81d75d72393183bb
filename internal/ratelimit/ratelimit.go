// Package ratelimit guards the publisher-facing edge against request
// bursts, independent of and layered in front of the daily-quota slot
// reservation in internal/publisher (SPEC_FULL.md §4.18): a burst limit
// protects the process, the daily quota protects the publisher's budget.
package ratelimit

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// Limiter wraps ulule/limiter/v3 with an in-memory store keyed by API
// key rather than by remote IP, since publishers are distinguished by
// their API key and may legitimately share egress IPs.
type Limiter struct {
	limiter *limiter.Limiter
}

// New builds a Limiter from a ulule/limiter rate rule string (e.g.
// "10-S" for 10 requests per second), the default being config.Admission.
// RateLimitRule.
func New(rule string) (*Limiter, error) {
	r, err := limiter.NewRateFromFormatted(rule)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parsing rule %q: %w", rule, err)
	}
	store := memory.NewStore()
	return &Limiter{limiter: limiter.New(store, r)}, nil
}

// Allow reports whether key (the publisher's API key) may proceed,
// incrementing its bucket as a side effect.
func (l *Limiter) Allow(ctx context.Context, key string) (limiter.Context, error) {
	return l.limiter.Get(ctx, key)
}

// Middleware returns gin middleware that keys each request's rate-limit
// bucket by the API key the Auth & Admission layer resolved earlier
// (expected in gin.Context under APIKeyContextKey), falling back to the
// client IP for unauthenticated routes.
func Middleware(l *Limiter) gin.HandlerFunc {
	mw := ginlimiter.NewMiddleware(l.limiter, ginlimiter.WithKeyGetter(func(c *gin.Context) string {
		if key, ok := c.Get(APIKeyContextKey); ok {
			if s, ok := key.(string); ok && s != "" {
				return s
			}
		}
		return c.ClientIP()
	}))
	return mw
}

// APIKeyContextKey is the gin.Context key internal/httpapi's publisher-auth
// middleware stores the resolved API key under, shared here so rate
// limiting keys on the same identity auth already resolved rather than
// re-reading the X-API-Key header itself.
const APIKeyContextKey = "blogqa.api_key"
