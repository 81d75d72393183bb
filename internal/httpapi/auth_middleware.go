package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/the-monkeys/blogqa/internal/apperr"
	"github.com/the-monkeys/blogqa/internal/auth"
	"github.com/the-monkeys/blogqa/internal/publisher"
	"github.com/the-monkeys/blogqa/internal/ratelimit"
)

// publisherContextKey is the gin.Context key PublisherAuthMiddleware
// stores the resolved *publisher.Publisher under, for handlers to read
// back with MustPublisher.
const publisherContextKey = "blogqa.publisher"

// MustPublisher returns the *publisher.Publisher PublisherAuthMiddleware
// resolved for this request. It panics if called on a route not behind
// that middleware, the same "programmer error, not a request error"
// contract the teacher's auth middleware uses for ctx.MustGet.
func MustPublisher(c *gin.Context) *publisher.Publisher {
	return c.MustGet(publisherContextKey).(*publisher.Publisher)
}

// PublisherAuthMiddleware resolves the X-API-Key header against the Auth
// & Admission Service (spec.md §4.7 steps 1-2), grounded on the
// teacher's AuthMiddlewareConfig.extractToken/validateToken shape. It
// stores the resolved publisher for handlers and the raw key under
// ratelimit.APIKeyContextKey so the rate limiter keys on the same
// identity rather than re-reading the header.
func PublisherAuthMiddleware(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")

		pub, err := svc.ResolvePublisher(c.Request.Context(), apiKey)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(publisherContextKey, pub)
		c.Set(ratelimit.APIKeyContextKey, apiKey)
		c.Next()
	}
}

// AdminAuthMiddleware verifies the X-Admin-Key header (spec.md §6: "X-
// Admin-Key: admin_…").
func AdminAuthMiddleware(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.ResolveAdmin(c.GetHeader("X-Admin-Key")); err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// validateURL resolves and validates blog_url for the already-authed
// publisher in c, writing the §7 error response itself on failure. It
// returns ok=false when the caller should stop handling the request.
func validateURL(c *gin.Context, svc *auth.Service, pub *publisher.Publisher, rawURL string) (normalized string, ok bool) {
	if rawURL == "" {
		badRequest(c, "missing blog_url")
		return "", false
	}
	normalized, err := svc.ValidateURL(pub, rawURL)
	if err != nil {
		if appErr, isAppErr := apperr.As(err); isAppErr {
			fail(c, appErr)
			return "", false
		}
		fail(c, apperr.Internal("VALIDATE_URL", "cannot validate url", err))
		return "", false
	}
	return normalized, true
}
