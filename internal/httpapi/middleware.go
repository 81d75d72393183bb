package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/the-monkeys/blogqa/internal/apperr"
	"github.com/the-monkeys/blogqa/logger"
)

var log = logger.ZapForService("httpapi")

// requestIDKey is the gin.Context key the RequestIDMiddleware stores the
// per-request id under (spec.md §4.11: "generates a per-request ID,
// echoes it as X-Request-ID").
const requestIDKey = "blogqa.request_id"

// RequestID returns the id RequestIDMiddleware attached to c, or an
// empty string if the middleware never ran (tests calling a handler
// directly without building the full router).
func RequestID(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// RequestIDMiddleware generates a request id (or reuses an inbound
// X-Request-ID, the same "trust the caller's correlation id if given"
// pattern the teacher's services use for trace propagation), stores it
// on the context, and echoes it back on the response.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// AccessLogMiddleware logs method/path/status/duration per request, the
// structured-log equivalent of the teacher's LogRequestBody middleware
// but over the response rather than the inbound body (the request body
// is already captured in each handler's validation errors).
func AccessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Infow("request handled",
			"request_id", RequestID(c),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// CORSMiddleware wraps gin-contrib/cors with the origins from
// config.Admission.CORSOrigins (spec.md §4.11: "CORS origins come from
// config"). An empty origins list allows all origins, matching the
// teacher's TmpCORSMiddleware fallback for environments that haven't
// configured a strict origin list yet.
func CORSMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "X-API-Key", "X-Admin-Key", "X-Request-ID"}
	cfg.ExposeHeaders = []string{"X-Request-ID"}
	return cors.New(cfg)
}

// SecureHeadersMiddleware applies the same baseline security headers the
// teacher's gateway sets via gin-contrib/secure (FrameDeny,
// ContentTypeNosniff, BrowserXssFilter). The router installs it for every
// route, /health and /metrics included.
func SecureHeadersMiddleware() gin.HandlerFunc {
	return secure.New(secure.Config{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	})
}

// ErrorMiddleware translates the last error a handler attached via
// c.Error(err) into the §7 error envelope. Handlers that already wrote
// their own response (the success paths) never reach this: gin only
// calls registered middleware after c.Next() returns, and this one runs
// last in the chain, so it only fires when a handler aborted with an
// error instead of writing a body itself.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		if appErr, ok := apperr.As(err); ok {
			fail(c, appErr)
			return
		}

		log.Errorw("unclassified handler error", "request_id", RequestID(c), "error", err)
		fail(c, apperr.Internal("INTERNAL", "an unexpected error occurred", err))
	}
}
