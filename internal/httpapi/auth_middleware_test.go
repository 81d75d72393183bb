package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/the-monkeys/blogqa/internal/ratelimit"
)

func TestPublisherAuthMiddlewareAcceptsValidKey(t *testing.T) {
	h := newHarness(t, 10)
	router := gin.New()
	router.Use(RequestIDMiddleware(), ErrorMiddleware())
	router.GET("/x", PublisherAuthMiddleware(h.auth), func(c *gin.Context) {
		pub := MustPublisher(c)
		assert.Equal(t, h.pub.APIKey, pub.APIKey)
		key, ok := c.Get(ratelimit.APIKeyContextKey)
		assert.True(t, ok)
		assert.Equal(t, h.pub.APIKey, key)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-API-Key", h.pub.APIKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPublisherAuthMiddlewareRejectsMissingKey(t *testing.T) {
	h := newHarness(t, 10)
	router := gin.New()
	router.Use(RequestIDMiddleware(), ErrorMiddleware())
	router.GET("/x", PublisherAuthMiddleware(h.auth), func(c *gin.Context) {
		t.Fatal("handler should not run without a valid api key")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPublisherAuthMiddlewareRejectsUnknownKey(t *testing.T) {
	h := newHarness(t, 10)
	router := gin.New()
	router.Use(RequestIDMiddleware(), ErrorMiddleware())
	router.GET("/x", PublisherAuthMiddleware(h.auth), func(c *gin.Context) {
		t.Fatal("handler should not run with an unknown api key")
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-API-Key", "pub_does_not_exist")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuthMiddlewareAcceptsValidKey(t *testing.T) {
	h := newHarness(t, 10)
	router := gin.New()
	router.Use(RequestIDMiddleware(), ErrorMiddleware())
	router.GET("/x", AdminAuthMiddleware(h.auth), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Admin-Key", adminKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminAuthMiddlewareRejectsWrongKey(t *testing.T) {
	h := newHarness(t, 10)
	router := gin.New()
	router.Use(RequestIDMiddleware(), ErrorMiddleware())
	router.GET("/x", AdminAuthMiddleware(h.auth), func(c *gin.Context) {
		t.Fatal("handler should not run with the wrong admin key")
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Admin-Key", "admin_wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestValidateURLRejectsMissingURL(t *testing.T) {
	h := newHarness(t, 10)
	c, w := newTestContext(http.MethodGet, "/x")
	_, ok := validateURL(c, h.auth, h.pub, "")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateURLRejectsDomainMismatch(t *testing.T) {
	h := newHarness(t, 10)
	c, w := newTestContext(http.MethodGet, "/x")
	_, ok := validateURL(c, h.auth, h.pub, "https://not-acme.example/post")
	assert.False(t, ok)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestValidateURLNormalizesAndAccepts(t *testing.T) {
	h := newHarness(t, 10)
	c, _ := newTestContext(http.MethodGet, "/x")
	normalized, ok := validateURL(c, h.auth, h.pub, "https://www.acme.example/post-a/")
	assert.True(t, ok)
	assert.Equal(t, "https://acme.example/post-a", normalized)
}
