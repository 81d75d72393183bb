package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/the-monkeys/blogqa/internal/apperr"
	"github.com/the-monkeys/blogqa/internal/publisher"
)

// PublishersDeps wires the Publisher Store the admin CRUD handlers need
// (SPEC_FULL.md §4.20).
type PublishersDeps struct {
	Publishers publisher.Store
}

// createPublisherRequest is the POST /api/v1/publishers body.
type createPublisherRequest struct {
	Name          string           `json:"name" binding:"required"`
	PrimaryDomain string           `json:"primary_domain" binding:"required"`
	Config        publisher.Config `json:"config"`
}

// CreateHandler serves POST /api/v1/publishers: generates the pub_-
// prefixed API key and returns it once, never retrievable again
// (SPEC_FULL.md §4.20).
func (d *PublishersDeps) CreateHandler(c *gin.Context) {
	var req createPublisherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name and primary_domain are required")
		return
	}

	p := &publisher.Publisher{
		Name:          req.Name,
		PrimaryDomain: req.PrimaryDomain,
		APIKey:        publisher.NewAPIKey(),
		Config:        req.Config,
	}
	if err := d.Publishers.Create(c.Request.Context(), p); err != nil {
		_ = c.Error(err)
		return
	}

	success(c, http.StatusCreated, "publisher created", p)
}

// GetHandler serves GET /api/v1/publishers/{id}.
func (d *PublishersDeps) GetHandler(c *gin.Context) {
	id, ok := parsePublisherID(c)
	if !ok {
		return
	}

	p, err := d.Publishers.GetByID(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	success(c, http.StatusOK, "publisher", p)
}

// ListHandler serves GET /api/v1/publishers.
func (d *PublishersDeps) ListHandler(c *gin.Context) {
	list, err := d.Publishers.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	successWithMetadata(c, http.StatusOK, "publishers", list, gin.H{"count": len(list)}, nil)
}

// updatePublisherRequest is the PUT /api/v1/publishers/{id} body.
type updatePublisherRequest struct {
	Name          string           `json:"name" binding:"required"`
	PrimaryDomain string           `json:"primary_domain" binding:"required"`
	Active        bool             `json:"active"`
	Config        publisher.Config `json:"config"`
}

// UpdateHandler serves PUT /api/v1/publishers/{id}: configuration,
// limits and status (SPEC_FULL.md §4.20). The API key and usage
// counters are never mutated through this endpoint.
func (d *PublishersDeps) UpdateHandler(c *gin.Context) {
	id, ok := parsePublisherID(c)
	if !ok {
		return
	}

	var req updatePublisherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name and primary_domain are required")
		return
	}

	ctx := c.Request.Context()
	existing, err := d.Publishers.GetByID(ctx, id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	existing.Name = req.Name
	existing.PrimaryDomain = req.PrimaryDomain
	existing.Active = req.Active
	existing.Config = req.Config

	if err := d.Publishers.Update(ctx, existing); err != nil {
		_ = c.Error(err)
		return
	}
	success(c, http.StatusOK, "publisher updated", existing)
}

// DeleteHandler serves DELETE /api/v1/publishers/{id}. The Publisher
// Store refuses with 409 only when queue_publisher_refs holds a row for
// the publisher; nothing in this repository writes that table, so queue
// entries alone do not block deletion.
func (d *PublishersDeps) DeleteHandler(c *gin.Context) {
	id, ok := parsePublisherID(c)
	if !ok {
		return
	}
	if err := d.Publishers.Delete(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	success(c, http.StatusOK, "publisher deleted", gin.H{"id": id})
}

// RegenerateKeyHandler serves POST /api/v1/publishers/{id}/regenerate-key
// (SPEC_FULL.md §4.20): rotates the API key, invalidating the old one
// immediately since Update replaces the full row.
func (d *PublishersDeps) RegenerateKeyHandler(c *gin.Context) {
	id, ok := parsePublisherID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	existing, err := d.Publishers.GetByID(ctx, id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	existing.APIKey = publisher.NewAPIKey()
	if err := d.Publishers.Update(ctx, existing); err != nil {
		_ = c.Error(err)
		return
	}
	success(c, http.StatusOK, "api key regenerated", gin.H{"id": id, "api_key": existing.APIKey})
}

// parsePublisherID parses the {id} path parameter, writing a §7
// validation error itself on failure.
func parsePublisherID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		_ = c.Error(apperr.Validation("INVALID_PUBLISHER_ID", "publisher id must be a number").WithField("id"))
		return 0, false
	}
	return id, true
}
