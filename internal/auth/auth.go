// Package auth implements the Auth & Admission pipeline (spec.md §4.7):
// the ordered sequence of checks every ingest-path request must pass
// before a blog is admitted for processing.
package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/the-monkeys/blogqa/internal/apperr"
	"github.com/the-monkeys/blogqa/internal/publisher"
	"github.com/the-monkeys/blogqa/internal/urlnorm"
)

// Service runs the admission checks of spec.md §4.7 against the
// Publisher Store.
type Service struct {
	publishers publisher.Store
	adminKey   string
}

// NewService wires a Service to the Publisher Store and the process-wide
// admin shared secret (config.Admission.AdminKey).
func NewService(publishers publisher.Store, adminKey string) *Service {
	return &Service{publishers: publishers, adminKey: adminKey}
}

// ResolvePublisher implements step 1-2 of §4.7: resolve by API key, then
// verify the publisher is active.
func (s *Service) ResolvePublisher(ctx context.Context, apiKey string) (*publisher.Publisher, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, apperr.Unauthorized(apperr.CodeInvalidAPIKey, "missing X-API-Key header")
	}

	p, err := s.publishers.GetByAPIKey(ctx, apiKey)
	if err != nil {
		if appErr, ok := apperr.As(err); ok && appErr.Kind == apperr.KindNotFound {
			return nil, apperr.Unauthorized(apperr.CodeInvalidAPIKey, "invalid API key")
		}
		return nil, err
	}

	if !p.Active {
		return nil, apperr.Forbidden(apperr.CodePublisherInactive, "publisher is inactive")
	}
	return p, nil
}

// ResolveAdmin verifies an X-Admin-Key header against the process-wide
// shared secret, in constant time to avoid a timing side channel.
func (s *Service) ResolveAdmin(adminKeyHeader string) error {
	if subtle.ConstantTimeCompare([]byte(adminKeyHeader), []byte(s.adminKey)) != 1 {
		return apperr.Unauthorized(apperr.CodeInvalidAdminKey, "invalid admin key")
	}
	return nil
}

// Reservation is a held Publisher Store slot that must be released
// exactly once, with processed=true on success or processed=false if any
// downstream step fails after the reservation succeeded (§4.7 last
// paragraph).
type Reservation struct {
	store       publisher.Store
	publisherID int64
	released    bool
}

// Release returns the slot to the Publisher Store. Only the first call
// releases; any later call is a no-op that returns nil.
func (r *Reservation) Release(ctx context.Context, processed bool) error {
	if r.released {
		return nil
	}
	r.released = true
	return r.store.ReleaseBlogSlot(ctx, r.publisherID, processed)
}

// ValidateURL runs steps 3-4 of §4.7 against an already-resolved
// publisher: normalize the URL, verify domain ownership, apply the
// whitelist. It does not reserve a quota slot, since some callers (the
// Check-and-Load Service) gate reservation behind their own logic — use
// Admit instead when the caller always reserves unconditionally.
func (s *Service) ValidateURL(p *publisher.Publisher, rawURL string) (normalizedURL string, err error) {
	normalizedURL, err = urlnorm.Normalize(rawURL)
	if err != nil {
		return "", apperr.Validation(apperr.CodeInvalidURL, "cannot normalize url").WithField("url")
	}

	domain, err := urlnorm.Domain(normalizedURL)
	if err != nil {
		return "", apperr.Validation(apperr.CodeInvalidURL, "cannot determine url domain").WithField("url")
	}
	if !sameOrSubdomain(domain, p.PrimaryDomain) {
		return "", apperr.Forbidden("DOMAIN_MISMATCH", "url domain does not match publisher's primary domain")
	}

	if !publisher.MatchesWhitelist(normalizedURL, p.Config.WhitelistedURLPatterns) {
		return "", apperr.Forbidden(apperr.CodeNotWhitelisted, "url does not match publisher's whitelist")
	}

	return normalizedURL, nil
}

// Admit runs the full §4.7 sequence for an ingest-path request that
// always reserves unconditionally (the explicit enqueue endpoint,
// spec.md §6, which has no fast path and no threshold gate): resolve
// publisher (already done by the caller via ResolvePublisher, so Admit
// takes the resolved publisher directly), validate the URL via
// ValidateURL, then reserve a quota slot.
//
// On success the caller owns the returned *Reservation and MUST call
// Release exactly once — with processed=true after the blog finishes
// processing, or processed=false if any later step fails before that
// point.
func (s *Service) Admit(ctx context.Context, p *publisher.Publisher, rawURL string) (normalizedURL string, reservation *Reservation, err error) {
	normalizedURL, err = s.ValidateURL(p, rawURL)
	if err != nil {
		return "", nil, err
	}

	if err := s.publishers.ReserveBlogSlot(ctx, p.ID); err != nil {
		return "", nil, err
	}

	return normalizedURL, &Reservation{store: s.publishers, publisherID: p.ID}, nil
}

// sameOrSubdomain reports whether host equals domain or is a subdomain
// of it (spec.md §4.7 step 3).
func sameOrSubdomain(host, domain string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	domain = strings.ToLower(strings.TrimSpace(domain))
	if host == domain {
		return true
	}
	return strings.HasSuffix(host, "."+domain)
}
