// Package apperr defines the typed error kinds stores and services raise
// (spec.md §7) and translates them into HTTP status codes at the edge.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the error kinds enumerated in spec.md §7.
type Kind string

const (
	KindValidation   Kind = "VALIDATION"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindForbidden    Kind = "FORBIDDEN"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindRateLimited  Kind = "RATE_LIMITED"
	KindUpstream     Kind = "UPSTREAM"
	KindInternal     Kind = "INTERNAL"
)

// Specific error codes surfaced to publishers (§4.7, §8 scenarios).
const (
	CodePublisherInactive = "PUBLISHER_INACTIVE"
	CodeDomainMismatch    = "DOMAIN_MISMATCH"
	CodeNotWhitelisted    = "NOT_WHITELISTED"
	CodeDailyLimitReached = "DAILY_LIMIT_REACHED"
	CodeInvalidAPIKey     = "INVALID_API_KEY"
	CodeInvalidAdminKey   = "INVALID_ADMIN_KEY"
	CodeInvalidURL        = "INVALID_URL"
	CodeQuestionsNotFound = "QUESTIONS_NOT_FOUND"
	CodePublisherInUse    = "PUBLISHER_IN_USE"
)

// Error is the typed error every store/service in this repository
// returns on its error paths (§7 propagation policy).
type Error struct {
	Kind   Kind
	Code   string
	Detail string
	Field  string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus maps the error kind to a response code for the §7 envelope.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, code, detail string) *Error {
	return &Error{Kind: kind, Code: code, Detail: detail}
}

func Wrap(kind Kind, code, detail string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Detail: detail, cause: cause}
}

func Validation(code, detail string) *Error { return New(KindValidation, code, detail) }
func Unauthorized(code, detail string) *Error { return New(KindUnauthorized, code, detail) }
func Forbidden(code, detail string) *Error  { return New(KindForbidden, code, detail) }
func NotFound(code, detail string) *Error   { return New(KindNotFound, code, detail) }
func Conflict(code, detail string) *Error   { return New(KindConflict, code, detail) }
func Internal(code, detail string, cause error) *Error {
	return Wrap(KindInternal, code, detail, cause)
}
func Upstream(code, detail string, cause error) *Error {
	return Wrap(KindUpstream, code, detail, cause)
}

// WithField attaches the offending field name (for VALIDATION errors).
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// As extracts an *Error from err, if present.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// ErrUsageLimitExceeded is the sentinel the Publisher Store raises when
// reserve_blog_slot fails admission (§4.2).
var ErrUsageLimitExceeded = Forbidden(CodeDailyLimitReached, "daily blog processing limit reached")
