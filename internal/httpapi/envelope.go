// Package httpapi implements the Edge API (spec.md §4.11): a thin gin
// adapter that parses requests, calls the domain services, and wraps
// every result in the standardized envelope of spec.md §7.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/the-monkeys/blogqa/internal/apperr"
)

// errorBody is the nested `error` object of the §7 error envelope.
type errorBody struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
	Field  string `json:"field,omitempty"`
}

// envelope is the single response shape every handler writes through,
// covering both the success and error cases of spec.md §7.
type envelope struct {
	Status     string      `json:"status"`
	StatusCode int         `json:"status_code"`
	Message    string      `json:"message"`
	Result     interface{} `json:"result,omitempty"`
	Metadata   interface{} `json:"metadata,omitempty"`
	Warnings   []string    `json:"warnings,omitempty"`
	Error      *errorBody  `json:"error,omitempty"`
	RequestID  string      `json:"request_id"`
	Timestamp  time.Time   `json:"timestamp"`
}

// success writes a §7 success envelope with the given HTTP status.
func success(c *gin.Context, status int, message string, result interface{}) {
	successWithMetadata(c, status, message, result, nil, nil)
}

// successWithMetadata is success plus the optional metadata/warnings
// fields the jobs/stats and publishers/list endpoints populate.
func successWithMetadata(c *gin.Context, status int, message string, result, metadata interface{}, warnings []string) {
	c.JSON(status, envelope{
		Status:     "success",
		StatusCode: status,
		Message:    message,
		Result:     result,
		Metadata:   metadata,
		Warnings:   warnings,
		RequestID:  RequestID(c),
		Timestamp:  time.Now().UTC(),
	})
}

// fail writes a §7 error envelope built from an *apperr.Error's own
// Kind/Code/Detail/Field.
func fail(c *gin.Context, err *apperr.Error) {
	status := err.HTTPStatus()
	c.JSON(status, envelope{
		Status:     "error",
		StatusCode: status,
		Message:    err.Detail,
		Error: &errorBody{
			Code:   err.Code,
			Detail: err.Detail,
			Field:  err.Field,
		},
		RequestID: RequestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// failRaw writes a §7 error envelope for an error that never reached
// internal/apperr (e.g. gin's own binding failure), classifying it as
// the given kind/code so every response still matches the one envelope
// shape, even on paths internal/apperr never saw.
func failRaw(c *gin.Context, status int, code, detail string) {
	c.JSON(status, envelope{
		Status:     "error",
		StatusCode: status,
		Message:    detail,
		Error:      &errorBody{Code: code, Detail: detail},
		RequestID:  RequestID(c),
		Timestamp:  time.Now().UTC(),
	})
}

// badRequest is the common case of failRaw for a malformed request body
// or missing query parameter, kept as a helper since every handler's
// binding step needs it.
func badRequest(c *gin.Context, detail string) {
	failRaw(c, http.StatusBadRequest, "BAD_REQUEST", detail)
}
