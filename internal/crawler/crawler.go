// Package crawler fetches a blog URL and extracts its readable content
// (spec.md §4.9 step 1). The HTML extraction library itself is named an
// external collaborator by spec.md §1 ("only their interfaces are
// specified in §6"), so this package exposes a small Extractor interface
// and a goquery-backed implementation behind it.
package crawler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/the-monkeys/blogqa/constants"
)

const userAgent = "Mozilla/5.0 (compatible; blogqa-crawler/1.0; +https://blogqa.example.com/bot)"

// Result is the extracted content of one crawl (spec.md §3 Blog fields).
type Result struct {
	Title     string
	Author    string
	Text      string
	Language  string
	WordCount int
}

// ErrorKind classifies a crawl failure for the orchestrator's
// retry-vs-fail decision (spec.md §4.9, §7).
type ErrorKind string

const (
	ErrorKindEmpty       ErrorKind = constants.ErrorTypeCrawlEmpty
	ErrorKindClientError ErrorKind = constants.ErrorTypeCrawlClientError
	ErrorKindServerError ErrorKind = constants.ErrorTypeCrawlServerError
	ErrorKindNetwork     ErrorKind = constants.ErrorTypeCrawlNetwork
	ErrorKindTimeout     ErrorKind = constants.ErrorTypeCrawlTimeout
)

// Error wraps a crawl failure with its classification.
type Error struct {
	Kind  ErrorKind
	cause error
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.cause.Error() }
func (e *Error) Unwrap() error { return e.cause }

func newError(kind ErrorKind, cause error) *Error { return &Error{Kind: kind, cause: cause} }

// minContentLength is the below-which-is-CRAWL_EMPTY threshold (spec.md
// §4.9 step 1: "Empty or below-minimum content is a retryable failure").
const minContentLength = 200

// Extractor turns raw HTML into a Result. It is the externally-specified
// collaborator spec.md §1 calls out; Crawler depends on the interface, not
// a concrete library, so the extraction strategy can be swapped without
// touching the orchestrator.
type Extractor interface {
	Extract(rawHTML, sourceURL string) (*Result, error)
}

// Crawler fetches a URL with a browser-like user agent and a per-call
// timeout, then hands the body to an Extractor (spec.md §4.9 step 1,
// §5 "HTTP requests have per-call timeouts").
type Crawler struct {
	client    *http.Client
	extractor Extractor
}

// New builds a Crawler with the given timeout and extraction strategy.
func New(timeout time.Duration, extractor Extractor) *Crawler {
	return &Crawler{
		client:    &http.Client{Timeout: timeout},
		extractor: extractor,
	}
}

// Fetch retrieves url and extracts its content, classifying any failure
// per spec.md §4.9/§7 so the orchestrator can decide retry vs. fail.
func (c *Crawler) Fetch(ctx context.Context, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, newError(ErrorKindNetwork, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.client.Do(req)
	if err != nil {
		var timeoutErr interface{ Timeout() bool }
		if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
			return nil, newError(ErrorKindTimeout, err)
		}
		return nil, newError(ErrorKindNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 500:
		return nil, newError(ErrorKindServerError, httpStatusError(resp.StatusCode))
	case resp.StatusCode >= 400:
		return nil, newError(ErrorKindClientError, httpStatusError(resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(ErrorKindNetwork, err)
	}

	result, err := c.extractor.Extract(string(body), url)
	if err != nil {
		return nil, newError(ErrorKindEmpty, err)
	}
	if len(result.Text) < minContentLength {
		return nil, newError(ErrorKindEmpty, errEmptyContent)
	}

	return result, nil
}

type httpStatusErr struct{ status int }

func (e httpStatusErr) Error() string { return http.StatusText(e.status) }

func httpStatusError(status int) error { return httpStatusErr{status: status} }

type emptyContentErr struct{}

func (emptyContentErr) Error() string { return "crawl: extracted content below minimum length" }

var errEmptyContent = emptyContentErr{}
