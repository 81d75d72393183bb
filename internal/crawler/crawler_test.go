package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	result *Result
	err    error
}

func (f fakeExtractor) Extract(string, string) (*Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "blogqa-crawler")
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	extractor := fakeExtractor{result: &Result{Text: strings.Repeat("word ", 60), Title: "T"}}
	c := New(5*time.Second, extractor)

	result, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "T", result.Title)
}

func TestFetchClassifiesClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(5*time.Second, fakeExtractor{})
	_, err := c.Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var crawlErr *Error
	require.True(t, errors.As(err, &crawlErr))
	assert.Equal(t, ErrorKindClientError, crawlErr.Kind)
}

func TestFetchClassifiesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(5*time.Second, fakeExtractor{})
	_, err := c.Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var crawlErr *Error
	require.True(t, errors.As(err, &crawlErr))
	assert.Equal(t, ErrorKindServerError, crawlErr.Kind)
}

func TestFetchClassifiesEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	c := New(5*time.Second, fakeExtractor{result: &Result{Text: "too short"}})
	_, err := c.Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var crawlErr *Error
	require.True(t, errors.As(err, &crawlErr))
	assert.Equal(t, ErrorKindEmpty, crawlErr.Kind)
}

func TestFetchClassifiesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(1*time.Millisecond, fakeExtractor{})
	_, err := c.Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var crawlErr *Error
	require.True(t, errors.As(err, &crawlErr))
	assert.Equal(t, ErrorKindTimeout, crawlErr.Kind)
}
