package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/the-monkeys/blogqa/constants"
	"github.com/the-monkeys/blogqa/internal/content"
	"github.com/the-monkeys/blogqa/internal/crawler"
	"github.com/the-monkeys/blogqa/internal/llm"
	"github.com/the-monkeys/blogqa/internal/publisher"
)

type fakeExtractor struct{}

func (fakeExtractor) Extract(rawHTML, sourceURL string) (*crawler.Result, error) {
	return &crawler.Result{
		Title:     "A Title",
		Author:    "An Author",
		Text:      rawHTML,
		Language:  "en",
		WordCount: 50,
	}, nil
}

func newTestPublisher() *publisher.Publisher {
	return &publisher.Publisher{
		ID:            1,
		PrimaryDomain: "example.com",
		Config: publisher.Config{
			LLMModel:         "fake-chat",
			EmbeddingModel:   "fake-embed",
			QuestionsPerBlog: 2,
		},
	}
}

func newRegistry(chat *llm.FakeChatProvider, embed *llm.FakeEmbeddingProvider) *llm.Registry {
	reg := llm.NewRegistry()
	reg.RegisterChatProvider(chat, "fake-chat")
	reg.RegisterEmbeddingProvider(embed, "fake-embed")
	return reg
}

func TestRunHappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>this is a sufficiently long page body for the minimum content length check to pass without any trouble at all, repeated once more to make sure the word count and character count comfortably exceed the two hundred character minimum threshold enforced by the crawler package.</html>`))
	}))
	defer srv.Close()

	chat := &llm.FakeChatProvider{Responses: []string{
		`{"summary": "a good summary", "key_points": ["a", "b"]}`,
		`[{"question":"q1","answer":"a1"},{"question":"q2","answer":"a2"}]`,
	}}
	embed := &llm.FakeEmbeddingProvider{Dimensions: 4}

	o := New(crawler.New(5*time.Second, fakeExtractor{}), newRegistry(chat, embed), content.NewFakeStore())
	outcome, err := o.Run(context.Background(), srv.URL, newTestPublisher())
	require.NoError(t, err)
	assert.Equal(t, "A Title", outcome.BlogTitle)
	assert.Equal(t, 2, outcome.QuestionCount)
	assert.Equal(t, 3, outcome.EmbeddingCount)

	store := o.content.(*content.FakeStore)
	blog, err := store.GetBlog(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "A Title", blog.Title)

	questions, err := store.GetQuestions(context.Background(), srv.URL, 0)
	require.NoError(t, err)
	require.Len(t, questions, 2)
}

func TestRunClassifiesCrawlClientErrorAsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	o := New(crawler.New(5*time.Second, fakeExtractor{}), newRegistry(&llm.FakeChatProvider{}, &llm.FakeEmbeddingProvider{}), content.NewFakeStore())
	_, err := o.Run(context.Background(), srv.URL, newTestPublisher())
	require.Error(t, err)

	var orchErr *Error
	require.True(t, errors.As(err, &orchErr))
	assert.Equal(t, constants.ErrorTypeCrawlClientError, orchErr.ErrorType)
	assert.False(t, orchErr.Retryable)
}

func TestRunClassifiesCrawlServerErrorAsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	o := New(crawler.New(5*time.Second, fakeExtractor{}), newRegistry(&llm.FakeChatProvider{}, &llm.FakeEmbeddingProvider{}), content.NewFakeStore())
	_, err := o.Run(context.Background(), srv.URL, newTestPublisher())
	require.Error(t, err)

	var orchErr *Error
	require.True(t, errors.As(err, &orchErr))
	assert.Equal(t, constants.ErrorTypeCrawlServerError, orchErr.ErrorType)
	assert.True(t, orchErr.Retryable)
}

func TestRunClassifiesMalformedSummaryJSONAsRetryableParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>this is a sufficiently long page body for the minimum content length check to pass without any trouble at all, repeated once more to make sure the word count and character count comfortably exceed the two hundred character minimum threshold enforced by the crawler package.</html>`))
	}))
	defer srv.Close()

	chat := &llm.FakeChatProvider{Responses: []string{`not json`}}
	embed := &llm.FakeEmbeddingProvider{Dimensions: 4}

	o := New(crawler.New(5*time.Second, fakeExtractor{}), newRegistry(chat, embed), content.NewFakeStore())
	_, err := o.Run(context.Background(), srv.URL, newTestPublisher())
	require.Error(t, err)

	var orchErr *Error
	require.True(t, errors.As(err, &orchErr))
	assert.Equal(t, constants.ErrorTypeLLMParseError, orchErr.ErrorType)
	assert.True(t, orchErr.Retryable)
}

func TestRunClassifiesChatProviderFailureAsLLMUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>this is a sufficiently long page body for the minimum content length check to pass without any trouble at all, repeated once more to make sure the word count and character count comfortably exceed the two hundred character minimum threshold enforced by the crawler package.</html>`))
	}))
	defer srv.Close()

	chat := &llm.FakeChatProvider{Err: errors.New("provider unavailable")}
	embed := &llm.FakeEmbeddingProvider{Dimensions: 4}

	o := New(crawler.New(5*time.Second, fakeExtractor{}), newRegistry(chat, embed), content.NewFakeStore())
	_, err := o.Run(context.Background(), srv.URL, newTestPublisher())
	require.Error(t, err)

	var orchErr *Error
	require.True(t, errors.As(err, &orchErr))
	assert.Equal(t, constants.ErrorTypeLLMUpstream, orchErr.ErrorType)
	assert.True(t, orchErr.Retryable)
}
