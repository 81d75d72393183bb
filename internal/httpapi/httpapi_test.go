package httpapi

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/the-monkeys/blogqa/internal/auth"
	"github.com/the-monkeys/blogqa/internal/content"
	"github.com/the-monkeys/blogqa/internal/publisher"
	"github.com/the-monkeys/blogqa/internal/queue"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const adminKey = "admin_test_secret"

// harness bundles the fakes every handler test needs, the same
// newHarness pattern internal/checkandload's own tests use.
type harness struct {
	pubStore *publisher.FakeStore
	content  *content.FakeStore
	queue    *queue.FakeStore
	auth     *auth.Service
	pub      *publisher.Publisher
}

func newHarness(t *testing.T, dailyLimit int) *harness {
	t.Helper()
	pubStore := publisher.NewFakeStore()
	pub := &publisher.Publisher{
		Name:          "Acme",
		PrimaryDomain: "acme.example",
		APIKey:        "pub_abc123",
		Config: publisher.Config{
			DailyBlogLimit:   dailyLimit,
			RequestThreshold: 1,
			QuestionsPerBlog: 5,
			LLMModel:         "claude-test",
		},
	}
	require.NoError(t, pubStore.Create(t.Context(), pub))

	return &harness{
		pubStore: pubStore,
		content:  content.NewFakeStore(),
		queue:    queue.NewFakeStore(),
		auth:     auth.NewService(pubStore, adminKey),
		pub:      pub,
	}
}
