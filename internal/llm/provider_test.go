package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryResolvesByVendorPrefix(t *testing.T) {
	claude := &FakeChatProvider{Responses: []string{"claude reply"}}
	gpt := &FakeChatProvider{Responses: []string{"gpt reply"}}

	r := NewRegistry()
	r.RegisterChatProvider(claude, "claude")
	r.RegisterChatProvider(gpt, "gpt")

	out, err := r.Chat(context.Background(), "claude-3-5-sonnet", "sys", "usr", 100, "summary")
	require.NoError(t, err)
	assert.Equal(t, "claude reply", out)

	out, err = r.Chat(context.Background(), "gpt-4o", "sys", "usr", 100, "summary")
	require.NoError(t, err)
	assert.Equal(t, "gpt reply", out)
}

func TestRegistryChatUnregisteredVendorErrors(t *testing.T) {
	r := NewRegistry()
	r.RegisterChatProvider(&FakeChatProvider{}, "claude")

	_, err := r.Chat(context.Background(), "gemini-1.5-pro", "sys", "usr", 100, "summary")
	assert.Error(t, err)
}

func TestRegistryEmbedResolvesByPrefix(t *testing.T) {
	embedder := &FakeEmbeddingProvider{Dimensions: 4}

	r := NewRegistry()
	r.RegisterEmbeddingProvider(embedder, "text-embedding")

	vec, err := r.Embed(context.Background(), "text-embedding-3-small", "hello world")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
	assert.Equal(t, []string{"hello world"}, embedder.Calls)
}

func TestRegistryEmbedUnregisteredVendorErrors(t *testing.T) {
	r := NewRegistry()
	_, err := r.Embed(context.Background(), "text-embedding-3-small", "hello")
	assert.Error(t, err)
}

func TestRegistryPassesRequestFieldsThrough(t *testing.T) {
	chat := &FakeChatProvider{Responses: []string{"ok"}}
	r := NewRegistry()
	r.RegisterChatProvider(chat, "claude")

	_, err := r.Chat(context.Background(), "claude-3-opus", "system prompt", "user prompt", 512, "summary")
	require.NoError(t, err)

	require.Len(t, chat.Calls, 1)
	assert.Equal(t, "claude-3-opus", chat.Calls[0].Model)
	assert.Equal(t, "system prompt", chat.Calls[0].SystemPrompt)
	assert.Equal(t, "user prompt", chat.Calls[0].UserPrompt)
	assert.Equal(t, 512, chat.Calls[0].MaxTokens)
}
