// Package llm abstracts text-generation and embedding providers behind a
// small interface pair so the Processing Orchestrator (spec.md §4.9) never
// depends on a specific vendor SDK. spec.md §1 names "the LLM provider
// SDKs" as an external collaborator; this package is the seam.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/the-monkeys/blogqa/internal/metrics"
)

// ChatRequest is one summary/questions generation call (spec.md §4.9
// steps 3 and 5).
type ChatRequest struct {
	Model       string
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
}

// ChatProvider generates text completions.
type ChatProvider interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// EmbeddingProvider turns text into a vector embedding (spec.md §4.9
// steps 4 and 6).
type EmbeddingProvider interface {
	Embed(ctx context.Context, model, text string) ([]float32, error)
}

// Registry resolves a publisher's configured model name (spec.md §3
// Publisher.config.llm_model / embedding_model) to the adapter that
// serves it, by matching the model name's vendor prefix — the same way a
// publisher's llm_model string ("claude-...", "gemini-...", "gpt-...")
// names a specific vendor without the caller needing to know the binding.
type Registry struct {
	chatProviders      map[string]ChatProvider
	embeddingProviders map[string]EmbeddingProvider
}

// NewRegistry builds a Registry. Any of the provider maps may omit a
// vendor if its API key was not configured; resolution then fails with a
// descriptive error instead of a nil-pointer panic.
func NewRegistry() *Registry {
	return &Registry{
		chatProviders:      make(map[string]ChatProvider),
		embeddingProviders: make(map[string]EmbeddingProvider),
	}
}

// RegisterChatProvider binds provider to every model-name prefix in
// prefixes (e.g. "claude", "gpt", "gemini").
func (r *Registry) RegisterChatProvider(provider ChatProvider, prefixes ...string) {
	for _, p := range prefixes {
		r.chatProviders[p] = provider
	}
}

// RegisterEmbeddingProvider binds provider to every model-name prefix in
// prefixes (e.g. "text-embedding", "embed-").
func (r *Registry) RegisterEmbeddingProvider(provider EmbeddingProvider, prefixes ...string) {
	for _, p := range prefixes {
		r.embeddingProviders[p] = provider
	}
}

// Chat resolves and invokes the ChatProvider for model, timing the call
// for the llm_call_duration_seconds histogram (SPEC_FULL.md §4.14). kind
// distinguishes a summary call from a questions call for that metric's
// label, the only thing the orchestrator knows that this package can't
// infer from model alone.
func (r *Registry) Chat(ctx context.Context, model, systemPrompt, userPrompt string, maxTokens int, kind string) (string, error) {
	provider, vendor, err := r.resolveChat(model)
	if err != nil {
		return "", err
	}
	start := time.Now()
	resp, err := provider.Complete(ctx, ChatRequest{Model: model, SystemPrompt: systemPrompt, UserPrompt: userPrompt, MaxTokens: maxTokens})
	metrics.LLMCallDurationSeconds.WithLabelValues(vendor, kind).Observe(time.Since(start).Seconds())
	return resp, err
}

// Embed resolves and invokes the EmbeddingProvider for model.
func (r *Registry) Embed(ctx context.Context, model, text string) ([]float32, error) {
	provider, vendor, err := r.resolveEmbedding(model)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	emb, err := provider.Embed(ctx, model, text)
	metrics.LLMCallDurationSeconds.WithLabelValues(vendor, "embedding").Observe(time.Since(start).Seconds())
	return emb, err
}

func (r *Registry) resolveChat(model string) (ChatProvider, string, error) {
	for prefix, provider := range r.chatProviders {
		if strings.HasPrefix(model, prefix) {
			return provider, prefix, nil
		}
	}
	return nil, "", fmt.Errorf("llm: no chat provider registered for model %q", model)
}

func (r *Registry) resolveEmbedding(model string) (EmbeddingProvider, string, error) {
	for prefix, provider := range r.embeddingProviders {
		if strings.HasPrefix(model, prefix) {
			return provider, prefix, nil
		}
	}
	return nil, "", fmt.Errorf("llm: no embedding provider registered for model %q", model)
}
