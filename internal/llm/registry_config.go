package llm

import (
	"context"

	"go.uber.org/zap"

	"github.com/the-monkeys/blogqa/config"
)

// NewRegistryFromConfig wires a Registry with every vendor adapter whose
// API key is configured (SPEC_FULL.md §4.12 environment variables),
// shared between the blogqa-api and blogqa-worker entry points so the
// vendor-to-prefix binding lives in one place. A publisher whose
// configured model has no matching provider fails at request time with
// Registry's own "no provider registered" error rather than failing the
// whole process at startup — an unconfigured vendor is a partial
// deployment, not a fatal misconfiguration.
func NewRegistryFromConfig(ctx context.Context, keys config.LLMKeys, log *zap.SugaredLogger) *Registry {
	registry := NewRegistry()

	if keys.AnthropicAPIKey != "" {
		provider := NewAnthropicProvider(keys.AnthropicAPIKey)
		registry.RegisterChatProvider(provider, "claude")
	}
	if keys.OpenAIAPIKey != "" {
		provider := NewOpenAIProvider(keys.OpenAIAPIKey)
		registry.RegisterChatProvider(provider, "gpt")
		registry.RegisterEmbeddingProvider(provider, "text-embedding")
	}
	if keys.GeminiAPIKey != "" {
		provider, err := NewGeminiProvider(ctx, keys.GeminiAPIKey)
		if err != nil {
			log.Warnw("cannot build gemini provider, gemini-backed publishers will fail requests", "error", err)
		} else {
			registry.RegisterChatProvider(provider, "gemini")
			registry.RegisterEmbeddingProvider(provider, "embedding")
		}
	}

	return registry
}
