package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider adapts google/generative-ai-go to both the ChatProvider
// and EmbeddingProvider interfaces, for publisher configurations naming a
// "gemini-*" model.
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider builds a combined chat/embedding provider backed by
// the Gemini API. The returned provider owns the client and should be
// closed via Close when the process shuts down.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

// Close releases the underlying gRPC connection.
func (p *GeminiProvider) Close() error { return p.client.Close() }

func (p *GeminiProvider) Complete(ctx context.Context, req ChatRequest) (string, error) {
	model := p.client.GenerativeModel(req.Model)
	model.SystemInstruction = genai.NewUserContent(genai.Text(req.SystemPrompt))
	if req.MaxTokens > 0 {
		maxTokens := int32(req.MaxTokens)
		model.MaxOutputTokens = &maxTokens
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.UserPrompt))
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: empty response candidates")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", errors.New("gemini: unexpected response part type")
	}
	return string(text), nil
}

func (p *GeminiProvider) Embed(ctx context.Context, model, text string) ([]float32, error) {
	em := p.client.EmbeddingModel(model)
	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	if resp.Embedding == nil {
		return nil, errors.New("gemini: empty embedding response")
	}
	return resp.Embedding.Values, nil
}
