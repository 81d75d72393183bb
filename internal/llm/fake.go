package llm

import "context"

// FakeChatProvider is a deterministic ChatProvider test double. When Err
// is set, every call returns it; otherwise Responses is consumed in FIFO
// order, and an empty string is returned once it is exhausted.
type FakeChatProvider struct {
	Responses []string
	Err       error
	Calls     []ChatRequest
}

func (p *FakeChatProvider) Complete(ctx context.Context, req ChatRequest) (string, error) {
	p.Calls = append(p.Calls, req)
	if p.Err != nil {
		return "", p.Err
	}
	if len(p.Responses) == 0 {
		return "", nil
	}
	resp := p.Responses[0]
	p.Responses = p.Responses[1:]
	return resp, nil
}

// FakeEmbeddingProvider is a deterministic EmbeddingProvider test double
// returning a fixed-dimension vector derived from the input text's length,
// so callers can assert distinct inputs embed to distinct vectors without
// pinning exact float values.
type FakeEmbeddingProvider struct {
	Dimensions int
	Err        error
	Calls      []string
}

func (p *FakeEmbeddingProvider) Embed(ctx context.Context, model, text string) ([]float32, error) {
	p.Calls = append(p.Calls, text)
	if p.Err != nil {
		return nil, p.Err
	}
	dims := p.Dimensions
	if dims == 0 {
		dims = 8
	}
	vec := make([]float32, dims)
	seed := float32(len(text) + 1)
	for i := range vec {
		vec[i] = seed / float32(i+1)
	}
	return vec, nil
}
