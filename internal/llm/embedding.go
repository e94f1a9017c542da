package llm

import (
	"context"
	"time"

	"github.com/philippgille/chromem-go"

	"docqa/internal/ratelimit"
)

// NewEmbeddingFunc returns an OpenAI-compatible embedding function that waits
// on limiter and gives every call its own timeout.
func NewEmbeddingFunc(baseURL, apiKey, model string, timeout time.Duration, limiter *ratelimit.Limiter) chromem.EmbeddingFunc {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = string(chromem.EmbeddingModelOpenAI3Small)
	}
	// OpenAI embeddings are normalized already.
	normalized := baseURL == DefaultBaseURL
	embed := chromem.NewEmbeddingFuncOpenAICompat(baseURL, apiKey, model, &normalized)

	return WithTimeout(embed, timeout, limiter)
}

// WithTimeout wraps an embedding function with rate limiting and a per-call timeout.
func WithTimeout(embed chromem.EmbeddingFunc, timeout time.Duration, limiter *ratelimit.Limiter) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return embed(ctx, text)
	}
}
