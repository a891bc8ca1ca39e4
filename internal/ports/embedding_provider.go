package ports

import "context"

// EmbeddingProvider turns text into fixed-dimension vectors. A single call
// embeds a batch so callers can amortize request overhead.
type EmbeddingProvider interface {
	// Embed returns one vector per input text, in the same order. Providers
	// must not silently drop inputs: len(result) == len(texts) on success.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension is the fixed vector length this provider produces.
	Dimension() int
}
