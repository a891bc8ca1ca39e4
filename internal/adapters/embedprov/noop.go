package embedprov

import "context"

// NoopProvider returns zero vectors of a fixed dimension, letting the
// pipeline run end to end (matching always finds nothing) when no real
// embedding backend is configured.
type NoopProvider struct {
	dimension int
}

// NewNoop creates a NoopProvider of the given dimension.
func NewNoop(dimension int) *NoopProvider {
	return &NoopProvider{dimension: dimension}
}

// Embed returns one zero vector per input text.
func (p *NoopProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = make([]float32, p.dimension)
	}
	return vectors, nil
}

// Dimension returns the provider's fixed vector length.
func (p *NoopProvider) Dimension() int {
	return p.dimension
}
