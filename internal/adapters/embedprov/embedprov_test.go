package embedprov

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopProvider_ReturnsZeroVectorsOfFixedDimension(t *testing.T) {
	p := NewNoop(8)
	vectors, err := p.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for _, v := range vectors {
		assert.Len(t, v, 8)
	}
	assert.Equal(t, 8, p.Dimension())
}

func TestNoopProvider_EmptyInput(t *testing.T) {
	p := NewNoop(4)
	vectors, err := p.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestFactory_UnknownProviderFallsBackToNoop(t *testing.T) {
	p := New("not-a-real-provider", "", "", 16)
	_, ok := p.(*NoopProvider)
	assert.True(t, ok)
}
