package coordinator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNewsSource_PicksWebSocketForWSScheme(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src, err := newNewsSource(ctx, "stream-feed", "ws://example.invalid/feed")
	require.NoError(t, err)
	assert.Equal(t, "stream-feed", src.Name())
}

func TestNewNewsSource_PicksHTTPForHTTPScheme(t *testing.T) {
	src, err := newNewsSource(context.Background(), "poll-feed", "https://example.invalid/feed")
	require.NoError(t, err)
	assert.Equal(t, "poll-feed", src.Name())
}

func TestNewNewsSource_ErrorsWithoutEndpoint(t *testing.T) {
	_, err := newNewsSource(context.Background(), "no-endpoint", "")
	assert.Error(t, err)
}
