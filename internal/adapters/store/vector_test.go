package store

import (
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeVector_RoundTrip(t *testing.T) {
	in := []float32{0.1, -0.2, 0.3}
	encoded := encodeVector(in)
	vec, ok := encoded.(*pgvector.Vector)
	if assert.True(t, ok) {
		assert.Equal(t, in, decodeVector(vec))
	}
}

func TestEncodeVector_EmptyIsNil(t *testing.T) {
	assert.Nil(t, encodeVector(nil))
	assert.Nil(t, encodeVector([]float32{}))
}

func TestDecodeVector_NilIsNil(t *testing.T) {
	assert.Nil(t, decodeVector(nil))
}
