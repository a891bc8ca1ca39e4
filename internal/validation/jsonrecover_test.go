package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverJSONArray_PlainArray(t *testing.T) {
	raw := `[{"contractId":"C1","isRelevant":true},{"contractId":"C2","isRelevant":false}]`
	results, ok := recoverJSONArray(raw)
	require.True(t, ok)
	require.Len(t, results, 2)
	assert.Equal(t, "C1", results[0].ContractID)
}

func TestRecoverJSONArray_EmbeddedInProse(t *testing.T) {
	raw := "Here you go:\n[ {\"contractId\":\"C1\",\"isRelevant\":true}, {\"contractId\":\"C2\",\"isRelevant\":false} ]\nthanks"
	results, ok := recoverJSONArray(raw)
	require.True(t, ok)
	require.Len(t, results, 2)
	assert.Equal(t, "C1", results[0].ContractID)
	assert.Equal(t, "C2", results[1].ContractID)
}

func TestRecoverJSONArray_FencedCodeBlock(t *testing.T) {
	raw := "```json\n[{\"contractId\":\"C1\"}]\n```"
	results, ok := recoverJSONArray(raw)
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.Equal(t, "C1", results[0].ContractID)
}

func TestRecoverJSONArray_BracketInsideString(t *testing.T) {
	raw := `[{"contractId":"C1","reasoning":"price range [10, 20] widened"}]`
	results, ok := recoverJSONArray(raw)
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Reasoning, "[10, 20]")
}

func TestRecoverJSONArray_NotAnArray(t *testing.T) {
	_, ok := recoverJSONArray(`{"contractId":"C1"}`)
	assert.False(t, ok)
}

func TestRecoverJSONArray_NoBracketAtAll(t *testing.T) {
	_, ok := recoverJSONArray("I cannot process this request.")
	assert.False(t, ok)
}
