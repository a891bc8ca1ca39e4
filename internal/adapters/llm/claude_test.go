package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverInsightObject_PlainObject(t *testing.T) {
	raw := `{"entities":["Fed","BTC"],"events":["rate cut"],"sentiment":0.4,"relevanceScore":0.8,"summary":"rates fall"}`
	insight, ok := recoverInsightObject(raw)
	require.True(t, ok)
	assert.Equal(t, []string{"Fed", "BTC"}, insight.Entities)
	assert.Equal(t, 0.4, insight.Sentiment)
}

func TestRecoverInsightObject_FencedAndProse(t *testing.T) {
	raw := "Sure, here's the analysis:\n```json\n{\"entities\":[\"OPEC\"],\"sentiment\":-0.2,\"relevanceScore\":0.5}\n```\nlet me know if you need more."
	insight, ok := recoverInsightObject(raw)
	require.True(t, ok)
	assert.Equal(t, []string{"OPEC"}, insight.Entities)
	assert.Equal(t, -0.2, insight.Sentiment)
}

func TestRecoverInsightObject_BraceInsideString(t *testing.T) {
	raw := `{"entities":["Fed"],"summary":"the {rate} stayed flat","sentiment":0,"relevanceScore":0.1}`
	insight, ok := recoverInsightObject(raw)
	require.True(t, ok)
	assert.Contains(t, insight.Summary, "{rate}")
}

func TestRecoverInsightObject_NoBraceAtAll(t *testing.T) {
	_, ok := recoverInsightObject("I cannot answer that.")
	assert.False(t, ok)
}
