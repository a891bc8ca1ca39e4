// Package llm implements ports.LLMProvider against the Anthropic Claude API.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"

	"github.com/marketsignal/newsmatch/internal/domain"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 4096
	requestsPerSec   = 4 // stays well under Anthropic's default tier-1 rate limit

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// insightSystemPrompt instructs the model to reply with a single bare JSON
// object matching domain.Insight's fields.
const insightSystemPrompt = `Extract structured information from a news article for a prediction-market matching pipeline.
Reply with a JSON object only, with exactly these fields:
entities (array of strings), events (array of strings), predictions (array of strings),
sentiment (-1 to 1), suggestedActions (array of strings), relevanceScore (0 to 1), summary (string).`

// Provider implements ports.LLMProvider over the Anthropic Messages API.
type Provider struct {
	client  anthropic.Client
	model   string
	limiter *rate.Limiter
}

// New creates a Provider. model defaults to a current Claude Sonnet model if
// empty.
func New(apiKey, model string) *Provider {
	if model == "" {
		model = defaultModel
	}
	return &Provider{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		limiter: rate.NewLimiter(requestsPerSec, 2),
	}
}

// Complete asks the model to respond to prompt under systemPrompt, returning
// the concatenated text of the reply.
func (p *Provider) Complete(ctx context.Context, prompt, systemPrompt string) (string, error) {
	return p.completeWithRetry(ctx, prompt, systemPrompt)
}

// ParseArticle asks the model to extract a structured Insight from an
// article's title and body. A malformed or unrecoverable reply is returned
// as an error so callers fall back to the keyword heuristic (spec §4.G).
func (p *Provider) ParseArticle(ctx context.Context, title, body string) (domain.Insight, error) {
	prompt := fmt.Sprintf("Title: %s\n\nBody: %s", title, truncate(body, 4000))

	raw, err := p.completeWithRetry(ctx, prompt, insightSystemPrompt)
	if err != nil {
		return domain.Insight{}, fmt.Errorf("llm.ParseArticle: %w", err)
	}

	insight, ok := recoverInsightObject(raw)
	if !ok {
		return domain.Insight{}, fmt.Errorf("llm.ParseArticle: could not recover a JSON object from the reply")
	}
	insight.ClampRanges()
	return insight, nil
}

// completeWithRetry calls the Messages API with exponential backoff on
// transport errors and overload responses, mirroring the teacher's
// doWithRetry shape.
func (p *Provider) completeWithRetry(ctx context.Context, prompt, systemPrompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: defaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("llm: rate limiter: %w", err)
		}

		resp, err := p.client.Messages.New(ctx, params)
		if err == nil {
			text := extractText(resp)
			if text == "" {
				return "", fmt.Errorf("llm: empty response from model")
			}
			return text, nil
		}

		lastErr = err
		if attempt == maxRetries {
			break
		}
		sleep(ctx, attempt)
	}
	return "", fmt.Errorf("llm: request failed after %d retries: %w", maxRetries, lastErr)
}

func extractText(resp *anthropic.Message) string {
	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

func sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// rawInsight mirrors domain.Insight's JSON shape for decoding the model's
// reply.
type rawInsight struct {
	Entities         []string `json:"entities"`
	Events           []string `json:"events"`
	Predictions      []string `json:"predictions"`
	Sentiment        float64  `json:"sentiment"`
	SuggestedActions []string `json:"suggestedActions"`
	RelevanceScore   float64  `json:"relevanceScore"`
	Summary          string   `json:"summary"`
}

// recoverInsightObject finds the first balanced {...} object in raw,
// tolerating prose or a fenced code block around it, and decodes it into a
// domain.Insight.
func recoverInsightObject(raw string) (domain.Insight, bool) {
	text := stripFences(raw)

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return domain.Insight{}, false
	}
	end := matchingBrace(text, start)
	if end < 0 {
		return domain.Insight{}, false
	}

	var ri rawInsight
	if err := json.Unmarshal([]byte(text[start:end+1]), &ri); err != nil {
		return domain.Insight{}, false
	}

	return domain.Insight{
		Entities:         ri.Entities,
		Events:           ri.Events,
		Predictions:      ri.Predictions,
		Sentiment:        ri.Sentiment,
		SuggestedActions: ri.SuggestedActions,
		RelevanceScore:   ri.RelevanceScore,
		Summary:          ri.Summary,
	}, true
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// matchingBrace walks text from start (which must hold '{') tracking string
// and escape state, returning the index of the matching '}', or -1.
func matchingBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// inside a string, only the cases above matter
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
