package ports

import (
	"context"

	"github.com/marketsignal/newsmatch/internal/domain"
)

// LLMProvider is the one large-language-model capability the core depends
// on. Implementations own their own rate limiting and retries (spec §5,
// §7); they must not silently truncate a response.
type LLMProvider interface {
	// Complete asks the model to respond to prompt, optionally guided by a
	// system prompt, and returns the raw text response.
	Complete(ctx context.Context, prompt, systemPrompt string) (string, error)

	// ParseArticle extracts a structured domain.Insight from an article's
	// text. Callers fall back to a keyword heuristic on error (spec §4.G
	// step 2) — ParseArticle itself should return an error rather than a
	// best-effort guess so that fallback is unambiguous.
	ParseArticle(ctx context.Context, title, body string) (domain.Insight, error)
}
