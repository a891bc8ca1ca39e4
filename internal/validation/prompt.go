package validation

import (
	"fmt"
	"strings"

	"github.com/marketsignal/newsmatch/internal/domain"
)

// validationSystemPrompt instructs the model on the exact reply contract:
// a bare JSON array, one object per contract (spec §4.G step 3).
const validationSystemPrompt = `You evaluate whether a news article is actionable for prediction-market contracts.
Reply with a JSON array only, one object per contract, each with exactly these fields:
contractId, isRelevant, relevanceScore (0-1), matchedEntities, matchedEvents, reasoning, suggestedPosition ("buy","sell", or "hold"), confidence (0-1), risks, opportunities.`

// buildChunkPrompt renders the article, its parsed insight, and up to
// ChunkSize candidate contracts into one validation request.
func buildChunkPrompt(a domain.Article, insight domain.Insight, chunk []domain.CandidateMatch) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Article: %s\n", a.Title)
	if a.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", a.Summary)
	}
	fmt.Fprintf(&b, "Entities: %s\n", strings.Join(insight.Entities, ", "))
	fmt.Fprintf(&b, "Events: %s\n", strings.Join(insight.Events, ", "))
	fmt.Fprintf(&b, "Sentiment: %.2f\n\n", insight.Sentiment)

	b.WriteString("Contracts:\n")
	for _, c := range chunk {
		fmt.Fprintf(&b, "- contractId=%q title=%q market=%q yesPrice=%s noPrice=%s similarity=%.3f\n",
			c.Contract.ContractTicker, c.Contract.Title, c.Market.Title,
			c.Contract.YesPrice.String(), c.Contract.NoPrice.String(), c.Match.Similarity)
	}

	return b.String()
}
