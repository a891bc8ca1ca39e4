package validation

import (
	"strings"

	"github.com/marketsignal/newsmatch/internal/domain"
)

// positiveWords and negativeWords back the keyword sentiment heuristic used
// when LLMProvider.ParseArticle fails (spec §4.G step 2).
var positiveWords = []string{
	"surge", "rally", "growth", "gain", "win", "record", "boost", "strong",
	"rises", "rose", "rise", "beat", "beats", "optimism", "recovery", "upgrade",
}

var negativeWords = []string{
	"crash", "plunge", "decline", "loss", "recession", "fear", "fears", "weak",
	"falls", "fell", "fall", "miss", "misses", "downgrade", "crisis", "default",
	"cut", "cuts",
}

// keywordInsight produces a conservative domain.Insight from title+body
// alone, used when the LLM's ParseArticle call fails. Sentiment is derived
// by counting positive vs. negative word hits; everything else is left
// empty (spec §4.G step 2: "empty structured lists").
func keywordInsight(title, body string) domain.Insight {
	text := strings.ToLower(title + " " + body)

	pos := countHits(text, positiveWords)
	neg := countHits(text, negativeWords)

	total := pos + neg
	sentiment := 0.0
	if total > 0 {
		sentiment = float64(pos-neg) / float64(total)
	}

	insight := domain.Insight{Sentiment: sentiment}
	insight.ClampRanges()
	return insight
}

func countHits(text string, words []string) int {
	n := 0
	for _, w := range words {
		n += strings.Count(text, w)
	}
	return n
}

// keywordValidate is the last-resort per-contract fallback (spec §4.G step
// 4): count how many of the insight's matched entity names and event words
// of length >= 4 appear in the contract's title, and derive a conservative
// relevance/confidence/position from the hit count.
func keywordValidate(contractID, contractTitle string, insight domain.Insight) domain.ValidationResult {
	title := strings.ToLower(contractTitle)

	hits := 0
	for _, e := range insight.Entities {
		if e == "" {
			continue
		}
		if strings.Contains(title, strings.ToLower(e)) {
			hits++
		}
	}
	for _, word := range eventWords(insight.Events) {
		if len(word) >= 4 && strings.Contains(title, word) {
			hits++
		}
	}

	result := domain.ValidationResult{
		ContractID: contractID,
		Reasoning:  "keyword fallback: matched entity/event words in contract title",
	}

	if hits == 0 {
		result.IsRelevant = false
		result.SuggestedPosition = domain.PositionHold
		result.Clamp()
		return result
	}

	result.IsRelevant = true
	result.RelevanceScore = float64(hits) / float64(hits+2)
	result.Confidence = result.RelevanceScore * 0.5 // keyword confidence never exceeds an LLM call's
	if insight.Sentiment > 0 {
		result.SuggestedPosition = domain.PositionBuy
	} else if insight.Sentiment < 0 {
		result.SuggestedPosition = domain.PositionSell
	} else {
		result.SuggestedPosition = domain.PositionHold
	}
	result.Clamp()
	return result
}

func eventWords(events []string) []string {
	var words []string
	for _, e := range events {
		for _, w := range strings.Fields(strings.ToLower(e)) {
			words = append(words, w)
		}
	}
	return words
}
