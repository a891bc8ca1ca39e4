package domain

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// AlertPayload is what an AlertSink receives for one validated, relevant
// match (spec §4.G-alert).
type AlertPayload struct {
	NewsTitle string
	NewsURL   string

	MarketTitle string
	MarketURL   string

	ContractTitle string
	Position      Position // buy or sell, never hold
	Confidence    float64
	CurrentPrice  decimal.Decimal
	Reasoning     string
	Timestamp     time.Time
}

// AlertHistory tracks the last time an alert was sent for a market URL, used
// for process-local cooldown suppression. It is in-memory only and is lost
// on restart by design (spec §5, §9): oversending after a crash is
// preferable to missing an event.
type AlertHistory struct {
	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewAlertHistory returns an empty AlertHistory.
func NewAlertHistory() *AlertHistory {
	return &AlertHistory{lastSent: make(map[string]time.Time)}
}

// Allow reports whether an alert for marketURL may be sent at now, given
// cooldown. If allowed, it immediately records now as the last-sent time
// (single-writer: the validation worker).
func (h *AlertHistory) Allow(marketURL string, now time.Time, cooldown time.Duration) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if last, ok := h.lastSent[marketURL]; ok {
		if now.Sub(last) < cooldown {
			return false
		}
	}
	h.lastSent[marketURL] = now
	return true
}

// Insight is the structured output of LLMProvider.parseArticle (spec §4.G
// step 2).
type Insight struct {
	Entities         []string
	Events           []string
	Predictions      []string
	Sentiment        float64 // clamped to [-1, 1]
	SuggestedActions []string
	RelevanceScore   float64 // clamped to [0, 1]
	Summary          string
}

// ClampRanges constrains Sentiment to [-1,1] and RelevanceScore to [0,1].
func (in *Insight) ClampRanges() {
	if in.Sentiment < -1 {
		in.Sentiment = -1
	}
	if in.Sentiment > 1 {
		in.Sentiment = 1
	}
	in.RelevanceScore = clamp01(in.RelevanceScore)
}
