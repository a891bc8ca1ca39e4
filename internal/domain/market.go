package domain

import "time"

// Market is a tradeable event on a platform, grouping one or more Contracts.
// Its title is derived deterministically from the contracts grouped into it
// at sync time (see internal/marketsync).
type Market struct {
	ID          string
	Platform    string
	EventTicker string

	SeriesTicker string
	Title        string
	URL          string
	Category     string
	EndDate      *time.Time

	IsActive     bool
	LastSyncedAt time.Time

	Embedding          []float32
	EmbeddingUpdatedAt *time.Time
}

// EmbeddingText builds the text a market is embedded with, per spec §4.D:
// "<title>" optionally followed by ". Category: <category>".
func (m Market) EmbeddingText() string {
	text := m.Title
	if m.Category != "" {
		text += ". Category: " + m.Category
	}
	return text
}

// NeedsEmbedding reports whether this market should be (re-)embedded: no
// embedding yet, or its title changed more recently than the embedding was
// computed. Markets are never re-embedded on a schedule (spec §9).
func (m Market) NeedsEmbedding(titleChanged bool) bool {
	if len(m.Embedding) == 0 {
		return true
	}
	return titleChanged
}
