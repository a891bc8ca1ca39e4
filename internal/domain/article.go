// Package domain holds the pipeline's state-bearing entities. Types here are
// pure data — no behavior beyond small invariant-preserving helpers. Mutation
// rules (who may set which field) live with the workers in internal/*, not
// here.
package domain

import "time"

// ArticleStatus is the position of an Article on the processing ladder.
type ArticleStatus string

const (
	ArticleStatusPending   ArticleStatus = "PENDING"
	ArticleStatusEmbedded  ArticleStatus = "EMBEDDED"
	ArticleStatusMatched   ArticleStatus = "MATCHED"
	ArticleStatusValidated ArticleStatus = "VALIDATED"
	ArticleStatusFailed    ArticleStatus = "FAILED"
)

// Article is a news item moving through PENDING -> EMBEDDED -> MATCHED ->
// VALIDATED, or sideways to FAILED at any point.
type Article struct {
	ID         string
	ExternalID string
	Source     string

	Title     string
	Content   string
	Summary   string
	URL       string
	Author    string

	PublishedAt time.Time
	Tags        []string
	Metadata    map[string]string

	Status ArticleStatus

	Embedding []float32

	FetchedAt   time.Time
	EmbeddedAt  *time.Time
	MatchedAt   *time.Time
	ValidatedAt *time.Time

	ErrorMessage string
}

// NewsItem is what a NewsSource capability returns for one article before it
// has been assigned a surrogate ID or inserted.
type NewsItem struct {
	ID          string // external ID, stable and unique within Source
	Source      string
	Title       string
	Content     string
	Summary     string
	URL         string
	Author      string
	PublishedAt time.Time
	Tags        []string
	Metadata    map[string]string
}

// EmbeddingText builds the text EmbeddingProvider.embed is called with for
// this article, per the algorithm in spec §4.E step 2: title, blank line,
// summary (or the first 500 chars of content), blank line, a "Tags: ..."
// line when tags are present.
func (a Article) EmbeddingText() string {
	body := a.Summary
	if body == "" {
		body = a.Content
		if len(body) > 500 {
			body = body[:500]
		}
	}

	text := a.Title + "\n\n" + body
	if len(a.Tags) > 0 {
		text += "\n\nTags: " + joinTags(a.Tags)
	}
	return text
}

func joinTags(tags []string) string {
	out := ""
	for i, t := range tags {
		if i > 0 {
			out += ", "
		}
		out += t
	}
	return out
}
