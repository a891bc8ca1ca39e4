// Package ingest implements NewsIngestor (spec §4.C): one LoopRunner per
// configured news source, polling, deduping, and inserting PENDING
// articles.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/marketsignal/newsmatch/internal/domain"
	"github.com/marketsignal/newsmatch/internal/loop"
	"github.com/marketsignal/newsmatch/internal/ports"
)

// Store is the narrow slice of ports.Store that NewsIngestor needs.
// ports.Store satisfies this structurally.
type Store interface {
	InsertArticleIfAbsent(ctx context.Context, a domain.Article) (inserted bool, err error)
}

// Ingestor polls a single NewsSource and writes PENDING articles to Store.
type Ingestor struct {
	source ports.NewsSource
	store  Store
}

// New creates an Ingestor for one source.
func New(source ports.NewsSource, store Store) *Ingestor {
	return &Ingestor{source: source, store: store}
}

// Runner wraps RunOnce in a loop.Runner using the news-ingestion backoff
// curve (spec §4.B).
func (ig *Ingestor) Runner() *loop.Runner {
	return loop.New("ingest."+ig.source.Name(), loop.NewsIngestConfig(), ig.RunOnce)
}

// RunOnce fetches the latest items, inserts any unseen externalId as a
// PENDING article, and reports Worked iff at least one row was inserted
// (spec §4.C step 4). A fetch-wide error is returned so the loop backs off;
// per-item errors are logged and skipped.
func (ig *Ingestor) RunOnce(ctx context.Context) (loop.Outcome, error) {
	items, err := ig.source.FetchLatest(ctx)
	if err != nil {
		return loop.Idle, fmt.Errorf("ingest.%s: fetch latest: %w", ig.source.Name(), err)
	}

	inserted := 0
	for _, item := range items {
		ok, err := ig.insertOne(ctx, item)
		if err != nil {
			slog.Error("ingest: item failed", "source", ig.source.Name(), "external_id", item.ID, "err", err)
			continue
		}
		if ok {
			inserted++
		}
	}

	slog.Info("news.fetched", "source", ig.source.Name(), "fetched", len(items), "inserted", inserted)

	if inserted > 0 {
		return loop.Worked, nil
	}
	return loop.Idle, nil
}

// insertOne maps one NewsItem to an Article and inserts it if no article
// with this externalId exists yet (spec §4.C step 2-3: duplicates within a
// single fetch, or across fetches, are tolerated silently).
func (ig *Ingestor) insertOne(ctx context.Context, item domain.NewsItem) (bool, error) {
	publishedAt := item.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = time.Now().UTC()
	}

	a := domain.Article{
		ID:          uuid.NewString(),
		ExternalID:  item.ID,
		Source:      item.Source,
		Title:       item.Title,
		Content:     item.Content,
		Summary:     item.Summary,
		URL:         item.URL,
		Author:      item.Author,
		PublishedAt: publishedAt,
		Tags:        item.Tags,
		Metadata:    item.Metadata,
		Status:      domain.ArticleStatusPending,
		FetchedAt:   time.Now().UTC(),
	}

	return ig.store.InsertArticleIfAbsent(ctx, a)
}
