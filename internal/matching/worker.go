// Package matching implements MatchingWorker (spec §4.F): turning EMBEDDED
// articles into MATCHED ones by finding candidate markets via vector
// similarity search.
package matching

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

// Store is the narrow slice of ports.Store MatchingWorker needs.
type Store interface {
	ClaimEmbeddedArticles(ctx context.Context, limit int) ([]domain.Article, error)
	TopKMarkets(ctx context.Context, query []float32, topN int, minSimilarity float64, activeOnly bool) ([]ports.SimilarityResult, error)
	InsertMatchIfAbsent(ctx context.Context, m domain.Match) (inserted bool, err error)
	SetArticleMatched(ctx context.Context, articleID string, at time.Time) error
	SetArticleFailed(ctx context.Context, articleID string, reason string) error
}

// Worker runs similarity search for EMBEDDED articles and records Match rows.
type Worker struct {
	store         Store
	batchSize     int
	topN          int
	minSimilarity float64
}

// New creates a Worker. batchSize, topN and minSimilarity default to the
// spec's values (5, 20, 0.3) when non-positive / zero is passed.
func New(store Store, batchSize, topN int, minSimilarity float64) *Worker {
	if batchSize <= 0 {
		batchSize = 5
	}
	if topN <= 0 {
		topN = 20
	}
	if minSimilarity <= 0 {
		minSimilarity = 0.3
	}
	return &Worker{store: store, batchSize: batchSize, topN: topN, minSimilarity: minSimilarity}
}

// Runner wraps RunOnce in a loop.Runner using the worker backoff curve
// (spec §4.B).
func (w *Worker) Runner() *loop.Runner {
	return loop.New("matching", loop.WorkerConfig(), w.RunOnce)
}

// RunOnce claims up to batchSize EMBEDDED articles, oldest embeddedAt first,
// and for each runs a top-K similarity search against active markets,
// recording a Match row per hit. An article with zero matches still
// advances to MATCHED: having no candidate markets is a valid outcome, not
// a failure (spec §4.F step 4, §8).
func (w *Worker) RunOnce(ctx context.Context) (loop.Outcome, error) {
	batch, err := w.store.ClaimEmbeddedArticles(ctx, w.batchSize)
	if err != nil {
		return loop.Idle, fmt.Errorf("matching: claim embedded: %w", err)
	}
	if len(batch) == 0 {
		return loop.Idle, nil
	}

	for _, a := range batch {
		if err := w.matchOne(ctx, a); err != nil {
			slog.Error("matching: article failed", "article_id", a.ID, "err", err)
			if failErr := w.store.SetArticleFailed(ctx, a.ID, fmt.Sprintf("Matching failed: %s", err)); failErr != nil {
				slog.Error("matching: mark failed failed", "article_id", a.ID, "err", failErr)
			}
		}
	}

	slog.Info("matching.batch", "claimed", len(batch))
	return loop.Worked, nil
}

func (w *Worker) matchOne(ctx context.Context, a domain.Article) error {
	results, err := w.store.TopKMarkets(ctx, a.Embedding, w.topN, w.minSimilarity, true)
	if err != nil {
		return fmt.Errorf("top-k search: %w", err)
	}

	for _, r := range results {
		match := domain.Match{
			ID:            uuid.NewString(),
			NewsArticleID: a.ID,
			MarketID:      r.Market.ID,
			Similarity:    r.Similarity,
		}
		if _, err := w.store.InsertMatchIfAbsent(ctx, match); err != nil {
			// Duplicate (articleId, marketId) pairs are expected across
			// cycles and ignored by the store; any other error is logged
			// but does not fail the whole article (spec §8: matching is
			// idempotent, a partial insert failure should not regress an
			// already-claimed article to FAILED).
			slog.Error("matching: insert match failed", "article_id", a.ID, "market_id", r.Market.ID, "err", err)
		}
	}

	return w.store.SetArticleMatched(ctx, a.ID, time.Now().UTC())
}
