// Package embedding implements EmbeddingWorker (spec §4.E): turning PENDING
// articles into EMBEDDED ones, and opportunistically embedding markets that
// MarketSyncer flagged as needing it.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/marketsignal/newsmatch/internal/domain"
	"github.com/marketsignal/newsmatch/internal/loop"
	"github.com/marketsignal/newsmatch/internal/ports"
)

// ArticleStore is the narrow slice of ports.Store EmbeddingWorker needs for
// the article path.
type ArticleStore interface {
	ClaimPendingArticles(ctx context.Context, limit int) ([]domain.Article, error)
	SetArticleEmbedded(ctx context.Context, articleID string, embedding []float32, at time.Time) error
	SetArticleFailed(ctx context.Context, articleID string, reason string) error
}

// MarketStore is the narrow slice of ports.Store EmbeddingWorker needs for
// the opportunistic market-embedding path fed by MarketSyncer.
type MarketStore interface {
	SetMarketEmbedding(ctx context.Context, marketID string, embedding []float32, at time.Time) error
}

// Worker embeds articles in batches and exposes EnqueueMarkets so it can
// double as the marketsync.EmbeddingEnqueuer.
type Worker struct {
	articles  ArticleStore
	markets   MarketStore
	provider  ports.EmbeddingProvider
	batchSize int

	pending chan []domain.Market
}

// New creates a Worker. batchSize is the article-claim batch size (spec
// §4.E step 1, default 10).
func New(provider ports.EmbeddingProvider, articles ArticleStore, markets MarketStore, batchSize int) *Worker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Worker{
		articles:  articles,
		markets:   markets,
		provider:  provider,
		batchSize: batchSize,
		pending:   make(chan []domain.Market, 64),
	}
}

// Runner wraps RunOnce in a loop.Runner using the worker backoff curve
// (spec §4.B).
func (w *Worker) Runner() *loop.Runner {
	return loop.New("embedding", loop.WorkerConfig(), w.RunOnce)
}

// EnqueueMarkets hands a batch of markets to be embedded on the worker's
// next iteration. Implements marketsync.EmbeddingEnqueuer. Non-blocking: a
// full queue drops the batch and logs a warning rather than stalling the
// syncer (spec §9: market embedding is best-effort, never blocking sync).
func (w *Worker) EnqueueMarkets(ctx context.Context, markets []domain.Market) error {
	select {
	case w.pending <- markets:
		return nil
	default:
		slog.Warn("embedding: market queue full, dropping batch", "count", len(markets))
		return nil
	}
}

// RunOnce embeds one batch of PENDING articles, then drains any queued
// market-embedding batches (spec §4.E).
func (w *Worker) RunOnce(ctx context.Context) (loop.Outcome, error) {
	worked := false

	articleWorked, err := w.embedArticles(ctx)
	if err != nil {
		return loop.Idle, err
	}
	worked = worked || articleWorked

	marketWorked := w.drainMarketQueue(ctx)
	worked = worked || marketWorked

	if worked {
		return loop.Worked, nil
	}
	return loop.Idle, nil
}

func (w *Worker) embedArticles(ctx context.Context) (bool, error) {
	batch, err := w.articles.ClaimPendingArticles(ctx, w.batchSize)
	if err != nil {
		return false, fmt.Errorf("embedding: claim pending: %w", err)
	}
	if len(batch) == 0 {
		return false, nil
	}

	texts := make([]string, len(batch))
	for i, a := range batch {
		texts[i] = a.EmbeddingText()
	}

	vectors, err := w.provider.Embed(ctx, texts)
	if err != nil {
		// The whole batch fails together: the provider call is one request
		// (spec §4.E step 3).
		for _, a := range batch {
			if failErr := w.articles.SetArticleFailed(ctx, a.ID, "embedding provider error: "+err.Error()); failErr != nil {
				slog.Error("embedding: mark failed failed", "article_id", a.ID, "err", failErr)
			}
		}
		slog.Error("embedding: provider call failed", "batch_size", len(batch), "err", err)
		return true, nil
	}

	now := time.Now().UTC()
	for i, a := range batch {
		if i >= len(vectors) || len(vectors[i]) == 0 {
			if err := w.articles.SetArticleFailed(ctx, a.ID, "embedding provider returned an empty vector"); err != nil {
				slog.Error("embedding: mark failed failed", "article_id", a.ID, "err", err)
			}
			continue
		}
		if err := w.articles.SetArticleEmbedded(ctx, a.ID, vectors[i], now); err != nil {
			slog.Error("embedding: set embedded failed", "article_id", a.ID, "err", err)
		}
	}

	slog.Info("embedding.articles", "claimed", len(batch))
	return true, nil
}

func (w *Worker) drainMarketQueue(ctx context.Context) bool {
	worked := false
	for {
		select {
		case batch := <-w.pending:
			w.embedMarketBatch(ctx, batch)
			worked = true
		default:
			return worked
		}
	}
}

func (w *Worker) embedMarketBatch(ctx context.Context, markets []domain.Market) {
	if len(markets) == 0 {
		return
	}

	texts := make([]string, len(markets))
	for i, m := range markets {
		texts[i] = m.EmbeddingText()
	}

	vectors, err := w.provider.Embed(ctx, texts)
	if err != nil {
		slog.Error("embedding: market provider call failed", "batch_size", len(markets), "err", err)
		return
	}

	now := time.Now().UTC()
	for i, m := range markets {
		if i >= len(vectors) || len(vectors[i]) == 0 {
			slog.Warn("embedding: market provider returned empty vector", "market_id", m.ID)
			continue
		}
		if err := w.markets.SetMarketEmbedding(ctx, m.ID, vectors[i], now); err != nil {
			slog.Error("embedding: set market embedding failed", "market_id", m.ID, "err", err)
		}
	}

	slog.Info("embedding.markets", "count", len(markets))
}
