package store

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/marketsignal/newsmatch/internal/domain"
	"github.com/marketsignal/newsmatch/internal/ports"
)

// TopKMarkets runs a cosine-similarity search over market embeddings using
// pgvector's <=> (cosine distance) operator, returning at most topN markets
// whose similarity clears minSimilarity, ordered closest-first.
func (s *Store) TopKMarkets(ctx context.Context, query []float32, topN int, minSimilarity float64, activeOnly bool) ([]ports.SimilarityResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+marketColumns+`, 1 - (embedding <=> $1) AS similarity
		FROM markets
		WHERE embedding IS NOT NULL
		  AND (NOT $2::boolean OR is_active)
		  AND 1 - (embedding <=> $1) >= $3
		ORDER BY embedding <=> $1
		LIMIT $4`,
		encodeVector(query), activeOnly, minSimilarity, topN,
	)
	if err != nil {
		return nil, fmt.Errorf("store.TopKMarkets: %w", err)
	}
	defer rows.Close()

	var out []ports.SimilarityResult
	for rows.Next() {
		var m domain.Market
		var vec *pgvector.Vector
		var similarity float64
		if err := rows.Scan(
			&m.ID, &m.Platform, &m.EventTicker, &m.SeriesTicker, &m.Title, &m.URL, &m.Category, &m.EndDate,
			&m.IsActive, &m.LastSyncedAt, &vec, &m.EmbeddingUpdatedAt, &similarity,
		); err != nil {
			return nil, fmt.Errorf("store.TopKMarkets: scan: %w", err)
		}
		m.Embedding = decodeVector(vec)
		out = append(out, ports.SimilarityResult{Market: m, Similarity: similarity})
	}
	return out, rows.Err()
}

// InsertMatchIfAbsent inserts m keyed on (newsArticleId, marketId),
// tolerating a duplicate from a re-run of the matching worker over the same
// article (spec §8 idempotence law: matching never creates a second row for
// an already-matched article/market pair).
func (s *Store) InsertMatchIfAbsent(ctx context.Context, m domain.Match) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO matches (id, news_article_id, market_id, similarity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (news_article_id, market_id) DO NOTHING`,
		m.ID, m.NewsArticleID, m.MarketID, m.Similarity,
	)
	if err != nil {
		return false, fmt.Errorf("store.InsertMatchIfAbsent: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
