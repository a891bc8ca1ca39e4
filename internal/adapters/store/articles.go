package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/marketsignal/newsmatch/internal/domain"
)

const articleColumns = `id, external_id, source, title, content, summary, url, author,
	published_at, tags, metadata, status, fetched_at, embedded_at, matched_at, validated_at, error_message`

func scanArticle(row pgx.Row) (domain.Article, error) {
	var a domain.Article
	var metaJSON []byte
	if err := row.Scan(
		&a.ID, &a.ExternalID, &a.Source, &a.Title, &a.Content, &a.Summary, &a.URL, &a.Author,
		&a.PublishedAt, &a.Tags, &metaJSON, &a.Status, &a.FetchedAt, &a.EmbeddedAt, &a.MatchedAt, &a.ValidatedAt, &a.ErrorMessage,
	); err != nil {
		return domain.Article{}, err
	}
	if len(metaJSON) > 0 {
		_ = json.Unmarshal(metaJSON, &a.Metadata)
	}
	return a, nil
}

// InsertArticleIfAbsent inserts a, keyed on (source, externalID), skipping
// duplicates rather than erroring (spec §4.B: ingestion is idempotent).
func (s *Store) InsertArticleIfAbsent(ctx context.Context, a domain.Article) (bool, error) {
	metaJSON, err := json.Marshal(a.Metadata)
	if err != nil {
		return false, fmt.Errorf("store.InsertArticleIfAbsent: marshal metadata: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO articles (external_id, source, title, content, summary, url, author, published_at, tags, metadata, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'PENDING')
		ON CONFLICT (source, external_id) DO NOTHING`,
		a.ExternalID, a.Source, a.Title, a.Content, a.Summary, a.URL, a.Author, a.PublishedAt, a.Tags, metaJSON,
	)
	if err != nil {
		return false, fmt.Errorf("store.InsertArticleIfAbsent: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// claimArticles atomically moves up to limit rows in fromStatus to
// claimingStatus and returns them, using SKIP LOCKED so two concurrent claims
// never take the same locked row. Callers pass the same status for both, so
// a claimed row stays claimable until the caller advances it. orderBy must be a trusted
// column name (never user input) — callers pass one of a fixed set of
// literals, never an interpolated value.
func (s *Store) claimArticles(ctx context.Context, fromStatus, claimingStatus domain.ArticleStatus, limit int, orderBy string) ([]domain.Article, error) {
	rows, err := s.pool.Query(ctx, `
		UPDATE articles SET status = $1
		WHERE id IN (
			SELECT id FROM articles WHERE status = $2 ORDER BY `+orderBy+` LIMIT $3 FOR UPDATE SKIP LOCKED
		)
		RETURNING `+articleColumns,
		claimingStatus, fromStatus, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store.claimArticles: %w", err)
	}
	defer rows.Close()

	var out []domain.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("store.claimArticles: scan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ClaimPendingArticles claims up to limit PENDING articles for embedding.
// The claimed rows stay at status PENDING (the embedding worker advances
// them itself on success, or to FAILED on error) so a crash mid-batch leaves
// them visible to the next poll rather than stuck in a transient state.
func (s *Store) ClaimPendingArticles(ctx context.Context, limit int) ([]domain.Article, error) {
	return s.claimArticles(ctx, domain.ArticleStatusPending, domain.ArticleStatusPending, limit, "fetched_at")
}

// ClaimEmbeddedArticles claims up to limit EMBEDDED articles for matching,
// oldest embeddedAt first.
func (s *Store) ClaimEmbeddedArticles(ctx context.Context, limit int) ([]domain.Article, error) {
	return s.claimArticles(ctx, domain.ArticleStatusEmbedded, domain.ArticleStatusEmbedded, limit, "embedded_at")
}

// ClaimMatchedArticles claims up to limit MATCHED articles.
func (s *Store) ClaimMatchedArticles(ctx context.Context, limit int) ([]domain.Article, error) {
	return s.claimArticles(ctx, domain.ArticleStatusMatched, domain.ArticleStatusMatched, limit, "fetched_at")
}

// ClaimArticlesWithUnvalidatedMatches claims up to limit MATCHED articles
// that still have at least one unvalidated match row.
func (s *Store) ClaimArticlesWithUnvalidatedMatches(ctx context.Context, limit int) ([]domain.Article, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+articleColumns+` FROM articles a
		WHERE a.status = $1 AND EXISTS (
			SELECT 1 FROM matches m WHERE m.news_article_id = a.id AND NOT m.is_validated
		)
		ORDER BY a.fetched_at LIMIT $2`,
		domain.ArticleStatusMatched, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store.ClaimArticlesWithUnvalidatedMatches: %w", err)
	}
	defer rows.Close()

	var out []domain.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("store.ClaimArticlesWithUnvalidatedMatches: scan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SetArticleEmbedded advances an article to EMBEDDED and stores its vector.
func (s *Store) SetArticleEmbedded(ctx context.Context, articleID string, embedding []float32, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE articles SET status = 'EMBEDDED', embedding = $1, embedded_at = $2 WHERE id = $3`,
		encodeVector(embedding), at, articleID,
	)
	if err != nil {
		return fmt.Errorf("store.SetArticleEmbedded: %w", err)
	}
	return nil
}

// SetArticleMatched advances an article to MATCHED.
func (s *Store) SetArticleMatched(ctx context.Context, articleID string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE articles SET status = 'MATCHED', matched_at = $1 WHERE id = $2`, at, articleID)
	if err != nil {
		return fmt.Errorf("store.SetArticleMatched: %w", err)
	}
	return nil
}

// SetArticleValidated advances an article to VALIDATED, its terminal success state.
func (s *Store) SetArticleValidated(ctx context.Context, articleID string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE articles SET status = 'VALIDATED', validated_at = $1 WHERE id = $2`, at, articleID)
	if err != nil {
		return fmt.Errorf("store.SetArticleValidated: %w", err)
	}
	return nil
}

// SetArticleFailed moves an article sideways to FAILED from any state.
func (s *Store) SetArticleFailed(ctx context.Context, articleID string, reason string) error {
	_, err := s.pool.Exec(ctx, `UPDATE articles SET status = 'FAILED', error_message = $1 WHERE id = $2`, reason, articleID)
	if err != nil {
		return fmt.Errorf("store.SetArticleFailed: %w", err)
	}
	return nil
}

// DeleteArticlesOlderThan removes articles (and, by cascade, their matches)
// fetched before cutoff, in bounded batches so one sweep never holds a
// table-wide lock.
func (s *Store) DeleteArticlesOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	const batchSize = 500
	total := 0
	for {
		tag, err := s.pool.Exec(ctx, `
			DELETE FROM articles WHERE id IN (
				SELECT id FROM articles WHERE fetched_at < $1 LIMIT $2
			)`, cutoff, batchSize)
		if err != nil {
			return total, fmt.Errorf("store.DeleteArticlesOlderThan: %w", err)
		}
		n := int(tag.RowsAffected())
		total += n
		if n < batchSize {
			break
		}
	}
	return total, nil
}

// CountArticlesByStatus is the introspection query behind the CLI status
// subcommand.
func (s *Store) CountArticlesByStatus(ctx context.Context) (map[domain.ArticleStatus]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, count(*) FROM articles GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("store.CountArticlesByStatus: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.ArticleStatus]int)
	for rows.Next() {
		var status domain.ArticleStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("store.CountArticlesByStatus: scan: %w", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}
