package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/shopspring/decimal"

	"github.com/marketsignal/newsmatch/internal/domain"
)

// UnvalidatedMatchesForArticle returns up to limit unvalidated matches for
// articleID, each paired with its market and — if the market still has at
// least one active contract — the one with the highest volume, the natural
// representative to price an alert off of.
func (s *Store) UnvalidatedMatchesForArticle(ctx context.Context, articleID string, limit int) ([]domain.CandidateMatch, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.id, m.news_article_id, m.market_id, m.similarity, m.is_validated, m.alert_sent, m.alert_sent_at,
			mk.id, mk.platform, mk.event_ticker, mk.series_ticker, mk.title, mk.url, mk.category, mk.end_date,
			mk.is_active, mk.last_synced_at, mk.embedding, mk.embedding_updated_at,
			c.id, c.contract_ticker, c.market_id, c.title, c.yes_price, c.no_price, c.volume, c.liquidity,
			c.is_active, c.last_synced_at
		FROM matches m
		JOIN markets mk ON mk.id = m.market_id
		LEFT JOIN LATERAL (
			SELECT * FROM contracts WHERE market_id = mk.id AND is_active ORDER BY volume DESC LIMIT 1
		) c ON true
		WHERE m.news_article_id = $1 AND NOT m.is_validated
		ORDER BY m.similarity DESC
		LIMIT $2`, articleID, limit)
	if err != nil {
		return nil, fmt.Errorf("store.UnvalidatedMatchesForArticle: %w", err)
	}
	defer rows.Close()

	var out []domain.CandidateMatch
	for rows.Next() {
		var cm domain.CandidateMatch
		var vec *pgvector.Vector
		var cID, cTicker, cMarketID, cTitle *string
		var yesPrice, noPrice, volume, liquidity *string
		var cIsActive *bool
		var cLastSynced *time.Time

		if err := rows.Scan(
			&cm.Match.ID, &cm.Match.NewsArticleID, &cm.Match.MarketID, &cm.Match.Similarity, &cm.Match.IsValidated,
			&cm.Match.AlertSent, &cm.Match.AlertSentAt,
			&cm.Market.ID, &cm.Market.Platform, &cm.Market.EventTicker, &cm.Market.SeriesTicker, &cm.Market.Title,
			&cm.Market.URL, &cm.Market.Category, &cm.Market.EndDate, &cm.Market.IsActive, &cm.Market.LastSyncedAt,
			&vec, &cm.Market.EmbeddingUpdatedAt,
			&cID, &cTicker, &cMarketID, &cTitle, &yesPrice, &noPrice, &volume, &liquidity, &cIsActive, &cLastSynced,
		); err != nil {
			return nil, fmt.Errorf("store.UnvalidatedMatchesForArticle: scan: %w", err)
		}
		cm.Market.Embedding = decodeVector(vec)

		if cID != nil {
			contract := domain.Contract{
				ID: *cID, ContractTicker: *cTicker, MarketID: *cMarketID, Title: *cTitle, IsActive: *cIsActive,
			}
			contract.YesPrice, _ = decimal.NewFromString(*yesPrice)
			contract.NoPrice, _ = decimal.NewFromString(*noPrice)
			contract.Volume, _ = decimal.NewFromString(*volume)
			contract.Liquidity, _ = decimal.NewFromString(*liquidity)
			if cLastSynced != nil {
				contract.LastSyncedAt = *cLastSynced
			}
			cm.Contract = &contract
		}
		out = append(out, cm)
	}
	return out, rows.Err()
}

// RemainingUnvalidatedCount reports how many of articleID's matches have not
// yet been validated, the signal ValidationWorker uses to decide whether to
// promote the article to VALIDATED.
func (s *Store) RemainingUnvalidatedCount(ctx context.Context, articleID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM matches WHERE news_article_id = $1 AND NOT is_validated`, articleID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store.RemainingUnvalidatedCount: %w", err)
	}
	return n, nil
}

// SaveValidation records the LLM's (or the keyword fallback's) verdict for
// one match.
func (s *Store) SaveValidation(ctx context.Context, matchID string, result domain.ValidationResult, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE matches SET
			is_validated       = true,
			is_relevant        = $1,
			relevance_score    = $2,
			confidence         = $3,
			suggested_position = $4,
			reasoning          = $5,
			matched_entities   = $6,
			matched_events     = $7,
			risks              = $8,
			opportunities      = $9,
			validated_at       = $10
		WHERE id = $11`,
		result.IsRelevant, result.RelevanceScore, result.Confidence, string(result.SuggestedPosition), result.Reasoning,
		result.MatchedEntities, result.MatchedEvents, result.Risks, result.Opportunities, at, matchID,
	)
	if err != nil {
		return fmt.Errorf("store.SaveValidation: %w", err)
	}
	return nil
}

// MarkAlertSent records that an alert was dispatched for matchID.
func (s *Store) MarkAlertSent(ctx context.Context, matchID string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE matches SET alert_sent = true, alert_sent_at = $1 WHERE id = $2`, at, matchID)
	if err != nil {
		return fmt.Errorf("store.MarkAlertSent: %w", err)
	}
	return nil
}

// RecentAlerts returns the most recently alerted matches, for the CLI status
// subcommand.
func (s *Store) RecentAlerts(ctx context.Context, limit int) ([]domain.Match, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, news_article_id, market_id, similarity, is_validated, is_relevant, relevance_score,
			confidence, suggested_position, reasoning, validated_at, alert_sent, alert_sent_at
		FROM matches WHERE alert_sent ORDER BY alert_sent_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("store.RecentAlerts: %w", err)
	}
	defer rows.Close()

	var out []domain.Match
	for rows.Next() {
		var m domain.Match
		var position string
		if err := rows.Scan(
			&m.ID, &m.NewsArticleID, &m.MarketID, &m.Similarity, &m.IsValidated, &m.IsRelevant, &m.RelevanceScore,
			&m.Confidence, &position, &m.Reasoning, &m.ValidatedAt, &m.AlertSent, &m.AlertSentAt,
		); err != nil {
			return nil, fmt.Errorf("store.RecentAlerts: scan: %w", err)
		}
		m.SuggestedPosition = domain.Position(position)
		out = append(out, m)
	}
	return out, rows.Err()
}
