package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/marketsignal/newsmatch/internal/domain"
)

const marketColumns = `id, platform, event_ticker, series_ticker, title, url, category, end_date,
	is_active, last_synced_at, embedding, embedding_updated_at`

func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var vec *pgvector.Vector
	if err := row.Scan(
		&m.ID, &m.Platform, &m.EventTicker, &m.SeriesTicker, &m.Title, &m.URL, &m.Category, &m.EndDate,
		&m.IsActive, &m.LastSyncedAt, &vec, &m.EmbeddingUpdatedAt,
	); err != nil {
		return domain.Market{}, err
	}
	m.Embedding = decodeVector(vec)
	return m, nil
}

// UpsertMarket inserts or updates m keyed on (platform, eventTicker), never
// touching the embedding columns — those are owned exclusively by the
// embedding worker (spec §4.D step 2). titleChanged reports whether the
// stored title differs from what was there before this call.
func (s *Store) UpsertMarket(ctx context.Context, m domain.Market) (domain.Market, bool, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Market{}, false, false, fmt.Errorf("store.UpsertMarket: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var existingTitle string
	err = tx.QueryRow(ctx, `SELECT title FROM markets WHERE platform = $1 AND event_ticker = $2 FOR UPDATE`,
		m.Platform, m.EventTicker).Scan(&existingTitle)

	var row pgx.Row
	created := false
	titleChanged := false

	switch err {
	case pgx.ErrNoRows:
		created = true
		titleChanged = true
		row = tx.QueryRow(ctx, `
			INSERT INTO markets (platform, event_ticker, series_ticker, title, url, category, end_date, is_active, last_synced_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, true, $8)
			RETURNING `+marketColumns,
			m.Platform, m.EventTicker, m.SeriesTicker, m.Title, m.URL, m.Category, m.EndDate, m.LastSyncedAt,
		)
	case nil:
		titleChanged = existingTitle != m.Title
		row = tx.QueryRow(ctx, `
			UPDATE markets SET series_ticker = $1, title = $2, url = $3, category = $4, end_date = $5,
				is_active = true, last_synced_at = $6
			WHERE platform = $7 AND event_ticker = $8
			RETURNING `+marketColumns,
			m.SeriesTicker, m.Title, m.URL, m.Category, m.EndDate, m.LastSyncedAt, m.Platform, m.EventTicker,
		)
	default:
		return domain.Market{}, false, false, fmt.Errorf("store.UpsertMarket: lookup: %w", err)
	}

	result, err := scanMarket(row)
	if err != nil {
		return domain.Market{}, false, false, fmt.Errorf("store.UpsertMarket: scan: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Market{}, false, false, fmt.Errorf("store.UpsertMarket: commit: %w", err)
	}
	return result, titleChanged, created, nil
}

// SetMarketEmbedding stores the embedding computed for a market.
func (s *Store) SetMarketEmbedding(ctx context.Context, marketID string, embedding []float32, at time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE markets SET embedding = $1, embedding_updated_at = $2 WHERE id = $3`,
		encodeVector(embedding), at, marketID)
	if err != nil {
		return fmt.Errorf("store.SetMarketEmbedding: %w", err)
	}
	return nil
}

// MarketsNeedingEmbedding returns active markets on platform with no
// embedding yet, e.g. for a startup backfill pass.
func (s *Store) MarketsNeedingEmbedding(ctx context.Context, platform string, limit int) ([]domain.Market, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+marketColumns+` FROM markets
		WHERE platform = $1 AND is_active AND embedding IS NULL
		ORDER BY last_synced_at LIMIT $2`, platform, limit)
	if err != nil {
		return nil, fmt.Errorf("store.MarketsNeedingEmbedding: %w", err)
	}
	defer rows.Close()

	var out []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("store.MarketsNeedingEmbedding: scan: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeactivateStaleMarkets flips is_active false for every market on platform
// whose event ticker was not seen this sync cycle, batching updates of
// batchSize rows at a time so a large stale set never holds one long lock.
func (s *Store) DeactivateStaleMarkets(ctx context.Context, platform string, seenEventTickers []string, batchSize int) error {
	for {
		tag, err := s.pool.Exec(ctx, `
			UPDATE markets SET is_active = false WHERE id IN (
				SELECT id FROM markets
				WHERE platform = $1 AND is_active AND NOT (event_ticker = ANY($2))
				LIMIT $3
			)`, platform, seenEventTickers, batchSize)
		if err != nil {
			return fmt.Errorf("store.DeactivateStaleMarkets: %w", err)
		}
		if int(tag.RowsAffected()) < batchSize {
			return nil
		}
	}
}

// DeactivateStaleContracts flips is_active false for every contract whose
// ticker was not seen this sync cycle, across all markets on platform.
func (s *Store) DeactivateStaleContracts(ctx context.Context, platform string, seenContractTickers []string, batchSize int) error {
	for {
		tag, err := s.pool.Exec(ctx, `
			UPDATE contracts SET is_active = false WHERE id IN (
				SELECT c.id FROM contracts c
				JOIN markets mk ON mk.id = c.market_id
				WHERE mk.platform = $1 AND c.is_active AND NOT (c.contract_ticker = ANY($2))
				LIMIT $3
			)`, platform, seenContractTickers, batchSize)
		if err != nil {
			return fmt.Errorf("store.DeactivateStaleContracts: %w", err)
		}
		if int(tag.RowsAffected()) < batchSize {
			return nil
		}
	}
}

// UpsertContract inserts or updates c keyed on contract ticker.
func (s *Store) UpsertContract(ctx context.Context, c domain.Contract) error {
	metaJSON, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("store.UpsertContract: marshal metadata: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO contracts (contract_ticker, market_id, title, yes_price, no_price, volume, liquidity, is_active, last_synced_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, true, $8, $9)
		ON CONFLICT (contract_ticker) DO UPDATE SET
			title          = excluded.title,
			yes_price      = excluded.yes_price,
			no_price       = excluded.no_price,
			volume         = excluded.volume,
			liquidity      = excluded.liquidity,
			is_active      = true,
			last_synced_at = excluded.last_synced_at,
			metadata       = excluded.metadata`,
		c.ContractTicker, c.MarketID, c.Title, c.YesPrice.String(), c.NoPrice.String(), c.Volume.String(), c.Liquidity.String(), c.LastSyncedAt, metaJSON,
	)
	if err != nil {
		return fmt.Errorf("store.UpsertContract: %w", err)
	}
	return nil
}
