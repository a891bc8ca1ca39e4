// Package store implements ports.Store on Postgres with the pgvector
// extension for cosine similarity search. sqlite (the teacher's storage
// choice) has no competitive vector index, so the similarity search at the
// heart of the matching stage rules it out (see DESIGN.md).
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go/pgxvector"

	"github.com/marketsignal/newsmatch/internal/ports"
)

// Store is the Postgres-backed implementation of ports.Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ ports.Store = (*Store)(nil)

// New opens a connection pool to dsn, registers the pgvector wire types on
// every connection, and applies any pending embedded migrations before
// returning. dimension sizes the articles/markets vector columns so they
// match the configured embedding provider's output width.
func New(ctx context.Context, dsn string, dimension int) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("store.New: parse dsn: %w", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("store.New: connect: %w", err)
	}

	if err := runMigrations(ctx, pool, dimension); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store.New: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Ping verifies the connection pool can still reach Postgres.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("store.Ping: %w", err)
	}
	return nil
}

// Close releases every pooled connection. Safe to call once at shutdown.
func (s *Store) Close() {
	s.pool.Close()
}
