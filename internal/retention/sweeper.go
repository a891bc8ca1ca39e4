// Package retention implements the retention-sweep LoopRunner: a supplemented
// housekeeping task (not named by the distilled spec, but implied by the
// Store's retention-sweep contract) that deletes articles older than a
// configured window.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/marketsignal/newsmatch/internal/loop"
)

// Store is the narrow slice of ports.Store the sweeper needs.
type Store interface {
	DeleteArticlesOlderThan(ctx context.Context, cutoff time.Time) (deleted int, err error)
}

// sweepConfig is the retention sweep's backoff curve: infrequent by design,
// since a sweep only needs to run a few times a day.
func sweepConfig() loop.Config {
	return loop.Config{MinDelay: time.Hour, MaxDelay: 6 * time.Hour, Growth: 2}
}

// Sweeper periodically deletes articles (and, by cascade, their matches)
// older than Window.
type Sweeper struct {
	store  Store
	window time.Duration
}

// New creates a Sweeper that deletes articles older than window.
func New(store Store, window time.Duration) *Sweeper {
	return &Sweeper{store: store, window: window}
}

// Runner wraps RunOnce in a loop.Runner using the sweep backoff curve.
func (s *Sweeper) Runner() *loop.Runner {
	return loop.New("retention", sweepConfig(), s.RunOnce)
}

// RunOnce deletes every article older than Window, reporting Worked iff at
// least one row was removed.
func (s *Sweeper) RunOnce(ctx context.Context) (loop.Outcome, error) {
	cutoff := time.Now().UTC().Add(-s.window)

	deleted, err := s.store.DeleteArticlesOlderThan(ctx, cutoff)
	if err != nil {
		return loop.Idle, fmt.Errorf("retention: delete older than %s: %w", cutoff, err)
	}

	if deleted > 0 {
		slog.Info("retention.swept", "deleted", deleted, "cutoff", cutoff)
		return loop.Worked, nil
	}
	return loop.Idle, nil
}
