package retention

import (
	"context"
	"testing"
	"time"

	"github.com/marketsignal/newsmatch/internal/loop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	deleted int
	lastCutoff time.Time
}

func (s *fakeStore) DeleteArticlesOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	s.lastCutoff = cutoff
	return s.deleted, nil
}

func TestSweeper_DeletesAndReportsWorked(t *testing.T) {
	store := &fakeStore{deleted: 3}
	s := New(store, 7*24*time.Hour)

	outcome, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, loop.Worked, outcome)
	assert.WithinDuration(t, time.Now().UTC().Add(-7*24*time.Hour), store.lastCutoff, time.Second)
}

func TestSweeper_NoRowsIsIdle(t *testing.T) {
	store := &fakeStore{deleted: 0}
	s := New(store, 7*24*time.Hour)

	outcome, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, loop.Idle, outcome)
}
