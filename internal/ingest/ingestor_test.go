package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/marketsignal/newsmatch/internal/domain"
	"github.com/marketsignal/newsmatch/internal/loop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	name  string
	items []domain.NewsItem
	err   error
}

func (f *fakeSource) Name() string { return f.name }
func (f *fakeSource) FetchLatest(ctx context.Context) ([]domain.NewsItem, error) {
	return f.items, f.err
}

// fakeStore implements just enough of ports.Store for ingestor tests.
type fakeStore struct {
	seen    map[string]bool
	articles []domain.Article
}

func newFakeStore() *fakeStore { return &fakeStore{seen: make(map[string]bool)} }

func (s *fakeStore) InsertArticleIfAbsent(ctx context.Context, a domain.Article) (bool, error) {
	key := a.Source + "|" + a.ExternalID
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	s.articles = append(s.articles, a)
	return true, nil
}

func TestIngestor_InsertsNewItems(t *testing.T) {
	src := &fakeSource{name: "reuters", items: []domain.NewsItem{
		{ID: "a1", Source: "reuters", Title: "Fed cuts rates", PublishedAt: time.Now()},
		{ID: "a2", Source: "reuters", Title: "Markets rally"},
	}}
	store := newFakeStore()
	ig := &Ingestor{source: src, store: store}

	outcome, err := ig.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, loop.Worked, outcome)
	assert.Len(t, store.articles, 2)
	assert.Equal(t, domain.ArticleStatusPending, store.articles[0].Status)
}

func TestIngestor_DedupesOnExternalID(t *testing.T) {
	src := &fakeSource{name: "reuters", items: []domain.NewsItem{
		{ID: "a1", Source: "reuters", Title: "dup"},
		{ID: "a1", Source: "reuters", Title: "dup again"},
	}}
	store := newFakeStore()
	ig := &Ingestor{source: src, store: store}

	outcome, err := ig.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, loop.Worked, outcome)
	assert.Len(t, store.articles, 1)
}

func TestIngestor_InvalidPublishedAtBecomesNow(t *testing.T) {
	src := &fakeSource{name: "reuters", items: []domain.NewsItem{
		{ID: "a1", Source: "reuters", Title: "no date"},
	}}
	store := newFakeStore()
	ig := &Ingestor{source: src, store: store}

	before := time.Now()
	_, err := ig.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, store.articles, 1)
	assert.True(t, !store.articles[0].PublishedAt.Before(before.Add(-time.Second)))
}

func TestIngestor_NoItemsIsIdle(t *testing.T) {
	src := &fakeSource{name: "reuters"}
	store := newFakeStore()
	ig := &Ingestor{source: src, store: store}

	outcome, err := ig.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, loop.Idle, outcome)
}

func TestIngestor_FetchErrorBacksOff(t *testing.T) {
	src := &fakeSource{name: "reuters", err: assertErr{}}
	store := newFakeStore()
	ig := &Ingestor{source: src, store: store}

	_, err := ig.RunOnce(context.Background())
	assert.Error(t, err)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
