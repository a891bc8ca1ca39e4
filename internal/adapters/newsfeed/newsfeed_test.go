package newsfeed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsignal/newsmatch/internal/domain"
)

func TestHTTPSource_FetchLatest_MapsItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]feedItem{
			{ID: "a1", Title: "Fed signals pause", Content: "body", PublishedAt: time.Now()},
		})
	}))
	defer srv.Close()

	src := NewHTTP("test-feed", srv.URL)
	items, err := src.FetchLatest(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a1", items[0].ID)
	assert.Equal(t, "test-feed", items[0].Source)
	assert.Equal(t, "Fed signals pause", items[0].Title)
}

func TestHTTPSource_FetchLatest_RetriesThenFails(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewHTTP("flaky-feed", srv.URL)
	_, err := src.FetchLatest(context.Background())
	assert.Error(t, err)
	assert.Equal(t, maxRetries+1, calls)
}

func TestHTTPSource_FetchLatest_NonRetryableClientError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	src := NewHTTP("bad-feed", srv.URL)
	_, err := src.FetchLatest(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWebSocketSource_Name(t *testing.T) {
	s := &WebSocketSource{name: "stream-feed"}
	assert.Equal(t, "stream-feed", s.Name())
}

func TestWebSocketSource_FetchLatest_DrainsAndClearsBuffer(t *testing.T) {
	s := &WebSocketSource{name: "stream-feed"}
	s.mu.Lock()
	s.items = []domain.NewsItem{{ID: "x1"}, {ID: "x2"}}
	s.mu.Unlock()

	first, err := s.FetchLatest(context.Background())
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := s.FetchLatest(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second)
}
