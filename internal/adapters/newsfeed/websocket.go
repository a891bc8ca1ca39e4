package newsfeed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/marketsignal/newsmatch/internal/domain"
)

const wsBufferSize = 256

// WebSocketSource subscribes to a push-style news feed over a persistent
// WebSocket connection, buffering incoming items for FetchLatest to drain.
// Unlike HTTPSource, the connection lives independently of the polling
// cadence — FetchLatest never blocks waiting for new data, it only returns
// what has already arrived (spec §4.B: a NewsSource must not block the
// ingestion loop on network I/O beyond its own fetch).
type WebSocketSource struct {
	name string
	url  string

	mu    sync.Mutex
	items []domain.NewsItem
}

// NewWebSocket creates a WebSocketSource and starts its connect-and-read
// loop in the background. ctx bounds the connection's lifetime.
func NewWebSocket(ctx context.Context, name, url string) *WebSocketSource {
	s := &WebSocketSource{name: name, url: url}
	go s.run(ctx)
	return s
}

// Name returns the source's stable identifier.
func (s *WebSocketSource) Name() string {
	return s.name
}

// FetchLatest returns every item buffered since the last call and clears the
// buffer.
func (s *WebSocketSource) FetchLatest(ctx context.Context) ([]domain.NewsItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.items
	s.items = nil
	return out, nil
}

type wsMessage struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	Summary     string            `json:"summary"`
	URL         string            `json:"url"`
	Author      string            `json:"author"`
	PublishedAt time.Time         `json:"publishedAt"`
	Tags        []string          `json:"tags"`
	Metadata    map[string]string `json:"metadata"`
}

// run dials the feed and reconnects with exponential backoff whenever the
// connection drops, until ctx is canceled.
func (s *WebSocketSource) run(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
		if err != nil {
			slog.Warn("newsfeed.websocket dial failed", "source", s.name, "err", err)
			sleep(ctx, attempt)
			attempt++
			continue
		}
		attempt = 0

		s.readLoop(ctx, conn)
		conn.Close()

		if ctx.Err() != nil {
			return
		}
		slog.Warn("newsfeed.websocket connection lost, reconnecting", "source", s.name)
	}
}

func (s *WebSocketSource) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		if ctx.Err() != nil {
			return
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			slog.Warn("newsfeed.websocket malformed message", "source", s.name, "err", err)
			continue
		}

		item := domain.NewsItem{
			ID: msg.ID, Source: s.name, Title: msg.Title, Content: msg.Content, Summary: msg.Summary,
			URL: msg.URL, Author: msg.Author, PublishedAt: msg.PublishedAt, Tags: msg.Tags, Metadata: msg.Metadata,
		}

		s.mu.Lock()
		if len(s.items) < wsBufferSize {
			s.items = append(s.items, item)
		} else {
			slog.Warn("newsfeed.websocket buffer full, dropping item", "source", s.name)
		}
		s.mu.Unlock()
	}
}
