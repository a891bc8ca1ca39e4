// Package newsfeed implements ports.NewsSource: an HTTP-polling adapter
// against a JSON news API, and a gorilla/websocket streaming alternative for
// sources that push instead of serving a pull endpoint.
package newsfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/marketsignal/newsmatch/internal/domain"
)

const (
	requestsPerSec = 2
	maxRetries     = 3
	baseRetryWait  = time.Second
)

// errClientStatus marks a non-5xx, non-200 response, which is not retried.
var errClientStatus = errors.New("client error")

// HTTPSource polls name's /latest endpoint on every FetchLatest call.
type HTTPSource struct {
	name     string
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewHTTP creates an HTTPSource. endpoint must return a JSON array of
// feedItem on GET.
func NewHTTP(name, endpoint string) *HTTPSource {
	return &HTTPSource{
		name:     name,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
		limiter:  rate.NewLimiter(requestsPerSec, 1),
	}
}

// Name returns the source's stable identifier.
func (s *HTTPSource) Name() string {
	return s.name
}

type feedItem struct {
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

// FetchLatest polls the feed endpoint once, retrying transient failures with
// exponential backoff. A client-error status is returned at once, unretried.
func (s *HTTPSource) FetchLatest(ctx context.Context) ([]domain.NewsItem, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("newsfeed.%s: rate limiter: %w", s.name, err)
		}

		items, err := s.fetchOnce(ctx)
		if err == nil {
			return items, nil
		}
		lastErr = err
		if errors.Is(err, errClientStatus) {
			return nil, fmt.Errorf("newsfeed.%s: %w", s.name, err)
		}
		if attempt == maxRetries {
			break
		}
		sleep(ctx, attempt)
	}
	return nil, fmt.Errorf("newsfeed.%s: failed after %d retries: %w", s.name, maxRetries, lastErr)
}

func (s *HTTPSource) fetchOnce(ctx context.Context) ([]domain.NewsItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("server error %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w %d: %s", errClientStatus, resp.StatusCode, string(body))
	}

	var feed []feedItem
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	items := make([]domain.NewsItem, 0, len(feed))
	for _, f := range feed {
		items = append(items, domain.NewsItem{
			ID: f.ID, Source: s.name, Title: f.Title, Content: f.Content, Summary: f.Summary,
			URL: f.URL, Author: f.Author, PublishedAt: f.PublishedAt, Tags: f.Tags, Metadata: f.Metadata,
		})
	}
	return items, nil
}

func sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
