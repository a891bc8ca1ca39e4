// Package embedprov implements ports.EmbeddingProvider over a local Ollama
// server, the on-premises, no-API-cost default the corpus favors for
// embeddings.
package embedprov

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	requestsPerSec = 10
	maxRetries     = 3
	baseRetryWait  = 250 * time.Millisecond
)

// OllamaProvider calls an Ollama server's /api/embed endpoint, one request
// per batch.
type OllamaProvider struct {
	baseURL   string
	model     string
	dimension int
	client    *http.Client
	limiter   *rate.Limiter
}

// NewOllama creates an OllamaProvider against baseURL (e.g.
// "http://localhost:11434").
func NewOllama(baseURL, model string, dimension int) *OllamaProvider {
	return &OllamaProvider{
		baseURL:   baseURL,
		model:     model,
		dimension: dimension,
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(requestsPerSec, 5),
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed sends texts to Ollama's batch embedding endpoint and returns one
// vector per input, in order.
func (p *OllamaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embedRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("embedprov: marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("embedprov: rate limiter: %w", err)
		}

		vectors, err := p.doEmbed(ctx, body)
		if err == nil {
			if len(vectors) != len(texts) {
				return nil, fmt.Errorf("embedprov: expected %d vectors, got %d", len(texts), len(vectors))
			}
			return vectors, nil
		}

		lastErr = err
		if attempt == maxRetries {
			break
		}
		sleep(ctx, attempt)
	}
	return nil, fmt.Errorf("embedprov: request failed after %d retries: %w", maxRetries, lastErr)
}

func (p *OllamaProvider) doEmbed(ctx context.Context, body []byte) ([][]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Embeddings, nil
}

// Dimension returns the provider's fixed vector length.
func (p *OllamaProvider) Dimension() int {
	return p.dimension
}

func sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

// Reachable reports whether an Ollama server at baseURL responds, used by
// the auto-detecting factory.
func Reachable(baseURL string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
