// Package validation implements ValidationWorker (spec §4.G): scoring
// MATCHED articles' candidate contracts via the LLM, promoting articles to
// VALIDATED, and emitting alerts (and optionally placing orders) for the
// strongest matches.
package validation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/marketsignal/newsmatch/internal/domain"
	"github.com/marketsignal/newsmatch/internal/loop"
	"github.com/marketsignal/newsmatch/internal/ports"
	"github.com/shopspring/decimal"
)

// Store is the narrow slice of ports.Store ValidationWorker needs.
type Store interface {
	ClaimArticlesWithUnvalidatedMatches(ctx context.Context, limit int) ([]domain.Article, error)
	UnvalidatedMatchesForArticle(ctx context.Context, articleID string, limit int) ([]domain.CandidateMatch, error)
	RemainingUnvalidatedCount(ctx context.Context, articleID string) (int, error)
	SaveValidation(ctx context.Context, matchID string, result domain.ValidationResult, at time.Time) error
	MarkAlertSent(ctx context.Context, matchID string, at time.Time) error
	SetArticleValidated(ctx context.Context, articleID string, at time.Time) error
}

// Config tunes the batching, thresholds and order-placement behavior of a
// Worker (spec §4.G, defaults: batchSize=3, maxCandidates=10, chunkSize=10,
// minConfidence=0.7, alerts.confidenceThreshold=0.7, cooldown=1h).
type Config struct {
	BatchSize           int
	MaxCandidates       int
	ChunkSize           int
	MinConfidence       float64
	AlertConfidence     float64
	Cooldown            time.Duration
	TradingEnabled      bool
	DryRun              bool
}

// Worker scores candidate matches, promotes articles, and emits alerts.
type Worker struct {
	store     Store
	llm       ports.LLMProvider
	sink      ports.AlertSink
	platforms map[string]ports.MarketPlatform
	history   *domain.AlertHistory
	cfg       Config
}

// New creates a Worker. platforms maps a platform name to the
// ports.MarketPlatform used for live order placement; it may be nil or
// incomplete when trading is disabled.
func New(store Store, llm ports.LLMProvider, sink ports.AlertSink, platforms map[string]ports.MarketPlatform, history *domain.AlertHistory, cfg Config) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 3
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 10
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 10
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.7
	}
	if cfg.AlertConfidence <= 0 {
		cfg.AlertConfidence = 0.7
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Hour
	}
	if history == nil {
		history = domain.NewAlertHistory()
	}
	return &Worker{store: store, llm: llm, sink: sink, platforms: platforms, history: history, cfg: cfg}
}

// Runner wraps RunOnce in a loop.Runner using the worker backoff curve
// (spec §4.B).
func (w *Worker) Runner() *loop.Runner {
	return loop.New("validation", loop.WorkerConfig(), w.RunOnce)
}

// RunOnce claims MATCHED articles with unvalidated matches, validates up to
// maxCandidates of their highest-similarity matches, and promotes any
// article whose matches are all validated (spec §4.G steps 1-7).
func (w *Worker) RunOnce(ctx context.Context) (loop.Outcome, error) {
	articles, err := w.store.ClaimArticlesWithUnvalidatedMatches(ctx, w.cfg.BatchSize)
	if err != nil {
		return loop.Idle, fmt.Errorf("validation: claim matched: %w", err)
	}
	if len(articles) == 0 {
		return loop.Idle, nil
	}

	for _, a := range articles {
		if err := w.validateArticle(ctx, a); err != nil {
			slog.Error("validation: article failed", "article_id", a.ID, "err", err)
		}
	}

	slog.Info("validation.batch", "claimed", len(articles))
	return loop.Worked, nil
}

func (w *Worker) validateArticle(ctx context.Context, a domain.Article) error {
	candidates, err := w.store.UnvalidatedMatchesForArticle(ctx, a.ID, w.cfg.MaxCandidates)
	if err != nil {
		return fmt.Errorf("load candidates: %w", err)
	}
	if len(candidates) == 0 {
		return w.maybePromote(ctx, a)
	}

	insight := w.parseInsight(ctx, a)

	byTicker := make(map[string]domain.ValidationResult)
	withContract := make([]domain.CandidateMatch, 0, len(candidates))
	for _, c := range candidates {
		if c.Contract == nil {
			// No active contract to validate against; the match still
			// needs to be closed out so the article can eventually
			// promote (spec §4.G step 7 waits on ALL matches).
			continue
		}
		withContract = append(withContract, c)
	}

	for start := 0; start < len(withContract); start += w.cfg.ChunkSize {
		end := start + w.cfg.ChunkSize
		if end > len(withContract) {
			end = len(withContract)
		}
		chunk := withContract[start:end]

		for ticker, result := range w.validateChunk(ctx, a, insight, chunk) {
			byTicker[ticker] = result
		}
	}

	now := time.Now().UTC()
	for _, c := range candidates {
		result := domain.SynthesizedDefault("")
		if c.Contract != nil {
			if r, ok := byTicker[c.Contract.ContractTicker]; ok {
				result = r
			} else {
				result = domain.SynthesizedDefault(c.Contract.ContractTicker)
			}
		}

		if err := w.store.SaveValidation(ctx, c.Match.ID, result, now); err != nil {
			slog.Error("validation: save failed", "match_id", c.Match.ID, "err", err)
			continue
		}

		if shouldAlert(result, w.cfg.MinConfidence) {
			w.emitAlert(ctx, a, c, result, now)
		}
	}

	return w.maybePromote(ctx, a)
}

func shouldAlert(result domain.ValidationResult, minConfidence float64) bool {
	return result.IsRelevant && result.Confidence >= minConfidence && result.SuggestedPosition != domain.PositionHold
}

func (w *Worker) maybePromote(ctx context.Context, a domain.Article) error {
	remaining, err := w.store.RemainingUnvalidatedCount(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("count remaining: %w", err)
	}
	if remaining > 0 {
		return nil
	}
	return w.store.SetArticleValidated(ctx, a.ID, time.Now().UTC())
}

// parseInsight calls LLMProvider.ParseArticle, falling back to a keyword
// heuristic on failure (spec §4.G step 2).
func (w *Worker) parseInsight(ctx context.Context, a domain.Article) domain.Insight {
	insight, err := w.llm.ParseArticle(ctx, a.Title, a.Content)
	if err != nil {
		slog.Warn("validation: parseArticle failed, using keyword heuristic", "article_id", a.ID, "err", err)
		return keywordInsight(a.Title, a.Content)
	}
	insight.ClampRanges()
	return insight
}

// validateChunk validates one chunk (<=ChunkSize contracts) in a single LLM
// call, falling back to per-contract calls on a transport failure, and
// keyed results by contractTicker.
func (w *Worker) validateChunk(ctx context.Context, a domain.Article, insight domain.Insight, chunk []domain.CandidateMatch) map[string]domain.ValidationResult {
	prompt := buildChunkPrompt(a, insight, chunk)
	reply, err := w.llm.Complete(ctx, prompt, validationSystemPrompt)
	if err != nil {
		slog.Warn("validation: chunk call failed, falling back per-contract", "article_id", a.ID, "err", err)
		return w.validatePerContract(ctx, a, insight, chunk)
	}

	raw, ok := recoverJSONArray(reply)
	if !ok {
		return synthesizeAll(chunk)
	}

	byTicker := make(map[string]domain.ValidationResult, len(raw))
	for _, r := range raw {
		vr := fromRaw(r)
		vr.Clamp()
		byTicker[vr.ContractID] = vr
	}

	out := make(map[string]domain.ValidationResult, len(chunk))
	for _, c := range chunk {
		ticker := c.Contract.ContractTicker
		if vr, ok := byTicker[ticker]; ok {
			out[ticker] = vr
		} else {
			out[ticker] = domain.SynthesizedDefault(ticker)
		}
	}
	return out
}

// validatePerContract retries one contract at a time, falling back to the
// keyword heuristic when even the single-contract call fails (spec §4.G
// step 4).
func (w *Worker) validatePerContract(ctx context.Context, a domain.Article, insight domain.Insight, chunk []domain.CandidateMatch) map[string]domain.ValidationResult {
	out := make(map[string]domain.ValidationResult, len(chunk))
	for _, c := range chunk {
		ticker := c.Contract.ContractTicker
		prompt := buildChunkPrompt(a, insight, []domain.CandidateMatch{c})
		reply, err := w.llm.Complete(ctx, prompt, validationSystemPrompt)
		if err != nil {
			out[ticker] = keywordValidate(ticker, c.Contract.Title, insight)
			continue
		}
		raw, ok := recoverJSONArray(reply)
		if !ok || len(raw) == 0 {
			out[ticker] = keywordValidate(ticker, c.Contract.Title, insight)
			continue
		}
		vr := fromRaw(raw[0])
		vr.ContractID = ticker
		vr.Clamp()
		out[ticker] = vr
	}
	return out
}

func synthesizeAll(chunk []domain.CandidateMatch) map[string]domain.ValidationResult {
	out := make(map[string]domain.ValidationResult, len(chunk))
	for _, c := range chunk {
		out[c.Contract.ContractTicker] = domain.SynthesizedDefault(c.Contract.ContractTicker)
	}
	return out
}

func fromRaw(r rawValidationResult) domain.ValidationResult {
	return domain.ValidationResult{
		ContractID:        r.ContractID,
		IsRelevant:        r.IsRelevant,
		RelevanceScore:    r.RelevanceScore,
		MatchedEntities:   r.MatchedEntities,
		MatchedEvents:     r.MatchedEvents,
		Reasoning:         r.Reasoning,
		SuggestedPosition: domain.Position(strings.ToLower(r.SuggestedPosition)),
		Confidence:        r.Confidence,
		Risks:             r.Risks,
		Opportunities:     r.Opportunities,
	}
}

// emitAlert applies the confidence-threshold and cooldown filters, sends
// the alert, and places an order if trading is enabled (spec §4.G-alert).
func (w *Worker) emitAlert(ctx context.Context, a domain.Article, c domain.CandidateMatch, result domain.ValidationResult, now time.Time) {
	if result.Confidence < w.cfg.AlertConfidence {
		slog.Info("alert.suppressed.threshold", "market_url", c.Market.URL, "confidence", result.Confidence)
		return
	}
	if !w.history.Allow(c.Market.URL, now, w.cfg.Cooldown) {
		slog.Info("alert.suppressed.cooldown", "market_url", c.Market.URL)
		return
	}

	currentPrice := c.Contract.NoPrice
	if result.SuggestedPosition == domain.PositionBuy {
		currentPrice = c.Contract.YesPrice
	}

	payload := domain.AlertPayload{
		NewsTitle:     a.Title,
		NewsURL:       a.URL,
		MarketTitle:   c.Market.Title,
		MarketURL:     c.Market.URL,
		ContractTitle: c.Contract.Title,
		Position:      result.SuggestedPosition,
		Confidence:    result.Confidence,
		CurrentPrice:  currentPrice,
		Reasoning:     result.Reasoning,
		Timestamp:     now,
	}

	if err := w.sink.Send(ctx, payload); err != nil {
		slog.Error("alert.send failed", "market_url", c.Market.URL, "err", err)
		return
	}
	if err := w.store.MarkAlertSent(ctx, c.Match.ID, now); err != nil {
		slog.Error("validation: mark alert sent failed", "match_id", c.Match.ID, "err", err)
	}
	slog.Info("alert.sent", "market_url", c.Market.URL, "position", result.SuggestedPosition, "confidence", result.Confidence)

	w.maybePlaceOrder(ctx, c, result, currentPrice)
}

// maybePlaceOrder submits (or dry-run logs) the order implied by an
// emitted alert (spec §4.G step "Order placement").
func (w *Worker) maybePlaceOrder(ctx context.Context, c domain.CandidateMatch, result domain.ValidationResult, currentPrice decimal.Decimal) {
	quantity := 10 * int(math.Floor(result.Confidence*5))

	if !w.cfg.TradingEnabled || w.cfg.DryRun {
		slog.Info("order.intended", "contract_ticker", c.Contract.ContractTicker, "position", result.SuggestedPosition, "quantity", quantity, "dry_run", w.cfg.DryRun)
		return
	}

	platform, ok := w.platforms[c.Market.Platform]
	if !ok {
		slog.Error("order: no platform adapter configured", "platform", c.Market.Platform)
		return
	}

	side := "no"
	if result.SuggestedPosition == domain.PositionBuy {
		side = "yes"
	}
	price, _ := currentPrice.Float64()

	req := ports.PlaceOrderRequest{
		ContractTicker: c.Contract.ContractTicker,
		Side:           side,
		Quantity:       quantity,
		Type:           "limit",
		LimitPrice:     &price,
	}

	if _, err := platform.PlaceOrder(ctx, req); err != nil {
		slog.Error("order.place failed", "contract_ticker", c.Contract.ContractTicker, "err", err)
	}
}
