// Package marketsync implements MarketSyncer (spec §4.D): reconciling one
// platform's market/contract universe into the Store, grouping flat
// contracts into markets, and deactivating stragglers.
package marketsync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/marketsignal/newsmatch/internal/domain"
	"github.com/marketsignal/newsmatch/internal/loop"
	"github.com/marketsignal/newsmatch/internal/ports"
)

// maxEmbedEnqueuePerCycle caps how many markets are handed to the embedding
// path per sync cycle (spec §4.D step 6).
const maxEmbedEnqueuePerCycle = 200

// Store is the narrow slice of ports.Store MarketSyncer needs.
type Store interface {
	UpsertMarket(ctx context.Context, m domain.Market) (result domain.Market, titleChanged bool, created bool, err error)
	UpsertContract(ctx context.Context, c domain.Contract) error
	DeactivateStaleMarkets(ctx context.Context, platform string, seenEventTickers []string, batchSize int) error
	DeactivateStaleContracts(ctx context.Context, platform string, seenContractTickers []string, batchSize int) error
}

// EmbeddingEnqueuer is handed markets that need a fresh embedding; the
// EmbeddingWorker's market-embedding path consumes them (spec §4.E).
type EmbeddingEnqueuer interface {
	EnqueueMarkets(ctx context.Context, markets []domain.Market) error
}

// Syncer reconciles one MarketPlatform's listing into Store.
type Syncer struct {
	platform    ports.MarketPlatform
	store       Store
	embedder    EmbeddingEnqueuer
	batchSize   int // deactivation batch size, spec §4.D step 5
}

// New creates a Syncer for one platform.
func New(platform ports.MarketPlatform, store Store, embedder EmbeddingEnqueuer, deactivateBatchSize int) *Syncer {
	if deactivateBatchSize <= 0 {
		deactivateBatchSize = 10000
	}
	return &Syncer{platform: platform, store: store, embedder: embedder, batchSize: deactivateBatchSize}
}

// Runner wraps RunOnce in a loop.Runner using the platform-sync backoff
// curve (spec §4.B).
func (s *Syncer) Runner() *loop.Runner {
	return loop.New("marketsync."+s.platform.Name(), loop.PlatformSyncConfig(), s.RunOnce)
}

// RunOnce fetches the platform's full listing, groups it, upserts every
// market/contract, deactivates stragglers, and enqueues embeddings for
// new/changed/embedding-less markets (spec §4.D steps 1-6).
func (s *Syncer) RunOnce(ctx context.Context) (loop.Outcome, error) {
	cycleStart := time.Now().UTC()

	groups, err := s.fetchGroups(ctx)
	if err != nil {
		return loop.Idle, fmt.Errorf("marketsync.%s: fetch: %w", s.platform.Name(), err)
	}

	var (
		seenEventTickers    []string
		seenContractTickers []string
		toEmbed             []domain.Market
		upserted            int
	)

	for _, g := range groups {
		market, titleChanged, created, err := s.upsertGroup(ctx, g, cycleStart)
		if err != nil {
			slog.Error("marketsync: group upsert failed", "platform", s.platform.Name(), "event_ticker", g.eventTicker, "err", err)
			continue
		}
		upserted++
		seenEventTickers = append(seenEventTickers, g.eventTicker)
		for _, c := range g.contracts {
			seenContractTickers = append(seenContractTickers, c.ContractTicker)
		}

		if market.NeedsEmbedding(titleChanged) || created {
			if len(toEmbed) < maxEmbedEnqueuePerCycle {
				toEmbed = append(toEmbed, market)
			}
		}
	}

	// Deactivation happens only after every upsert in this cycle has landed
	// (spec §5 ordering guarantee).
	if err := s.store.DeactivateStaleMarkets(ctx, s.platform.Name(), seenEventTickers, s.batchSize); err != nil {
		return loop.Idle, fmt.Errorf("marketsync.%s: deactivate markets: %w", s.platform.Name(), err)
	}
	if err := s.store.DeactivateStaleContracts(ctx, s.platform.Name(), seenContractTickers, s.batchSize); err != nil {
		return loop.Idle, fmt.Errorf("marketsync.%s: deactivate contracts: %w", s.platform.Name(), err)
	}

	if s.embedder != nil && len(toEmbed) > 0 {
		if err := s.embedder.EnqueueMarkets(ctx, toEmbed); err != nil {
			slog.Warn("marketsync: embedding enqueue failed", "platform", s.platform.Name(), "err", err)
		}
	}

	slog.Info("marketsync.cycle", "platform", s.platform.Name(), "groups", len(groups), "upserted", upserted, "to_embed", len(toEmbed))

	if upserted > 0 {
		return loop.Worked, nil
	}
	return loop.Idle, nil
}

// group is one market's worth of contracts after shape-detection and
// grouping (spec §4.D step 1).
type group struct {
	eventTicker  string
	seriesTicker string
	title        string // non-empty only when the grouped shape supplied it directly
	url          string
	category     string
	endDate      *time.Time
	contracts    []ports.FlatContract
}

// fetchGroups calls the platform capability and adapts whichever shape it
// returns (spec §4.D step 1).
func (s *Syncer) fetchGroups(ctx context.Context) ([]group, error) {
	if grouped, ok, err := s.platform.ListAllGrouped(ctx); err != nil {
		return nil, err
	} else if ok {
		return groupsFromGrouped(grouped), nil
	}

	flat, ok, err := s.platform.ListAllFlat(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("platform %s returned neither grouped nor flat listing", s.platform.Name())
	}
	return groupsFromFlat(flat), nil
}

func groupsFromGrouped(markets []domain.PlatformMarket) []group {
	out := make([]group, 0, len(markets))
	for _, m := range markets {
		contracts := make([]ports.FlatContract, len(m.Contracts))
		for i, c := range m.Contracts {
			contracts[i] = ports.FlatContract{PlatformContract: c, ID: c.ContractTicker}
		}
		out = append(out, group{
			eventTicker:  m.EventTicker,
			seriesTicker: m.SeriesTicker,
			title:        m.Title,
			url:          m.URL,
			category:     m.Category,
			endDate:      m.EndDate,
			contracts:    contracts,
		})
	}
	return out
}

func groupsFromFlat(contracts []ports.FlatContract) []group {
	byTicker := make(map[string]*group)
	order := make([]string, 0)
	for _, c := range contracts {
		ticker := extractEventTicker(c)
		g, ok := byTicker[ticker]
		if !ok {
			g = &group{eventTicker: ticker}
			byTicker[ticker] = g
			order = append(order, ticker)
		}
		g.contracts = append(g.contracts, c)
	}
	out := make([]group, 0, len(order))
	for _, ticker := range order {
		out = append(out, *byTicker[ticker])
	}
	return out
}

// upsertGroup upserts one market and all of its contracts (spec §4.D steps
// 2-4).
func (s *Syncer) upsertGroup(ctx context.Context, g group, cycleStart time.Time) (domain.Market, bool, bool, error) {
	title := g.title
	if title == "" {
		title = deriveMarketTitle(g.contracts)
	}

	m := domain.Market{
		ID:           uuid.NewString(),
		Platform:     s.platform.Name(),
		EventTicker:  g.eventTicker,
		SeriesTicker: g.seriesTicker,
		Title:        title,
		URL:          g.url,
		Category:     g.category,
		EndDate:      g.endDate,
		IsActive:     true,
		LastSyncedAt: cycleStart,
	}

	result, titleChanged, created, err := s.store.UpsertMarket(ctx, m)
	if err != nil {
		return domain.Market{}, false, false, fmt.Errorf("upsert market %s: %w", g.eventTicker, err)
	}

	for _, c := range g.contracts {
		contract := domain.Contract{
			ID:             uuid.NewString(),
			ContractTicker: c.ContractTicker,
			MarketID:       result.ID,
			Title:          c.Title,
			YesPrice:       c.YesPrice,
			NoPrice:        c.NoPrice,
			Volume:         c.Volume,
			Liquidity:      c.Liquidity,
			IsActive:       true,
			LastSyncedAt:   cycleStart,
			Metadata:       c.Metadata,
		}
		if err := s.store.UpsertContract(ctx, contract); err != nil {
			slog.Error("marketsync: contract upsert failed", "platform", s.platform.Name(), "contract_ticker", c.ContractTicker, "err", err)
		}
	}

	return result, titleChanged, created, nil
}
