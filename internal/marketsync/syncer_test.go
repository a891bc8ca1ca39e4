package marketsync

import (
	"context"
	"testing"
	"time"

	"github.com/marketsignal/newsmatch/internal/domain"
	"github.com/marketsignal/newsmatch/internal/loop"
	"github.com/marketsignal/newsmatch/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlatform struct {
	name    string
	grouped []domain.PlatformMarket
	hasGrouped bool
	flat    []ports.FlatContract
	hasFlat bool
	err     error
}

func (p *fakePlatform) Name() string { return p.name }
func (p *fakePlatform) ListAllGrouped(ctx context.Context) ([]domain.PlatformMarket, bool, error) {
	if p.err != nil {
		return nil, false, p.err
	}
	return p.grouped, p.hasGrouped, nil
}
func (p *fakePlatform) ListAllFlat(ctx context.Context) ([]ports.FlatContract, bool, error) {
	if p.err != nil {
		return nil, false, p.err
	}
	return p.flat, p.hasFlat, nil
}
func (p *fakePlatform) GetContract(ctx context.Context, ticker string) (*domain.PlatformContract, error) {
	return nil, nil
}
func (p *fakePlatform) PlaceOrder(ctx context.Context, req ports.PlaceOrderRequest) (ports.PlacedOrder, error) {
	return ports.PlacedOrder{}, nil
}

type fakeMarketRow struct {
	market   domain.Market
	seenThisCycle bool
}

// fakeSyncStore is an in-memory Store keyed by (platform, eventTicker) for
// markets and (platform, contractTicker) for contracts.
type fakeSyncStore struct {
	markets   map[string]*fakeMarketRow
	contracts map[string]domain.Contract

	deactivatedMarketCalls   int
	deactivatedContractCalls int
}

func newFakeSyncStore() *fakeSyncStore {
	return &fakeSyncStore{markets: make(map[string]*fakeMarketRow), contracts: make(map[string]domain.Contract)}
}

func (s *fakeSyncStore) key(platform, ticker string) string { return platform + "|" + ticker }

func (s *fakeSyncStore) UpsertMarket(ctx context.Context, m domain.Market) (domain.Market, bool, bool, error) {
	k := s.key(m.Platform, m.EventTicker)
	existing, ok := s.markets[k]
	if !ok {
		m.IsActive = true
		s.markets[k] = &fakeMarketRow{market: m}
		return m, true, true, nil
	}

	titleChanged := existing.market.Title != m.Title
	existing.market.Title = m.Title
	existing.market.URL = m.URL
	existing.market.Category = m.Category
	existing.market.EndDate = m.EndDate
	existing.market.IsActive = true
	existing.market.LastSyncedAt = m.LastSyncedAt
	return existing.market, titleChanged, false, nil
}

func (s *fakeSyncStore) UpsertContract(ctx context.Context, c domain.Contract) error {
	s.contracts[s.key("", c.ContractTicker)] = c
	return nil
}

func (s *fakeSyncStore) DeactivateStaleMarkets(ctx context.Context, platform string, seen []string, batchSize int) error {
	s.deactivatedMarketCalls++
	seenSet := make(map[string]bool, len(seen))
	for _, t := range seen {
		seenSet[t] = true
	}
	for k, row := range s.markets {
		if row.market.Platform != platform {
			continue
		}
		if !seenSet[row.market.EventTicker] {
			row.market.IsActive = false
		}
		_ = k
	}
	return nil
}

func (s *fakeSyncStore) DeactivateStaleContracts(ctx context.Context, platform string, seen []string, batchSize int) error {
	s.deactivatedContractCalls++
	seenSet := make(map[string]bool, len(seen))
	for _, t := range seen {
		seenSet[t] = true
	}
	for k, c := range s.contracts {
		if !seenSet[c.ContractTicker] {
			c.IsActive = false
			s.contracts[k] = c
		}
	}
	return nil
}

func grouped(eventTicker, title string) domain.PlatformMarket {
	return domain.PlatformMarket{
		EventTicker: eventTicker,
		Title:       title,
		Contracts: []domain.PlatformContract{
			{ContractTicker: eventTicker + "-YES", Title: title},
		},
	}
}

func TestSyncer_Deactivation(t *testing.T) {
	store := newFakeSyncStore()
	platform := &fakePlatform{name: "kalshi", hasGrouped: true, grouped: []domain.PlatformMarket{
		grouped("KX-A", "Market A"),
		grouped("KX-B", "Market B"),
	}}
	s := New(platform, store, nil, 100)

	// First cycle: both markets seen and active.
	outcome, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, loop.Worked, outcome)
	assert.True(t, store.markets[store.key("kalshi", "KX-A")].market.IsActive)
	assert.True(t, store.markets[store.key("kalshi", "KX-B")].market.IsActive)

	// Second cycle: platform now only returns KX-A.
	platform.grouped = []domain.PlatformMarket{grouped("KX-A", "Market A")}
	firstSync := store.markets[store.key("kalshi", "KX-A")].market.LastSyncedAt

	_, err = s.RunOnce(context.Background())
	require.NoError(t, err)

	a := store.markets[store.key("kalshi", "KX-A")].market
	b := store.markets[store.key("kalshi", "KX-B")].market
	assert.True(t, a.IsActive, "KX-A was seen again, stays active")
	assert.True(t, a.LastSyncedAt.After(firstSync) || a.LastSyncedAt.Equal(firstSync), "lastSyncedAt bumped")
	assert.False(t, b.IsActive, "KX-B was absent, becomes inactive")
}

func TestSyncer_UnchangedSnapshotIsNoOpExceptLastSynced(t *testing.T) {
	store := newFakeSyncStore()
	platform := &fakePlatform{name: "kalshi", hasGrouped: true, grouped: []domain.PlatformMarket{
		grouped("KX-A", "Market A"),
	}}
	s := New(platform, store, nil, 100)

	_, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	first := store.markets[store.key("kalshi", "KX-A")].market

	time.Sleep(time.Millisecond)
	_, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	second := store.markets[store.key("kalshi", "KX-A")].market

	assert.Equal(t, first.Title, second.Title)
	assert.Equal(t, first.URL, second.URL)
	assert.Equal(t, first.Category, second.Category)
	assert.True(t, second.IsActive)
	assert.True(t, second.LastSyncedAt.After(first.LastSyncedAt))
}

func TestSyncer_EnqueuesEmbeddingForNewMarkets(t *testing.T) {
	store := newFakeSyncStore()
	platform := &fakePlatform{name: "kalshi", hasGrouped: true, grouped: []domain.PlatformMarket{
		grouped("KX-A", "Market A"),
	}}

	var enqueued []domain.Market
	embedder := enqueuerFunc(func(ctx context.Context, markets []domain.Market) error {
		enqueued = append(enqueued, markets...)
		return nil
	})

	s := New(platform, store, embedder, 100)
	_, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, enqueued, 1)
	assert.Equal(t, "KX-A", enqueued[0].EventTicker)
}

type enqueuerFunc func(ctx context.Context, markets []domain.Market) error

func (f enqueuerFunc) EnqueueMarkets(ctx context.Context, markets []domain.Market) error {
	return f(ctx, markets)
}

func TestSyncer_FlatShapeGroupsByEventTicker(t *testing.T) {
	store := newFakeSyncStore()
	c1 := ports.FlatContract{ID: "KXFED-24-YES"}
	c1.ContractTicker = "KXFED-24-YES"
	c1.Title = "Fed raises rates"
	c2 := ports.FlatContract{ID: "KXFED-24-NO"}
	c2.ContractTicker = "KXFED-24-NO"
	c2.Title = "Fed holds rates"

	platform := &fakePlatform{name: "kalshi", hasFlat: true, flat: []ports.FlatContract{c1, c2}}
	s := New(platform, store, nil, 100)

	outcome, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, loop.Worked, outcome)
	row, ok := store.markets[store.key("kalshi", "KXFED-24")]
	require.True(t, ok)
	assert.Equal(t, "KXFED-24", row.market.EventTicker)
	assert.Len(t, store.contracts, 2)
}

func TestSyncer_FetchErrorBacksOff(t *testing.T) {
	store := newFakeSyncStore()
	platform := &fakePlatform{name: "kalshi", err: assertErr{}}
	s := New(platform, store, nil, 100)

	_, err := s.RunOnce(context.Background())
	assert.Error(t, err)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
