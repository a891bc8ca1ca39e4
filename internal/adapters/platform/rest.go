package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/marketsignal/newsmatch/internal/domain"
	"github.com/marketsignal/newsmatch/internal/ports"
)

var endDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02",
}

func parseEndDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range endDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

const eventsPageSize = 200

// RESTPlatform implements ports.MarketPlatform over a generic events/markets
// REST API. It only ever serves the grouped listing shape, which MarketSyncer
// asks for first; ListAllFlat reports itself unsupported.
type RESTPlatform struct {
	name   string
	client *Client
}

// New creates a RESTPlatform identified by name, talking to baseURL.
func New(name, baseURL, apiKey string) *RESTPlatform {
	return &RESTPlatform{name: name, client: NewClient(baseURL, apiKey)}
}

var _ ports.MarketPlatform = (*RESTPlatform)(nil)

// Name returns the platform's stable identifier.
func (p *RESTPlatform) Name() string {
	return p.name
}

// ListAllGrouped pages through /events until the API stops returning a
// cursor, mapping each page into domain.PlatformMarket.
func (p *RESTPlatform) ListAllGrouped(ctx context.Context) ([]domain.PlatformMarket, bool, error) {
	var markets []domain.PlatformMarket
	cursor := ""

	for {
		path := fmt.Sprintf("/events?limit=%d", eventsPageSize)
		if cursor != "" {
			path += "&cursor=" + cursor
		}

		var resp eventsResponse
		if err := p.client.get(ctx, path, &resp); err != nil {
			return nil, false, fmt.Errorf("platform.%s: list events: %w", p.name, err)
		}

		for _, e := range resp.Events {
			markets = append(markets, mapEvent(e))
		}

		if resp.Cursor == "" {
			break
		}
		cursor = resp.Cursor
	}

	return markets, true, nil
}

// ListAllFlat is unsupported by this platform; MarketSyncer uses
// ListAllGrouped instead.
func (p *RESTPlatform) ListAllFlat(ctx context.Context) ([]ports.FlatContract, bool, error) {
	return nil, false, nil
}

// GetContract fetches one contract by ticker.
func (p *RESTPlatform) GetContract(ctx context.Context, ticker string) (*domain.PlatformContract, error) {
	var dto contractDTO
	if err := p.client.get(ctx, "/markets/"+ticker, &dto); err != nil {
		return nil, fmt.Errorf("platform.%s: get contract %s: %w", p.name, ticker, err)
	}
	if dto.Ticker == "" {
		return nil, nil
	}
	c := mapContract(dto)
	return &c, nil
}

// PlaceOrder submits req and returns the platform's acknowledgement.
func (p *RESTPlatform) PlaceOrder(ctx context.Context, req ports.PlaceOrderRequest) (ports.PlacedOrder, error) {
	body := orderRequestDTO{
		Ticker:     req.ContractTicker,
		Side:       req.Side,
		Quantity:   req.Quantity,
		Type:       req.Type,
		LimitPrice: req.LimitPrice,
	}

	var resp orderResponseDTO
	if err := p.client.post(ctx, "/orders", body, &resp); err != nil {
		return ports.PlacedOrder{}, fmt.Errorf("platform.%s: place order: %w", p.name, err)
	}

	return ports.PlacedOrder{
		OrderID:   resp.OrderID,
		Status:    resp.Status,
		FilledQty: resp.FilledQty,
		AvgPrice:  resp.AvgFillPrice,
		Timestamp: resp.CreatedAtUnix,
	}, nil
}
