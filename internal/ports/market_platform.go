package ports

import (
	"context"

	"github.com/marketsignal/newsmatch/internal/domain"
)

// PlaceOrderRequest is the order an operator (via ValidationWorker) wants to
// submit to a platform.
type PlaceOrderRequest struct {
	ContractTicker string
	Side           string // "yes" or "no"
	Quantity       int
	Type           string // "limit" or "market"
	LimitPrice     *float64
}

// PlacedOrder acknowledges an order submission.
type PlacedOrder struct {
	OrderID     string
	Status      string
	FilledQty   int
	AvgPrice    float64
	Timestamp   int64
}

// MarketPlatform is one external prediction-market platform. Its full
// listing comes in either shape named in spec §4.D, via ListAllGrouped or
// ListAllFlat; MarketSyncer tries the grouped one first and adapts.
type MarketPlatform interface {
	// Name is the platform's stable string identifier, used as a namespace
	// for tickers.
	Name() string

	// ListAllGrouped returns the platform's full market listing already
	// grouped into markets-with-contracts, or (nil, false, nil) if this
	// platform only supports the flat shape.
	ListAllGrouped(ctx context.Context) (markets []domain.PlatformMarket, ok bool, err error)

	// ListAllFlat returns the platform's full market listing as a flat list
	// of contracts, or (nil, false, nil) if this platform only supports the
	// grouped shape.
	ListAllFlat(ctx context.Context) (contracts []FlatContract, ok bool, err error)

	// GetContract fetches a single contract by ticker, or (nil, nil) if it
	// does not exist.
	GetContract(ctx context.Context, ticker string) (*domain.PlatformContract, error)

	// PlaceOrder submits an order and returns its acknowledgement.
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (PlacedOrder, error)
}

// FlatContract is one contract as returned by the flat listing shape, along
// with the raw metadata MarketSyncer needs to extract an event ticker (spec
// §4.D step 1).
type FlatContract struct {
	domain.PlatformContract
	ID string // contract id, used to derive an event ticker when metadata lacks one
}
