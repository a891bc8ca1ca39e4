package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Contract is a single yes/no outcome with live prices on a Market. Platform
// is inherited from the parent Market and never stored redundantly.
type Contract struct {
	ID             string
	ContractTicker string
	MarketID       string

	Title     string
	YesPrice  decimal.Decimal
	NoPrice   decimal.Decimal
	Volume    decimal.Decimal
	Liquidity decimal.Decimal

	IsActive     bool
	LastSyncedAt time.Time
	Metadata     map[string]string
}

// PlatformContract is the shape a MarketPlatform capability returns for a
// single contract, whether encountered flat or nested inside a
// PlatformMarket.
type PlatformContract struct {
	ContractTicker string
	Title          string
	YesPrice       decimal.Decimal
	NoPrice        decimal.Decimal
	Volume         decimal.Decimal
	Liquidity      decimal.Decimal
	IsActive       bool
	Metadata       map[string]string
}

// PlatformMarket is the "grouped" listing shape a MarketPlatform may return:
// a market with its contracts already nested.
type PlatformMarket struct {
	EventTicker  string
	SeriesTicker string
	Title        string
	URL          string
	Category     string
	EndDate      *time.Time
	Contracts    []PlatformContract
}

// ValidPrice reports whether p is a legal yes/no price: 0 <= p <= 1.
func ValidPrice(p decimal.Decimal) bool {
	return p.GreaterThanOrEqual(decimal.Zero) && p.LessThanOrEqual(decimal.NewFromInt(1))
}
