package platform

import "github.com/shopspring/decimal"

// eventDTO is one event in the grouped listing shape: a market with its
// contracts nested underneath.
type eventDTO struct {
	EventTicker  string       `json:"event_ticker"`
	SeriesTicker string       `json:"series_ticker"`
	Title        string       `json:"title"`
	URL          string       `json:"url"`
	Category     string       `json:"category"`
	EndDate      string       `json:"end_date"`
	Markets      []contractDTO `json:"markets"`
}

type eventsResponse struct {
	Events []eventDTO `json:"events"`
	Cursor string     `json:"cursor"`
}

// contractDTO is one contract, whether nested inside an eventDTO or
// returned standalone by the flat listing / single-contract endpoints.
type contractDTO struct {
	Ticker    string          `json:"ticker"`
	Title     string          `json:"title"`
	YesPrice  decimal.Decimal `json:"yes_price"`
	NoPrice   decimal.Decimal `json:"no_price"`
	Volume    decimal.Decimal `json:"volume"`
	Liquidity decimal.Decimal `json:"liquidity"`
	Active    bool            `json:"active"`
	EventID   string          `json:"event_id"`
}

type contractsResponse struct {
	Contracts []contractDTO `json:"contracts"`
	Cursor    string        `json:"cursor"`
}

type orderRequestDTO struct {
	Ticker     string  `json:"ticker"`
	Side       string  `json:"side"`
	Quantity   int     `json:"quantity"`
	Type       string  `json:"type"`
	LimitPrice *float64 `json:"limit_price,omitempty"`
}

type orderResponseDTO struct {
	OrderID       string  `json:"order_id"`
	Status        string  `json:"status"`
	FilledQty     int     `json:"filled_quantity"`
	AvgFillPrice  float64 `json:"avg_fill_price"`
	CreatedAtUnix int64   `json:"created_at"`
}
