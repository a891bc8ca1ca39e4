package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsignal/newsmatch/internal/ports"
)

func TestRESTPlatform_ListAllGrouped_PagesUntilCursorEmpty(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("cursor") == "" {
			json.NewEncoder(w).Encode(eventsResponse{
				Events: []eventDTO{{EventTicker: "EVT-1", Title: "First", Markets: []contractDTO{{Ticker: "EVT-1-Y", Active: true}}}},
				Cursor: "page2",
			})
			return
		}
		json.NewEncoder(w).Encode(eventsResponse{
			Events: []eventDTO{{EventTicker: "EVT-2", Title: "Second"}},
		})
	}))
	defer srv.Close()

	p := New("testplatform", srv.URL, "")
	markets, ok, err := p.ListAllGrouped(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, markets, 2)
	assert.Equal(t, "EVT-1", markets[0].EventTicker)
	require.Len(t, markets[0].Contracts, 1)
	assert.Equal(t, "EVT-1-Y", markets[0].Contracts[0].ContractTicker)
	assert.Equal(t, 2, calls)
}

func TestRESTPlatform_ListAllFlat_ReportsUnsupported(t *testing.T) {
	p := New("testplatform", "http://unused", "")
	contracts, ok, err := p.ListAllFlat(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, contracts)
}

func TestRESTPlatform_GetContract_NotFoundReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	p := New("testplatform", srv.URL, "")
	c, err := p.GetContract(context.Background(), "MISSING")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestRESTPlatform_PlaceOrder_MapsResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(orderResponseDTO{OrderID: "ord-1", Status: "filled", FilledQty: 10, AvgFillPrice: 0.55})
	}))
	defer srv.Close()

	p := New("testplatform", srv.URL, "secret-key")
	out, err := p.PlaceOrder(context.Background(), ports.PlaceOrderRequest{
		ContractTicker: "EVT-1-Y",
		Side:           "yes",
		Quantity:       10,
		Type:           "market",
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-1", out.OrderID)
	assert.Equal(t, "filled", out.Status)
	assert.Equal(t, 10, out.FilledQty)
}
