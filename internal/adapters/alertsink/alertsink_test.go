package alertsink

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsignal/newsmatch/internal/domain"
)

func TestConsole_SendRendersAlert(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleWriter(&buf)

	err := c.Send(context.Background(), domain.AlertPayload{
		NewsTitle:     "Fed cuts rates by 50bps",
		MarketTitle:   "Fed decision in March",
		ContractTitle: "Yes",
		Position:      domain.PositionBuy,
		Confidence:    0.91,
		CurrentPrice:  decimal.NewFromFloat(0.62),
		Reasoning:     "rate cut directly moves this market",
		Timestamp:     time.Now(),
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "ALERT")
	assert.Contains(t, buf.String(), "rate cut directly moves this market")
}

type failingSink struct{ err error }

func (f *failingSink) Send(ctx context.Context, alert domain.AlertPayload) error { return f.err }

type okSink struct{ sent int }

func (o *okSink) Send(ctx context.Context, alert domain.AlertPayload) error {
	o.sent++
	return nil
}

func TestComposite_OneFailureDoesNotBlockOthers(t *testing.T) {
	ok := &okSink{}
	bad := &failingSink{err: errors.New("smtp down")}
	c := NewComposite(ok, bad)

	err := c.Send(context.Background(), domain.AlertPayload{})
	require.NoError(t, err)
	assert.Equal(t, 1, ok.sent)
}

func TestComposite_AllFailuresReturnError(t *testing.T) {
	bad1 := &failingSink{err: errors.New("a")}
	bad2 := &failingSink{err: errors.New("b")}
	c := NewComposite(bad1, bad2)

	err := c.Send(context.Background(), domain.AlertPayload{})
	assert.Error(t, err)
}
