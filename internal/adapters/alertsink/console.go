// Package alertsink implements ports.AlertSink: console output and a
// fan-out composite over multiple sinks.
package alertsink

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/marketsignal/newsmatch/internal/domain"
)

// Console prints one alert as a single table row on receipt.
type Console struct {
	out io.Writer
}

// NewConsole creates a Console writing to stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter creates a Console writing to w, for tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// Send renders one alert as a table and its reasoning below it.
func (c *Console) Send(_ context.Context, alert domain.AlertPayload) error {
	fmt.Fprintf(c.out, "\n[%s] ALERT\n", alert.Timestamp.Format(time.Kitchen))

	table := tablewriter.NewWriter(c.out)
	table.Header("News", "Market", "Contract", "Position", "Confidence", "Price")
	table.Append(
		truncate(alert.NewsTitle, 40),
		truncate(alert.MarketTitle, 30),
		truncate(alert.ContractTitle, 24),
		string(alert.Position),
		fmt.Sprintf("%.2f", alert.Confidence),
		alert.CurrentPrice.String(),
	)
	table.Render()

	if alert.Reasoning != "" {
		fmt.Fprintf(c.out, "  reasoning: %s\n", alert.Reasoning)
	}
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
