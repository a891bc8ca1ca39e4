package alertsink

import (
	"context"
	"errors"
	"log/slog"

	"github.com/marketsignal/newsmatch/internal/domain"
	"github.com/marketsignal/newsmatch/internal/ports"
)

// Composite fans one alert out to every configured sink. A failing sink is
// logged, not fatal — one broken notification channel must never block the
// others or the validation worker's loop.
type Composite struct {
	sinks []ports.AlertSink
}

// NewComposite wraps sinks into a single ports.AlertSink.
func NewComposite(sinks ...ports.AlertSink) *Composite {
	return &Composite{sinks: sinks}
}

// Send delivers alert to every sink, returning a combined error only if all
// of them failed.
func (c *Composite) Send(ctx context.Context, alert domain.AlertPayload) error {
	var errs []error
	for _, sink := range c.sinks {
		if err := sink.Send(ctx, alert); err != nil {
			slog.Error("alertsink.send failed", "err", err)
			errs = append(errs, err)
		}
	}
	if len(errs) == len(c.sinks) && len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
