package ports

import (
	"context"

	"github.com/marketsignal/newsmatch/internal/domain"
)

// AlertSink delivers one alert to an operator-facing channel (email, desktop
// notification, chat, console, ...). Multiple sinks are composed.
type AlertSink interface {
	Send(ctx context.Context, alert domain.AlertPayload) error
}
