// Package notify holds the Notification Gateway drivers.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/storefront/identity-service/internal/core/domain"
)

// LogNotifier writes messages to the logger instead of delivering them.
// Intended for local development.
type LogNotifier struct {
	log         zerolog.Logger
	includeBody bool
}

// NewLogNotifier returns a LogNotifier. Bodies carry one-time codes and
// passwords, so they are only logged when includeBody is set.
func NewLogNotifier(log zerolog.Logger, includeBody bool) *LogNotifier {
	return &LogNotifier{log: log, includeBody: includeBody}
}

func (n *LogNotifier) Send(_ context.Context, msg domain.Message) error {
	ev := n.log.Info().
		Str("driver", "log").
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Int("body_bytes", len(msg.Body))
	if n.includeBody {
		ev = ev.Str("body", msg.Body)
	}
	ev.Msg("notification")
	return nil
}
