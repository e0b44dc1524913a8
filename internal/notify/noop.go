package notify

import (
	"context"

	"github.com/nholik/goact-stack/internal/transition"
	"github.com/rs/zerolog"
)

// NoopNotifier stands in for a channel that is not configured. The
// coordinator still logs every health transition at info level; the
// notifier only records at debug level that delivery was skipped, and the
// webhook channel, when configured, keeps delivering alongside it.
type NoopNotifier struct {
	logger zerolog.Logger
	reason string
}

// NewNoop logs reason once at startup and returns a notifier that skips
// delivery.
func NewNoop(logger zerolog.Logger, reason string) *NoopNotifier {
	if reason != "" {
		logger.Info().Msg(reason)
	}
	return &NoopNotifier{logger: logger, reason: reason}
}

// Notify implements Notifier. It never fails.
func (n *NoopNotifier) Notify(_ context.Context, target string, transitions []transition.Transition) error {
	if len(transitions) == 0 {
		return nil
	}
	n.logger.Debug().
		Str("backend_url", target).
		Int("transitions", len(transitions)).
		Str("reason", n.reason).
		Msg("transition notification skipped")
	return nil
}
