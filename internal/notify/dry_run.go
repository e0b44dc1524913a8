package notify

import (
	"context"

	"github.com/nholik/goact-stack/internal/transition"
	"github.com/rs/zerolog"
)

// DryRunNotifier logs transitions without sending notifications.
type DryRunNotifier struct {
	logger zerolog.Logger
	inner  Notifier
}

// NewDryRunNotifier returns a notifier that suppresses delivery and logs instead.
func NewDryRunNotifier(logger zerolog.Logger, inner Notifier) *DryRunNotifier {
	return &DryRunNotifier{logger: logger, inner: inner}
}

// Notify implements Notifier.
func (n *DryRunNotifier) Notify(_ context.Context, target string, transitions []transition.Transition) error {
	for _, change := range transitions {
		n.logger.Info().
			Str("target", targetLabel(target)).
			Str("previous_state", string(change.PreviousKind)).
			Str("current_state", string(change.CurrentKind)).
			Str("status", change.CurrentStatus).
			Str("message", change.Message).
			Msg("[DRY-RUN] Would notify")
	}
	return nil
}
