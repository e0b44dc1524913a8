package notify

import (
	"context"

	"github.com/nholik/goact-stack/internal/transition"
)

// Notifier delivers health transition alerts to external systems.
type Notifier interface {
	Notify(ctx context.Context, target string, transitions []transition.Transition) error
}

func targetLabel(target string) string {
	if target == "" {
		return "default"
	}
	return target
}
