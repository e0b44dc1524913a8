package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"github.com/nholik/goact-stack/internal/transition"
	"github.com/rs/zerolog"
)

const defaultWebhookTemplate = `{"target":{{ toJson .Target }},"generated_at":{{ toJson .GeneratedAt }},"transitions":{{ toJson .Transitions }}}`

// WebhookPayload is the template context for webhook notifications.
type WebhookPayload struct {
	Target      string
	Transitions []transition.Transition
	GeneratedAt time.Time
}

// WebhookNotifier sends transition notifications to a generic webhook.
type WebhookNotifier struct {
	logger   zerolog.Logger
	template *template.Template
	poster   *httpPoster
	now      func() time.Time
}

// NewWebhookNotifier creates a webhook notifier with the provided template.
// It returns nil when webhookURL is empty.
func NewWebhookNotifier(logger zerolog.Logger, webhookURL string, tmpl string, timing Timing, recorder ResultRecorder) (*WebhookNotifier, error) {
	if webhookURL == "" {
		return nil, nil
	}
	if tmpl == "" {
		tmpl = defaultWebhookTemplate
	}

	parsed, err := template.New("webhook").Funcs(template.FuncMap{
		"toJson": func(v any) (string, error) {
			encoded, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return string(encoded), nil
		},
	}).Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parse webhook template: %w", err)
	}

	return &WebhookNotifier{
		logger:   logger,
		template: parsed,
		poster:   newHTTPPoster(logger, "webhook", webhookURL, "application/json", timing, recorder),
		now:      time.Now,
	}, nil
}

// Notify implements Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, target string, transitions []transition.Transition) error {
	if n == nil || len(transitions) == 0 {
		return nil
	}
	label := targetLabel(target)

	var buf bytes.Buffer
	payload := WebhookPayload{
		Target:      label,
		Transitions: transitions,
		GeneratedAt: n.now().UTC(),
	}
	if err := n.template.Execute(&buf, payload); err != nil {
		return fmt.Errorf("render webhook template: %w", err)
	}

	if err := n.poster.deliver(ctx, label, buf.Bytes()); err != nil {
		return err
	}

	n.logger.Debug().
		Str("target", label).
		Int("transitions", len(transitions)).
		Msg("webhook notification sent")

	return nil
}
