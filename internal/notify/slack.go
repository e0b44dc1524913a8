package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nholik/goact-stack/internal/health"
	"github.com/nholik/goact-stack/internal/transition"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

const (
	slackMaxBlocks = 50
	// header block + context block
	slackReservedBlocks = 2
	slackMaxTransitions = slackMaxBlocks - slackReservedBlocks
)

// SlackNotifier posts transition alerts to a Slack incoming webhook.
type SlackNotifier struct {
	logger zerolog.Logger
	timing Timing
	poster *httpPoster
}

// SlackOption customizes SlackNotifier behavior.
type SlackOption func(*slackSettings)

type slackSettings struct {
	timing   Timing
	recorder ResultRecorder
}

// WithSlackTiming overrides timing parameters.
func WithSlackTiming(timing Timing) SlackOption {
	return func(s *slackSettings) {
		s.timing = timing
	}
}

// WithSlackRecorder reports delivery results.
func WithSlackRecorder(recorder ResultRecorder) SlackOption {
	return func(s *slackSettings) {
		s.recorder = recorder
	}
}

// NewSlackNotifier creates a Slack notifier or a noop notifier when the webhook is empty.
func NewSlackNotifier(logger zerolog.Logger, webhookURL string, opts ...SlackOption) Notifier {
	if webhookURL == "" {
		return NewNoop(logger, "slack webhook not configured; slack notifications disabled")
	}

	settings := slackSettings{timing: DefaultTiming}
	for _, opt := range opts {
		opt(&settings)
	}

	return &SlackNotifier{
		logger: logger,
		timing: settings.timing,
		poster: newHTTPPoster(logger, "slack", webhookURL, "application/json", settings.timing, settings.recorder),
	}
}

// Notify implements Notifier.
func (n *SlackNotifier) Notify(ctx context.Context, target string, transitions []transition.Transition) error {
	if len(transitions) == 0 {
		return nil
	}
	label := targetLabel(target)

	messages := buildSlackMessages(label, transitions)
	for _, message := range messages {
		payload, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("marshal slack payload: %w", err)
		}
		if err := n.poster.deliver(ctx, label, payload); err != nil {
			return err
		}
	}

	n.logger.Debug().
		Str("target", label).
		Int("transitions", len(transitions)).
		Int("messages", len(messages)).
		Msg("slack notification sent")

	return nil
}

func buildSlackMessages(target string, transitions []transition.Transition) []slack.WebhookMessage {
	total := len(transitions)
	if total == 0 {
		return nil
	}

	parts := (total + slackMaxTransitions - 1) / slackMaxTransitions
	messages := make([]slack.WebhookMessage, 0, parts)
	for start := 0; start < total; start += slackMaxTransitions {
		end := start + slackMaxTransitions
		if end > total {
			end = total
		}
		part := start/slackMaxTransitions + 1
		messages = append(messages, buildSlackMessage(target, transitions[start:end], total, part, parts))
	}
	return messages
}

func buildSlackMessage(target string, transitions []transition.Transition, total, part, parts int) slack.WebhookMessage {
	summary := fmt.Sprintf("Backend %s: %d health transition(s)", target, total)
	if parts > 1 {
		summary = fmt.Sprintf("%s (part %d/%d)", summary, part, parts)
	}

	header := slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, summary, false, false))
	elements := []slack.MixedElement{
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("Endpoint: `%s`", target), false, false),
	}
	if parts > 1 {
		elements = append(elements, slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("Batch: %d/%d", part, parts), false, false))
	}

	blocks := []slack.Block{header, slack.NewContextBlock("", elements...)}
	for _, change := range transitions {
		blocks = append(blocks, buildTransitionBlock(change))
	}

	return slack.WebhookMessage{
		Text:   summary,
		Blocks: &slack.Blocks{BlockSet: blocks},
	}
}

func buildTransitionBlock(change transition.Transition) slack.Block {
	icon := ":red_circle:"
	if change.CurrentKind == health.KindReady {
		icon = ":large_green_circle:"
	}
	title := fmt.Sprintf("%s `%s` → `%s`", icon, stateLabel(change.PreviousKind, change.PreviousStatus), stateLabel(change.CurrentKind, change.CurrentStatus))
	text := slack.NewTextBlockObject(slack.MarkdownType, title, false, false)

	fields := make([]*slack.TextBlockObject, 0, 2)
	if change.Message != "" {
		fields = append(fields, slack.NewTextBlockObject(slack.MarkdownType, "*Error:*\n"+change.Message, false, false))
	}
	if !change.At.IsZero() {
		fields = append(fields, slack.NewTextBlockObject(slack.MarkdownType, "*Checked:*\n"+change.At.UTC().Format(time.RFC3339), false, false))
	}
	if len(fields) == 0 {
		fields = nil
	}
	return slack.NewSectionBlock(text, fields, nil)
}

func stateLabel(kind health.Kind, status string) string {
	switch {
	case kind == "":
		return "UNKNOWN"
	case kind == health.KindReady && status != "":
		return fmt.Sprintf("%s (%s)", kind, status)
	default:
		return string(kind)
	}
}
