package health

import "time"

// Kind identifies which variant of a ViewState holds.
type Kind string

const (
	KindLoading Kind = "LOADING"
	KindReady   Kind = "READY"
	KindFailed  Kind = "FAILED"
)

// FallbackMessage is displayed for a failure that carries no message.
const FallbackMessage = "disconnected"

// HealthStatus is the payload returned by the health endpoint.
type HealthStatus struct {
	Status string `json:"status"`
}

// ViewState is the tri-state model driving what the status card displays.
// Exactly one of Loading, Ready and Failed holds; Status is only meaningful
// for Ready and Message only for Failed.
type ViewState struct {
	Kind      Kind         `json:"state"`
	Status    HealthStatus `json:"health,omitempty"`
	Message   string       `json:"error,omitempty"`
	CheckedAt time.Time    `json:"checked_at,omitempty"`
}

// Loading returns the in-flight state.
func Loading() ViewState {
	return ViewState{Kind: KindLoading}
}

// Ready returns the state for a successful check.
func Ready(status HealthStatus, checkedAt time.Time) ViewState {
	return ViewState{Kind: KindReady, Status: status, CheckedAt: checkedAt}
}

// Failed returns the state for a failed check.
func Failed(message string, checkedAt time.Time) ViewState {
	return ViewState{Kind: KindFailed, Message: message, CheckedAt: checkedAt}
}

// IsLoading reports whether a check is in flight.
func (s ViewState) IsLoading() bool { return s.Kind == KindLoading }

// IsReady reports whether the last check succeeded.
func (s ViewState) IsReady() bool { return s.Kind == KindReady }

// IsFailed reports whether the last check failed.
func (s ViewState) IsFailed() bool { return s.Kind == KindFailed }

// Settled reports whether the state is the outcome of a completed check.
func (s ViewState) Settled() bool {
	return s.Kind == KindReady || s.Kind == KindFailed
}

// DisplayText returns the text shown on the status line.
func (s ViewState) DisplayText() string {
	switch s.Kind {
	case KindReady:
		return s.Status.Status
	case KindFailed:
		if s.Message == "" {
			return FallbackMessage
		}
		return s.Message
	default:
		return ""
	}
}
