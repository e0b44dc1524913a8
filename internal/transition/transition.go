package transition

import (
	"sync"
	"time"

	"github.com/nholik/goact-stack/internal/health"
)

// Transition captures a change between two settled view states.
type Transition struct {
	PreviousKind   health.Kind `json:"previous_state"`
	CurrentKind    health.Kind `json:"current_state"`
	PreviousStatus string      `json:"previous_status,omitempty"`
	CurrentStatus  string      `json:"current_status,omitempty"`
	Message        string      `json:"message,omitempty"`
	At             time.Time   `json:"at"`
}

// Recovered reports whether the backend came back from a failure.
func (t Transition) Recovered() bool {
	return t.PreviousKind == health.KindFailed && t.CurrentKind == health.KindReady
}

// Detect compares the previously settled state with the next state.
// Loading states never produce a transition. With no previous settled state,
// only a failure is reported.
func Detect(prev *health.ViewState, next health.ViewState) (Transition, bool) {
	if !next.Settled() {
		return Transition{}, false
	}

	change := Transition{
		CurrentKind:   next.Kind,
		CurrentStatus: statusText(next),
		Message:       messageText(next),
		At:            next.CheckedAt,
	}

	if prev == nil || !prev.Settled() {
		if next.IsFailed() {
			return change, true
		}
		return Transition{}, false
	}

	change.PreviousKind = prev.Kind
	change.PreviousStatus = statusText(*prev)

	if prev.Kind != next.Kind {
		return change, true
	}
	// Ready -> Ready with a different reported status, e.g. "ok" -> "degraded".
	if next.IsReady() && prev.Status.Status != next.Status.Status {
		return change, true
	}
	return Transition{}, false
}

// Tracker remembers the last settled state across Loading gaps.
type Tracker struct {
	mu          sync.Mutex
	lastSettled *health.ViewState
}

// NewTracker constructs an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Observe records next and returns the transition it causes, if any.
func (t *Tracker) Observe(next health.ViewState) (Transition, bool) {
	if !next.Settled() {
		return Transition{}, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	change, ok := Detect(t.lastSettled, next)
	value := next
	t.lastSettled = &value
	return change, ok
}

func statusText(state health.ViewState) string {
	if state.IsReady() {
		return state.Status.Status
	}
	return ""
}

func messageText(state health.ViewState) string {
	if state.IsFailed() {
		return state.DisplayText()
	}
	return ""
}
