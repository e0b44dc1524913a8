package healthcheck

import (
	"sync"
	"time"

	"github.com/nholik/goact-stack/internal/health"
)

// Snapshot describes the latest completed health check.
type Snapshot struct {
	LastCheckTime   *time.Time  `json:"last_check_time"`
	CheckDurationMS int64       `json:"check_duration_ms"`
	ChecksCompleted int         `json:"checks_completed"`
	State           health.Kind `json:"state,omitempty"`
}

// Tracker records completed monitor checks for the readiness endpoint.
type Tracker struct {
	mu              sync.RWMutex
	lastCheck       time.Time
	checkDuration   time.Duration
	checksCompleted int
	state           health.Kind
	ready           bool
}

// NewTracker constructs a new Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// ObserveCheck updates check timing and readiness.
func (t *Tracker) ObserveCheck(_ health.Outcome, duration time.Duration, state health.ViewState) {
	if t == nil {
		return
	}
	now := time.Now().UTC()
	t.mu.Lock()
	t.lastCheck = now
	t.checkDuration = duration
	t.checksCompleted++
	t.state = state.Kind
	t.ready = true
	t.mu.Unlock()
}

// Snapshot returns the current tracker snapshot.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	var last *time.Time
	if !t.lastCheck.IsZero() {
		value := t.lastCheck
		last = &value
	}
	return Snapshot{
		LastCheckTime:   last,
		CheckDurationMS: int64(t.checkDuration / time.Millisecond),
		ChecksCompleted: t.checksCompleted,
		State:           t.state,
	}
}

// Ready reports whether at least one check has completed.
func (t *Tracker) Ready() bool {
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ready
}
