package monitor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nholik/goact-stack/internal/checker"
	"github.com/nholik/goact-stack/internal/health"
	"github.com/rs/zerolog"
)

// Listener is notified after every write to the view state.
type Listener func(prev, next health.ViewState)

// Observer receives the outcome of every applied check.
type Observer interface {
	ObserveCheck(outcome health.Outcome, duration time.Duration, state health.ViewState)
}

// Monitor owns the tri-state health view model of one backend.
//
// Overlapping refreshes are resolved in favor of the latest-issued call: a new
// refresh cancels the check it supersedes and results of superseded checks are
// never applied. Callers of a superseded refresh receive the outcome of the
// refresh that replaced it.
type Monitor struct {
	logger   zerolog.Logger
	checker  checker.Checker
	now      func() time.Time
	observer Observer

	mu         sync.Mutex
	state      health.ViewState
	lastErr    error
	generation uint64
	cancel     context.CancelFunc
	listeners  map[uint64]Listener
	nextID     uint64
	pending    []change

	// settled is closed once the latest-issued check is applied.
	settled chan struct{}

	// notifyMu is held by the goroutine dispatching pending changes.
	notifyMu sync.Mutex

	activateOnce sync.Once
}

// Option customizes a Monitor.
type Option func(*Monitor)

type change struct {
	prev health.ViewState
	next health.ViewState
}

// WithObserver registers an observer for applied check outcomes.
func WithObserver(observer Observer) Option {
	return func(m *Monitor) {
		m.observer = observer
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// New constructs a Monitor in the Loading state.
func New(logger zerolog.Logger, c checker.Checker, opts ...Option) *Monitor {
	m := &Monitor{
		logger:    logger,
		checker:   c,
		now:       time.Now,
		state:     health.Loading(),
		listeners: make(map[uint64]Listener),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns the current view state.
func (m *Monitor) Snapshot() health.ViewState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError returns the error behind the current Failed state, or nil.
func (m *Monitor) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Subscribe registers a listener and returns a function that removes it.
func (m *Monitor) Subscribe(listener Listener) func() {
	if listener == nil {
		return func() {}
	}
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = listener
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Activate performs the automatic first refresh. Only the first call checks;
// later calls return the current snapshot.
func (m *Monitor) Activate(ctx context.Context) health.ViewState {
	activated := false
	var result health.ViewState
	m.activateOnce.Do(func() {
		activated = true
		result = m.Refresh(ctx)
	})
	if !activated {
		return m.Snapshot()
	}
	return result
}

// Refresh checks the backend and blocks until the outcome is known.
func (m *Monitor) Refresh(ctx context.Context) health.ViewState {
	return <-m.Trigger(ctx)
}

// Trigger starts a refresh without waiting for it. The view state is Loading
// when Trigger returns. The channel yields one outcome and is then closed. If
// a newer refresh supersedes this one, the channel yields the state the newer
// refresh settles on; if ctx ends first, it yields this call's own
// unapplied outcome.
func (m *Monitor) Trigger(ctx context.Context) <-chan health.ViewState {
	checkCtx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.generation++
	gen := m.generation
	m.cancel = cancel
	m.settled = make(chan struct{})
	prev := m.state
	m.state = health.Loading()
	m.lastErr = nil
	m.pending = append(m.pending, change{prev: prev, next: m.state})
	m.mu.Unlock()

	m.dispatch()
	m.logger.Debug().Uint64("generation", gen).Msg("health check started")

	out := make(chan health.ViewState, 1)
	go func() {
		defer close(out)
		defer cancel()
		out <- m.run(ctx, checkCtx, gen)
	}()
	return out
}

func (m *Monitor) run(ctx, checkCtx context.Context, gen uint64) health.ViewState {
	start := m.now()
	status, err := m.checker.Check(checkCtx)
	duration := m.now().Sub(start)
	checkedAt := m.now().UTC()

	var result health.ViewState
	if err != nil {
		result = health.Failed(health.DisplayMessage(err), checkedAt)
	} else {
		result = health.Ready(status, checkedAt)
	}
	outcome := health.Classify(err)

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		m.logger.Debug().
			Uint64("generation", gen).
			Str("outcome", string(outcome)).
			Msg("superseded health check discarded")
		return m.awaitLatest(ctx, result)
	}
	prev := m.state
	m.state = result
	m.lastErr = err
	m.cancel = nil
	m.pending = append(m.pending, change{prev: prev, next: result})
	close(m.settled)
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn().
			Err(err).
			Str("outcome", string(outcome)).
			Dur("duration", duration).
			Msg("health check failed")
	} else {
		m.logger.Info().
			Str("status", status.Status).
			Dur("duration", duration).
			Msg("health check succeeded")
	}

	if m.observer != nil {
		m.observer.ObserveCheck(outcome, duration, result)
	}
	m.dispatch()
	return result
}

// awaitLatest blocks until the latest-issued check is applied and returns the
// settled state, or returns fallback when ctx ends first.
func (m *Monitor) awaitLatest(ctx context.Context, fallback health.ViewState) health.ViewState {
	for {
		m.mu.Lock()
		if m.state.Settled() {
			state := m.state
			m.mu.Unlock()
			return state
		}
		settled := m.settled
		m.mu.Unlock()

		select {
		case <-settled:
		case <-ctx.Done():
			return fallback
		}
	}
}

// dispatch delivers pending changes to listeners in write order. Listeners
// run outside mu and may read the snapshot or start another refresh.
func (m *Monitor) dispatch() {
	for {
		if !m.notifyMu.TryLock() {
			// The holder re-checks pending after unlocking.
			return
		}
		for {
			changes, listeners := m.takePending()
			if len(changes) == 0 {
				break
			}
			for _, c := range changes {
				for _, l := range listeners {
					l(c.prev, c.next)
				}
			}
		}
		m.notifyMu.Unlock()

		m.mu.Lock()
		more := len(m.pending) > 0
		m.mu.Unlock()
		if !more {
			return
		}
	}
}

func (m *Monitor) takePending() ([]change, []Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	changes := m.pending
	m.pending = nil
	if len(changes) == 0 || len(m.listeners) == 0 {
		return changes, nil
	}
	ids := make([]uint64, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, m.listeners[id])
	}
	return changes, listeners
}
