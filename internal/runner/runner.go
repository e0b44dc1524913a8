package runner

import (
	"context"

	"github.com/nholik/goact-stack/internal/health"
	"github.com/rs/zerolog"
)

// Monitor is the subset of the health monitor driven by the runner.
type Monitor interface {
	Activate(ctx context.Context) health.ViewState
	Refresh(ctx context.Context) health.ViewState
	LastError() error
}

// Runner performs the activation refresh and then one refresh per trigger.
type Runner struct {
	logger   zerolog.Logger
	monitor  Monitor
	triggers <-chan struct{}
	refresh  func(context.Context) health.ViewState
	onResult func(health.ViewState)
}

// Option customizes runner behavior.
type Option func(*Runner)

// WithTriggers sets the channel of refresh requests. A closed channel stops
// the runner.
func WithTriggers(triggers <-chan struct{}) Option {
	return func(r *Runner) {
		r.triggers = triggers
	}
}

// WithRefresh overrides the per-trigger refresh step.
func WithRefresh(refresh func(context.Context) health.ViewState) Option {
	return func(r *Runner) {
		r.refresh = refresh
	}
}

// WithResultHandler registers a callback for every refresh result,
// including the activation refresh.
func WithResultHandler(fn func(health.ViewState)) Option {
	return func(r *Runner) {
		r.onResult = fn
	}
}

// New constructs a Runner for the given monitor.
func New(logger zerolog.Logger, monitor Monitor, opts ...Option) *Runner {
	r := &Runner{
		logger:  logger,
		monitor: monitor,
	}
	if monitor != nil {
		r.refresh = monitor.Refresh
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run activates the monitor and blocks until the context is canceled or the
// trigger channel is closed.
func (r *Runner) Run(ctx context.Context) error {
	if r.monitor == nil {
		return errMissingMonitor
	}

	// Automatic refresh on activation
	r.report(r.monitor.Activate(ctx), "initial refresh failed")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("runner stopped")
			return nil
		case _, ok := <-r.triggers:
			if !ok {
				r.logger.Info().Msg("trigger source closed, runner stopped")
				return nil
			}
			r.report(r.refresh(ctx), "refresh failed")
		}
	}
}

func (r *Runner) report(state health.ViewState, msg string) {
	if state.IsFailed() {
		if err := wrapRuntime("refresh", r.monitor.LastError()); err != nil {
			r.logger.Debug().Err(err).Str("message", state.Message).Msg(msg)
		}
	}
	if r.onResult != nil {
		r.onResult(state)
	}
}
