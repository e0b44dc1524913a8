package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nholik/goact-stack/internal/checker"
	"github.com/nholik/goact-stack/internal/config"
	"github.com/nholik/goact-stack/internal/health"
	"github.com/nholik/goact-stack/internal/healthcheck"
	"github.com/nholik/goact-stack/internal/metrics"
	"github.com/nholik/goact-stack/internal/monitor"
	"github.com/nholik/goact-stack/internal/notify"
	"github.com/nholik/goact-stack/internal/runner"
	"github.com/nholik/goact-stack/internal/server"
	"github.com/nholik/goact-stack/internal/transition"
	"github.com/rs/zerolog"
)

const transitionQueueSize = 32

// Coordinator wires the monitor, its observers, notifications, the HTTP
// server and the refresh runner for one backend.
type Coordinator struct {
	logger      zerolog.Logger
	cfg         config.Config
	metrics     *metrics.Metrics
	tracker     *healthcheck.Tracker
	monitor     *monitor.Monitor
	notifier    notify.Notifier
	transitions *transition.Tracker
	queue       chan transition.Transition
	triggers    <-chan struct{}
	serve       bool

	checker checker.Checker
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithTriggers sets the source of manual refresh requests.
func WithTriggers(triggers <-chan struct{}) Option {
	return func(c *Coordinator) {
		c.triggers = triggers
	}
}

// WithNotifier replaces the notifier chain built from the configuration.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Coordinator) {
		c.notifier = n
	}
}

// WithChecker replaces the HTTP checker built from the configuration.
func WithChecker(ch checker.Checker) Option {
	return func(c *Coordinator) {
		c.checker = ch
	}
}

// WithoutServer disables the HTTP server.
func WithoutServer() Option {
	return func(c *Coordinator) {
		c.serve = false
	}
}

// New constructs a Coordinator from the configuration.
func New(logger zerolog.Logger, cfg config.Config, opts ...Option) (*Coordinator, error) {
	c := &Coordinator{
		logger:      logger,
		cfg:         cfg,
		metrics:     metrics.New(),
		tracker:     healthcheck.NewTracker(),
		transitions: transition.NewTracker(),
		queue:       make(chan transition.Transition, transitionQueueSize),
		serve:       true,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.checker == nil {
		httpChecker, err := NewChecker(cfg)
		if err != nil {
			return nil, err
		}
		c.checker = httpChecker
	}

	if c.notifier == nil {
		n, err := buildNotifier(logger, cfg, c.metrics)
		if err != nil {
			return nil, err
		}
		c.notifier = n
	}

	c.monitor = monitor.New(
		logger.With().Str("component", "monitor").Logger(),
		c.checker,
		monitor.WithObserver(observers{c.metrics, c.tracker}),
	)
	c.monitor.Subscribe(c.metrics.ObserveViewState)
	c.monitor.Subscribe(c.onStateChange)

	return c, nil
}

// NewChecker builds the HTTP checker for the configured backend.
func NewChecker(cfg config.Config) (*checker.HTTPChecker, error) {
	c, err := checker.NewHTTPChecker(cfg.BackendURL, cfg.HealthPath, cfg.RequestTimeout,
		checker.WithMaxBytes(cfg.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build health checker: %w", err)
	}
	return c, nil
}

func buildNotifier(logger zerolog.Logger, cfg config.Config, recorder notify.ResultRecorder) (notify.Notifier, error) {
	notifyLogger := logger.With().Str("component", "notify").Logger()

	slackNotifier := notify.NewSlackNotifier(notifyLogger, cfg.SlackWebhookURL,
		notify.WithSlackRecorder(recorder))

	webhook, err := notify.NewWebhookNotifier(notifyLogger, cfg.WebhookURL, cfg.WebhookTemplate,
		notify.DefaultTiming, recorder)
	if err != nil {
		return nil, fmt.Errorf("build webhook notifier: %w", err)
	}

	notifiers := []notify.Notifier{slackNotifier}
	if webhook != nil {
		notifiers = append(notifiers, webhook)
	}
	var n notify.Notifier = notify.NewMultiNotifier(notifiers...)

	if cfg.NotifyDryRun {
		n = notify.NewDryRunNotifier(notifyLogger, n)
	}
	return n, nil
}

// Monitor returns the health monitor.
func (c *Coordinator) Monitor() *monitor.Monitor {
	return c.monitor
}

// Metrics returns the metrics collector.
func (c *Coordinator) Metrics() *metrics.Metrics {
	return c.metrics
}

// Run activates the monitor, serves HTTP and processes refresh triggers
// until ctx is canceled. It returns an error only when the HTTP listener
// fails.
func (c *Coordinator) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.logger.Info().
		Str("backend_url", c.cfg.BackendURL).
		Str("listen_addr", c.cfg.ListenAddr).
		Bool("server", c.serve).
		Msg("starting coordinator")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.deliverTransitions(ctx)
	}()

	serverErr := make(chan error, 1)
	if c.serve {
		// Bind before activation so a backend served by this process
		// answers the first check.
		ln, err := server.Listen(c.cfg.ListenAddr)
		if err != nil {
			cancel()
			wg.Wait()
			return fmt.Errorf("http server: %w", err)
		}
		srv := server.New(
			c.logger.With().Str("component", "server").Logger(),
			c.monitor,
			server.WithTracker(c.tracker),
			server.WithMetrics(c.metrics),
			server.WithDocsURL(c.cfg.DocsURL),
			server.WithBaseContext(ctx),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Serve(ctx, ln); err != nil {
				serverErr <- err
				cancel()
			}
		}()
	}

	r := runner.New(
		c.logger.With().Str("component", "runner").Logger(),
		c.monitor,
		runner.WithTriggers(c.triggers),
	)
	if err := r.Run(ctx); err != nil {
		c.logger.Error().Err(err).Msg("runner exited with error")
	}

	// A closed trigger source ends the runner; stop everything else too.
	cancel()
	wg.Wait()
	c.logger.Info().Msg("coordinator stopped")

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	default:
		return nil
	}
}

// onStateChange runs inside the monitor's dispatch and must not block.
func (c *Coordinator) onStateChange(_, next health.ViewState) {
	change, ok := c.transitions.Observe(next)
	if !ok {
		return
	}
	c.logger.Info().
		Str("previous_state", string(change.PreviousKind)).
		Str("current_state", string(change.CurrentKind)).
		Str("status", change.CurrentStatus).
		Str("message", change.Message).
		Msg("health transition detected")

	select {
	case c.queue <- change:
	default:
		c.logger.Warn().Msg("transition queue full, dropping notification")
	}
}

func (c *Coordinator) deliverTransitions(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case change := <-c.queue:
			batch := []transition.Transition{change}
		drain:
			for {
				select {
				case next := <-c.queue:
					batch = append(batch, next)
				default:
					break drain
				}
			}
			c.notify(ctx, batch)
		}
	}
}

func (c *Coordinator) notify(ctx context.Context, batch []transition.Transition) {
	if err := c.notifier.Notify(ctx, c.cfg.BackendURL, batch); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.logger.Error().Err(err).Int("transitions", len(batch)).Msg("transition notification failed")
	}
}

// observers fans a check outcome out to several observers.
type observers []monitor.Observer

func (o observers) ObserveCheck(outcome health.Outcome, duration time.Duration, state health.ViewState) {
	for _, observer := range o {
		if observer != nil {
			observer.ObserveCheck(outcome, duration, state)
		}
	}
}
