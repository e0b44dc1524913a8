package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/nholik/goact-stack/internal/config"
	"github.com/nholik/goact-stack/internal/coordinator"
	"github.com/nholik/goact-stack/internal/health"
	"github.com/nholik/goact-stack/internal/logging"
	"github.com/nholik/goact-stack/internal/monitor"
	"github.com/nholik/goact-stack/internal/runner"
	"github.com/nholik/goact-stack/internal/ui"
	"github.com/nholik/goact-stack/internal/version"
	"github.com/rs/zerolog"
	"gopkg.in/alecthomas/kingpin.v2"
)

// cli holds the parsed command line.
type cli struct {
	app        *kingpin.Application
	configPath *string
	logLevel   *string
	listenAddr *string
	backendURL *string

	serve   *kingpin.CmdClause
	check   *kingpin.CmdClause
	watch   *kingpin.CmdClause
	version *kingpin.CmdClause
}

func newCLI() *cli {
	app := kingpin.New("goact-stack", "GoAct Stack server and backend health monitor")
	return &cli{
		app:        app,
		configPath: app.Flag("config", "Path to the YAML config file (default ./goact-stack.yaml if present)").String(),
		logLevel:   app.Flag("log-level", "Log level: trace, debug, info, warn, error").String(),
		listenAddr: app.Flag("listen", "Address the HTTP server listens on").String(),
		backendURL: app.Flag("backend-url", "Base URL of the monitored backend").String(),

		serve: app.Command("serve", "Serve the status card and API and monitor the backend (default)").Default(),

		check: app.Command("check", "Check the backend once and print its status"),

		watch: app.Command("watch", "Check the backend, then again on every Enter; q quits"),

		version: app.Command("version", "Print version information"),
	}
}

func main() {
	c := newCLI()
	cmd, err := c.app.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "goact-stack error: %v\n", err)
		os.Exit(2)
	}

	if cmd == c.version.FullCommand() {
		fmt.Println(version.Tag)
		return
	}

	cfg, err := config.Load(*c.configPath, config.Overrides{
		ListenAddr: *c.listenAddr,
		LogLevel:   *c.logLevel,
		BackendURL: *c.backendURL,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "goact-stack error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case c.serve.FullCommand():
		err = serve(ctx, cfg)
	case c.check.FullCommand():
		err = check(ctx, cfg)
	case c.watch.FullCommand():
		err = watch(ctx, cfg)
	}
	if err != nil {
		if _, ok := err.(checkFailedError); !ok {
			fmt.Fprintf(os.Stderr, "goact-stack error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := logging.NewWithLevel(cfg.LogLevel)
	logger.Info().Str("version", version.Tag).Msg("goact-stack starting")

	c, err := coordinator.New(logger, cfg, coordinator.WithTriggers(signalTriggers(ctx, syscall.SIGHUP)))
	if err != nil {
		return err
	}
	return c.Run(ctx)
}

// checkFailedError signals a Failed outcome already printed to the user.
type checkFailedError struct{}

func (checkFailedError) Error() string { return "backend check failed" }

func check(ctx context.Context, cfg config.Config) error {
	m, err := newCLIMonitor(cfg)
	if err != nil {
		return err
	}
	state := m.Activate(ctx)
	if err := ui.RenderText(os.Stdout, state, !color.NoColor); err != nil {
		return err
	}
	if state.IsFailed() {
		return checkFailedError{}
	}
	return nil
}

func watch(ctx context.Context, cfg config.Config) error {
	m, err := newCLIMonitor(cfg)
	if err != nil {
		return err
	}
	logger := logging.NewWithWriter(os.Stderr, cfg.LogLevel)

	colorize := !color.NoColor
	r := runner.New(logger, m,
		runner.WithTriggers(lineTriggers(ctx, os.Stdin)),
		runner.WithResultHandler(func(state health.ViewState) {
			_ = ui.RenderText(os.Stdout, state, colorize)
		}),
	)
	return r.Run(ctx)
}

func newCLIMonitor(cfg config.Config) (*monitor.Monitor, error) {
	logger := logging.NewWithWriter(os.Stderr, cfg.LogLevel)
	if cfg.LogLevel == "" || cfg.LogLevel == "info" {
		logger = logger.Level(zerolog.WarnLevel)
	}
	c, err := coordinator.NewChecker(cfg)
	if err != nil {
		return nil, err
	}
	return monitor.New(logger, c), nil
}
