package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envListenAddr      = "GOACT_LISTEN_ADDR"
	envLogLevel        = "GOACT_LOG_LEVEL"
	envBackendURL      = "GOACT_BACKEND_URL"
	envHealthPath      = "GOACT_HEALTH_PATH"
	envRequestTimeout  = "GOACT_REQUEST_TIMEOUT"
	envMaxBodyBytes    = "GOACT_MAX_BODY_BYTES"
	envSlackWebhookURL = "GOACT_SLACK_WEBHOOK_URL"
	envWebhookURL      = "GOACT_WEBHOOK_URL"
	envWebhookTemplate = "GOACT_WEBHOOK_TEMPLATE"
	envDocsURL         = "GOACT_DOCS_URL"
	envNotifyDryRun    = "GOACT_NOTIFY_DRY_RUN"
)

const (
	// DefaultConfigFile is read when no config path is given and the file exists.
	DefaultConfigFile = "goact-stack.yaml"

	defaultListenAddr     = ":8080"
	defaultLogLevel       = "info"
	defaultBackendURL     = "http://localhost:8080"
	defaultHealthPath     = "/api/health"
	defaultRequestTimeout = 10 * time.Second
	defaultMaxBodyBytes   = 64 << 10
	defaultDocsURL        = "https://v3.heroui.com"
)

// Config describes runtime configuration.
type Config struct {
	ListenAddr      string
	LogLevel        string
	BackendURL      string
	HealthPath      string
	RequestTimeout  time.Duration
	MaxBodyBytes    int64
	SlackWebhookURL string
	WebhookURL      string
	WebhookTemplate string
	DocsURL         string
	NotifyDryRun    bool
}

// Overrides carries command line values. Empty fields are ignored.
type Overrides struct {
	ListenAddr string
	LogLevel   string
	BackendURL string
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		ListenAddr:     defaultListenAddr,
		LogLevel:       defaultLogLevel,
		BackendURL:     defaultBackendURL,
		HealthPath:     defaultHealthPath,
		RequestTimeout: defaultRequestTimeout,
		MaxBodyBytes:   defaultMaxBodyBytes,
		DocsURL:        defaultDocsURL,
	}
}

// Load builds the configuration from defaults, the YAML file at path,
// environment variables (a local .env file is loaded if present) and
// overrides, in increasing order of precedence. An empty path reads
// DefaultConfigFile when it exists.
// Existing environment variables take precedence over values in .env.
func Load(path string, overrides Overrides) (Config, error) {
	if err := loadDotEnvIfPresent(".env"); err != nil {
		return Config{}, err
	}

	cfg := Defaults()

	required := path != ""
	if !required {
		path = DefaultConfigFile
	}
	file, err := LoadFile(path, required)
	if err != nil {
		return Config{}, err
	}
	file.apply(&cfg)

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if overrides.ListenAddr != "" {
		cfg.ListenAddr = strings.TrimSpace(overrides.ListenAddr)
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = strings.TrimSpace(overrides.LogLevel)
	}
	if overrides.BackendURL != "" {
		cfg.BackendURL = strings.TrimSpace(overrides.BackendURL)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen address is required")
	}
	if c.BackendURL == "" {
		return fmt.Errorf("%s is required", envBackendURL)
	}
	if err := validateHTTPURL(c.BackendURL, envBackendURL); err != nil {
		return err
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s must be greater than zero", envRequestTimeout)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("%s must be greater than zero", envMaxBodyBytes)
	}
	if c.SlackWebhookURL != "" {
		if err := validateHTTPURL(c.SlackWebhookURL, envSlackWebhookURL); err != nil {
			return err
		}
	}
	if c.WebhookURL != "" {
		if err := validateHTTPURL(c.WebhookURL, envWebhookURL); err != nil {
			return err
		}
	}
	if c.DocsURL != "" {
		if err := validateHTTPURL(c.DocsURL, envDocsURL); err != nil {
			return err
		}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if value, ok := lookupTrimmed(envListenAddr); ok {
		cfg.ListenAddr = value
	}
	if value, ok := lookupTrimmed(envLogLevel); ok {
		cfg.LogLevel = value
	}
	if value, ok := lookupTrimmed(envBackendURL); ok {
		cfg.BackendURL = value
	}
	if value, ok := lookupTrimmed(envHealthPath); ok {
		cfg.HealthPath = value
	}

	if value, ok := lookupTrimmed(envRequestTimeout); ok {
		timeout, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", envRequestTimeout, err)
		}
		cfg.RequestTimeout = timeout
	}

	if value, ok := lookupTrimmed(envMaxBodyBytes); ok {
		size, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", envMaxBodyBytes, err)
		}
		cfg.MaxBodyBytes = size
	}

	if value, ok := lookupTrimmed(envSlackWebhookURL); ok {
		cfg.SlackWebhookURL = value
	}
	if value, ok := lookupTrimmed(envWebhookURL); ok {
		cfg.WebhookURL = value
	}
	if value, ok := lookupTrimmed(envWebhookTemplate); ok {
		cfg.WebhookTemplate = value
	}
	if value, ok := lookupTrimmed(envDocsURL); ok {
		cfg.DocsURL = value
	}

	if value, ok := lookupTrimmed(envNotifyDryRun); ok && value != "" {
		dryRun, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", envNotifyDryRun, err)
		}
		cfg.NotifyDryRun = dryRun
	}

	return nil
}

func lookupTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func loadDotEnvIfPresent(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, os.ErrNotExist) {
		return nil
	}

	return err
}

func validateHTTPURL(value, name string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid %s: scheme must be http or https", name)
	}
	if parsed.Host == "" {
		return fmt.Errorf("invalid %s: must include scheme and host", name)
	}
	return nil
}
