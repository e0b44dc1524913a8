package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// BackendFile is the backend section of the config file.
type BackendFile struct {
	URL          string        `yaml:"url"`
	HealthPath   string        `yaml:"health_path"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	MaxBodyBytes int64         `yaml:"max_body_bytes,omitempty"`
}

// NotifyFile is the notify section of the config file.
type NotifyFile struct {
	SlackWebhookURL string `yaml:"slack_webhook_url"`
	WebhookURL      string `yaml:"webhook_url"`
	WebhookTemplate string `yaml:"webhook_template"`
	DryRun          *bool  `yaml:"dry_run,omitempty"`
}

// File is the parsed YAML configuration:
// listen_addr, log_level, docs_url, backend: {...}, notify: {...}
type File struct {
	ListenAddr string      `yaml:"listen_addr"`
	LogLevel   string      `yaml:"log_level"`
	DocsURL    string      `yaml:"docs_url"`
	Backend    BackendFile `yaml:"backend"`
	Notify     NotifyFile  `yaml:"notify"`
}

// LoadFile parses the YAML config file at path. A missing file is an error
// only when required is set; otherwise an empty File is returned.
func LoadFile(path string, required bool) (File, error) {
	if path == "" {
		return File{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("read config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parse config file: %w", err)
	}

	if err := f.validate(); err != nil {
		return File{}, fmt.Errorf("config file %s: %w", path, err)
	}

	return f, nil
}

func (f File) validate() error {
	if f.Backend.URL != "" {
		if err := validateHTTPURL(f.Backend.URL, "backend.url"); err != nil {
			return err
		}
	}
	if f.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout cannot be negative")
	}
	if f.Backend.MaxBodyBytes < 0 {
		return fmt.Errorf("backend.max_body_bytes cannot be negative")
	}
	return nil
}

func (f File) apply(cfg *Config) {
	setString(&cfg.ListenAddr, f.ListenAddr)
	setString(&cfg.LogLevel, f.LogLevel)
	setString(&cfg.DocsURL, f.DocsURL)
	setString(&cfg.BackendURL, f.Backend.URL)
	setString(&cfg.HealthPath, f.Backend.HealthPath)
	if f.Backend.Timeout > 0 {
		cfg.RequestTimeout = f.Backend.Timeout
	}
	if f.Backend.MaxBodyBytes > 0 {
		cfg.MaxBodyBytes = f.Backend.MaxBodyBytes
	}
	setString(&cfg.SlackWebhookURL, f.Notify.SlackWebhookURL)
	setString(&cfg.WebhookURL, f.Notify.WebhookURL)
	setString(&cfg.WebhookTemplate, f.Notify.WebhookTemplate)
	if f.Notify.DryRun != nil {
		cfg.NotifyDryRun = *f.Notify.DryRun
	}
}

func setString(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}
