package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var allEnvKeys = []string{
	envListenAddr, envLogLevel, envBackendURL, envHealthPath, envRequestTimeout,
	envMaxBodyBytes, envSlackWebhookURL, envWebhookURL, envWebhookTemplate,
	envDocsURL, envNotifyDryRun,
}

func TestLoad_ValidationAndDefaults(t *testing.T) {
	cases := []struct {
		name    string
		env     map[string]string
		wantErr bool
		want    Config
	}{
		{
			name: "defaults applied",
			env:  map[string]string{},
			want: Defaults(),
		},
		{
			name: "env overrides defaults",
			env: map[string]string{
				envListenAddr:      ":9090",
				envLogLevel:        "debug",
				envBackendURL:      "https://api.example.com",
				envHealthPath:      "/status",
				envRequestTimeout:  "3s",
				envMaxBodyBytes:    "1024",
				envSlackWebhookURL: "https://hooks.slack.com/services/test",
				envWebhookURL:      "https://example.com/hook",
				envDocsURL:         "https://docs.example.com",
				envNotifyDryRun:    "true",
			},
			want: Config{
				ListenAddr:      ":9090",
				LogLevel:        "debug",
				BackendURL:      "https://api.example.com",
				HealthPath:      "/status",
				RequestTimeout:  3 * time.Second,
				MaxBodyBytes:    1024,
				SlackWebhookURL: "https://hooks.slack.com/services/test",
				WebhookURL:      "https://example.com/hook",
				DocsURL:         "https://docs.example.com",
				NotifyDryRun:    true,
			},
		},
		{
			name:    "invalid request timeout",
			env:     map[string]string{envRequestTimeout: "nope"},
			wantErr: true,
		},
		{
			name:    "zero request timeout",
			env:     map[string]string{envRequestTimeout: "0s"},
			wantErr: true,
		},
		{
			name:    "negative request timeout",
			env:     map[string]string{envRequestTimeout: "-5s"},
			wantErr: true,
		},
		{
			name:    "invalid max body bytes",
			env:     map[string]string{envMaxBodyBytes: "lots"},
			wantErr: true,
		},
		{
			name:    "zero max body bytes",
			env:     map[string]string{envMaxBodyBytes: "0"},
			wantErr: true,
		},
		{
			name:    "empty backend url",
			env:     map[string]string{envBackendURL: ""},
			wantErr: true,
		},
		{
			name:    "backend url missing scheme",
			env:     map[string]string{envBackendURL: "example.com"},
			wantErr: true,
		},
		{
			name:    "backend url unsupported scheme",
			env:     map[string]string{envBackendURL: "ftp://example.com"},
			wantErr: true,
		},
		{
			name:    "invalid slack webhook url",
			env:     map[string]string{envSlackWebhookURL: "not a url"},
			wantErr: true,
		},
		{
			name:    "invalid dry run flag",
			env:     map[string]string{envNotifyDryRun: "maybe"},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			restoreDir := mustChdir(t, t.TempDir())
			defer restoreDir()
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			got, err := Load("", Overrides{})
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got config %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("unexpected config: %+v", got)
			}
		})
	}
}

func TestLoad_DotEnvAndEnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	restoreDir := mustChdir(t, tmpDir)
	defer restoreDir()
	clearEnv(t)

	dotenv := []byte(`
# example .env
GOACT_BACKEND_URL=https://example.com/from-dotenv
GOACT_SLACK_WEBHOOK_URL=https://hooks.slack.com/services/test
GOACT_LISTEN_ADDR=:7000
`)

	if err := os.WriteFile(filepath.Join(tmpDir, ".env"), dotenv, 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	t.Setenv(envBackendURL, "https://example.com/from-env")

	got, err := Load("", Overrides{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.BackendURL != "https://example.com/from-env" {
		t.Fatalf("backend url did not prefer env: %s", got.BackendURL)
	}
	if got.SlackWebhookURL != "https://hooks.slack.com/services/test" {
		t.Fatalf("slack webhook url not loaded from .env: %s", got.SlackWebhookURL)
	}
	if got.ListenAddr != ":7000" {
		t.Fatalf("listen addr not loaded from .env: %s", got.ListenAddr)
	}
	if got.RequestTimeout != defaultRequestTimeout {
		t.Fatalf("unexpected request timeout: %s", got.RequestTimeout)
	}
}

func TestLoad_Precedence(t *testing.T) {
	tmpDir := t.TempDir()
	restoreDir := mustChdir(t, tmpDir)
	defer restoreDir()
	clearEnv(t)

	file := `listen_addr: ":7000"
log_level: warn
backend:
  url: https://file.example.com
  health_path: /healthz
  timeout: 2s
notify:
  dry_run: true
`
	if err := os.WriteFile(filepath.Join(tmpDir, DefaultConfigFile), []byte(file), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(envBackendURL, "https://env.example.com")
	t.Setenv(envLogLevel, "error")

	got, err := Load("", Overrides{LogLevel: "debug"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.ListenAddr != ":7000" {
		t.Fatalf("expected file listen addr, got %s", got.ListenAddr)
	}
	if got.HealthPath != "/healthz" || got.RequestTimeout != 2*time.Second || !got.NotifyDryRun {
		t.Fatalf("expected file backend settings, got %+v", got)
	}
	if got.BackendURL != "https://env.example.com" {
		t.Fatalf("expected env to override file, got %s", got.BackendURL)
	}
	if got.LogLevel != "debug" {
		t.Fatalf("expected flag to override env, got %s", got.LogLevel)
	}
}

func TestLoad_ExplicitConfigMustExist(t *testing.T) {
	restoreDir := mustChdir(t, t.TempDir())
	defer restoreDir()
	clearEnv(t)

	if _, err := Load("/nonexistent/goact-stack.yaml", Overrides{}); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoad_OverrideValidated(t *testing.T) {
	restoreDir := mustChdir(t, t.TempDir())
	defer restoreDir()
	clearEnv(t)

	if _, err := Load("", Overrides{BackendURL: "localhost"}); err == nil {
		t.Fatal("expected error for invalid backend url override")
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvKeys {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}
}

func mustChdir(t *testing.T, dir string) func() {
	t.Helper()
	original, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	return func() {
		if err := os.Chdir(original); err != nil {
			t.Fatalf("restore dir: %v", err)
		}
	}
}
