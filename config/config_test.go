package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jpalmerr/pushwatch/request"
)

func TestParse_MinimalConfig(t *testing.T) {
	yaml := `
push_url: https://pushmaster.example.com/push/abc
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// check defaults applied
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.PollInterval.Duration() != 30*time.Second {
		t.Errorf("PollInterval = %v, want 30s", cfg.PollInterval.Duration())
	}
	if cfg.Request.TicketURL != request.DefaultTicketBase {
		t.Errorf("Request.TicketURL = %q, want %q", cfg.Request.TicketURL, request.DefaultTicketBase)
	}
	if cfg.NoReload {
		t.Error("NoReload = true, want false")
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
title: Tuesday push
push_url: https://pushmaster.example.com/push/abc
port: 9090
poll_interval: 10s
timeout: 5s
noreload: true
headers:
  Cookie: session=abc
  X-Custom: value

request:
  host: pushmaster.example.com
  ticket_url: https://bugs.example.com/show/
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Title != "Tuesday push" {
		t.Errorf("Title = %q, want %q", cfg.Title, "Tuesday push")
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.PollInterval.Duration() != 10*time.Second {
		t.Errorf("PollInterval = %v, want 10s", cfg.PollInterval.Duration())
	}
	if cfg.Timeout.Duration() != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Timeout.Duration())
	}
	if !cfg.NoReload {
		t.Error("NoReload = false, want true")
	}
	if cfg.Headers["Cookie"] != "session=abc" {
		t.Errorf("Headers[Cookie] = %q, want %q", cfg.Headers["Cookie"], "session=abc")
	}
	if cfg.Request.Host != "pushmaster.example.com" {
		t.Errorf("Request.Host = %q", cfg.Request.Host)
	}
	if cfg.Request.TicketURL != "https://bugs.example.com/show/" {
		t.Errorf("Request.TicketURL = %q", cfg.Request.TicketURL)
	}
}

func TestParse_EnvVarSubstitution(t *testing.T) {
	t.Setenv("TEST_PUSH_ID", "p42")
	t.Setenv("TEST_SESSION", "s3cret")
	t.Setenv("TEST_PUSH_HOST", "push.internal")

	yaml := `
push_url: https://pushmaster.example.com/push/${TEST_PUSH_ID}
headers:
  Cookie: session=${TEST_SESSION}
request:
  host: ${TEST_PUSH_HOST}
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.PushURL != "https://pushmaster.example.com/push/p42" {
		t.Errorf("PushURL = %q", cfg.PushURL)
	}
	if cfg.Headers["Cookie"] != "session=s3cret" {
		t.Errorf("Headers[Cookie] = %q", cfg.Headers["Cookie"])
	}
	if cfg.Request.Host != "push.internal" {
		t.Errorf("Request.Host = %q", cfg.Request.Host)
	}
}

func TestParse_EnvVarDefault(t *testing.T) {
	yaml := `
push_url: ${TEST_UNSET_PUSH_BASE:-http://localhost:9999}/push/demo
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.PushURL != "http://localhost:9999/push/demo" {
		t.Errorf("PushURL = %q", cfg.PushURL)
	}
}

func TestParse_EnvVarMissing(t *testing.T) {
	yaml := `
push_url: https://pushmaster.example.com/push/${TEST_DEFINITELY_UNSET_VAR}
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("Parse() expected error for missing env var, got nil")
	}
	if !strings.Contains(err.Error(), "TEST_DEFINITELY_UNSET_VAR") {
		t.Errorf("error should name the variable, got: %v", err)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing push_url",
			yaml:    `port: 8080`,
			wantErr: "push_url is required",
		},
		{
			name:    "no scheme",
			yaml:    `push_url: pushmaster.example.com/push/abc`,
			wantErr: "must have a scheme",
		},
		{
			name:    "bad scheme",
			yaml:    `push_url: ftp://pushmaster.example.com/push/abc`,
			wantErr: "scheme must be http or https",
		},
		{
			name:    "no host",
			yaml:    `push_url: "http:///push/abc"`,
			wantErr: "must have a host",
		},
		{
			name: "poll interval too short",
			yaml: `
push_url: https://pushmaster.example.com/push/abc
poll_interval: 500ms
`,
			wantErr: "poll_interval must be at least 1s",
		},
		{
			name: "port out of range",
			yaml: `
push_url: https://pushmaster.example.com/push/abc
port: 70000
`,
			wantErr: "port must be between",
		},
		{
			name: "negative timeout",
			yaml: `
push_url: https://pushmaster.example.com/push/abc
timeout: -1s
`,
			wantErr: "timeout cannot be negative",
		},
		{
			name: "request host with path",
			yaml: `
push_url: https://pushmaster.example.com/push/abc
request:
  host: pushmaster.example.com/requests
`,
			wantErr: "bare host",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatalf("Parse() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("push_url: [unterminated"))
	if err == nil {
		t.Fatal("Parse() expected error for invalid YAML, got nil")
	}
	if !strings.Contains(err.Error(), "failed to parse YAML") {
		t.Errorf("error = %v, want 'failed to parse YAML'", err)
	}
}

func TestParse_InvalidDuration(t *testing.T) {
	yaml := `
push_url: https://pushmaster.example.com/push/abc
poll_interval: soon
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("Parse() expected error for invalid duration, got nil")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error = %v, want 'invalid duration'", err)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_EXPAND_A", "alpha")
	t.Setenv("TEST_EXPAND_EMPTY", "")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "no vars", input: "plain", want: "plain"},
		{name: "set var", input: "x-${TEST_EXPAND_A}-y", want: "x-alpha-y"},
		{name: "set but empty", input: "[${TEST_EXPAND_EMPTY}]", want: "[]"},
		{name: "default used", input: "${TEST_EXPAND_UNSET:-fallback}", want: "fallback"},
		{name: "empty default", input: "[${TEST_EXPAND_UNSET:-}]", want: "[]"},
		{name: "default ignored when set", input: "${TEST_EXPAND_A:-fallback}", want: "alpha"},
		{name: "missing", input: "${TEST_EXPAND_UNSET}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandEnvVars(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expandEnvVars(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pushwatch.yaml")
	content := "push_url: https://pushmaster.example.com/push/abc\nport: 8181\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 8181 {
		t.Errorf("Port = %d, want 8181", cfg.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/pushwatch.yaml")
	if err == nil {
		t.Fatal("Load() expected error for missing file, got nil")
	}
	if !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("error = %v, want 'failed to read'", err)
	}
}

func TestLoadEnv_ExplicitFile(t *testing.T) {
	const key = "TEST_LOADENV_SESSION"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), "push.env")
	if err := os.WriteFile(path, []byte(key+"=from-file\n"), 0644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	if err := LoadEnv(path); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}

	cfg, err := Parse([]byte("push_url: https://pushmaster.example.com/push/abc\nheaders:\n  Cookie: ${" + key + "}\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Headers["Cookie"] != "from-file" {
		t.Errorf("Headers[Cookie] = %q, want %q", cfg.Headers["Cookie"], "from-file")
	}
}

func TestLoadEnv_DoesNotOverride(t *testing.T) {
	const key = "TEST_LOADENV_KEEP"
	t.Setenv(key, "from-process")

	path := filepath.Join(t.TempDir(), "push.env")
	if err := os.WriteFile(path, []byte(key+"=from-file\n"), 0644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	if err := LoadEnv(path); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if got := os.Getenv(key); got != "from-process" {
		t.Errorf("%s = %q, want existing value kept", key, got)
	}
}

func TestLoadEnv_MissingExplicitFile(t *testing.T) {
	if err := LoadEnv("/nonexistent/push.env"); err == nil {
		t.Error("LoadEnv() expected error for missing explicit file, got nil")
	}
}

func TestLoadEnv_MissingDefaultFile(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir() error = %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	if err := LoadEnv(); err != nil {
		t.Errorf("LoadEnv() error = %v, want nil when .env is absent", err)
	}
}
