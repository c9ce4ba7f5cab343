// Package config provides YAML configuration parsing for pushwatch.
//
// This package enables running pushwatch as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Tuesday push
//	push_url: https://pushmaster.example.com/push/${PUSH_ID}
//	poll_interval: 30s
//	port: 8080
//	headers:
//	  Cookie: session=${PUSHMASTER_SESSION}
//
//	request:
//	  host: pushmaster.example.com
//	  ticket_url: https://trac.example.com/ticket/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/pushwatch/request"
)

// minPollInterval is the minimum allowed polling interval for configs.
// This keeps a misconfigured watcher from hammering the tracking server.
const minPollInterval = 1 * time.Second

const (
	defaultPort         = 8080
	defaultPollInterval = 30 * time.Second
)

// Config is the root configuration structure for pushwatch.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the mirror page title. Defaults to "pushwatch" if not set.
	Title string `yaml:"title"`

	// PushURL is the push page to watch.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	PushURL string `yaml:"push_url"`

	// Port is the HTTP port of the local mirror. Defaults to 8080.
	Port int `yaml:"port"`

	// PollInterval is the fixed delay before every poll.
	// Accepts duration strings like "30s", "1m". Defaults to 30s.
	PollInterval Duration `yaml:"poll_interval"`

	// Timeout bounds a single poll request. Zero means no timeout.
	Timeout Duration `yaml:"timeout"`

	// Headers are sent with every poll, typically a session cookie.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// NoReload suppresses polling, as the noreload query parameter does.
	NoReload bool `yaml:"noreload"`

	// Request configures the review request command.
	Request RequestConfig `yaml:"request"`
}

// RequestConfig configures review request URLs.
type RequestConfig struct {
	// Host is the tracking server host the request form lives on.
	Host string `yaml:"host"`

	// TicketURL is the prefix bug ids are appended to.
	// Defaults to [request.DefaultTicketBase].
	TicketURL string `yaml:"ticket_url"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// LoadEnv loads environment files into the process environment so that
// ${VAR} references in the config can use them. Variables already set are
// not overridden.
//
// With no paths, LoadEnv reads ".env" in the working directory and treats a
// missing file as success. Explicit paths must exist.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before validation.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in push_url, header values and
// request.host. Defaults are applied for Port (8080), PollInterval (30s)
// and Request.TicketURL.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = Duration(defaultPollInterval)
	}
	if cfg.Request.TicketURL == "" {
		cfg.Request.TicketURL = request.DefaultTicketBase
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if c.Timeout.Duration() < 0 {
		return fmt.Errorf("timeout cannot be negative, got %s", c.Timeout.Duration())
	}

	if c.PushURL == "" {
		return errors.New("push_url is required")
	}
	expanded, err := expandEnvVars(c.PushURL)
	if err != nil {
		return fmt.Errorf("push_url: %w", err)
	}
	c.PushURL = expanded

	parsedURL, err := url.Parse(c.PushURL)
	if err != nil {
		return fmt.Errorf("invalid push_url: %w", err)
	}
	if parsedURL.Scheme == "" {
		return errors.New("push_url must have a scheme (http:// or https://)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("push_url scheme must be http or https, got %q", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return errors.New("push_url must have a host")
	}

	for k, v := range c.Headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("headers[%s]: %w", k, err)
		}
		c.Headers[k] = expanded
	}

	if c.Request.Host != "" {
		expanded, err := expandEnvVars(c.Request.Host)
		if err != nil {
			return fmt.Errorf("request.host: %w", err)
		}
		if strings.Contains(expanded, "/") {
			return fmt.Errorf("request.host must be a bare host, got %q", expanded)
		}
		c.Request.Host = expanded
	}

	return nil
}
