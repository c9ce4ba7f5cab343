package pushwatch

import (
	"errors"
	"log/slog"
	"time"
)

// watchConfig holds mutable state during Watcher construction.
type watchConfig struct {
	title            string
	pollingInterval  time.Duration
	suppress         bool
	port             int
	timeout          time.Duration
	headers          map[string]string
	logger           *slog.Logger
	refreshCallbacks []func(Refresh)
}

// Option is a function that configures a [Watcher] during construction.
//
// Options return an error if validation fails.
type Option func(*watchConfig) error

// WithPollingInterval sets the fixed delay before every poll.
//
// There is no backoff: failed polls are retried at the same interval.
// Defaults to 30 seconds.
//
// Returns an error if the duration is zero or negative.
func WithPollingInterval(d time.Duration) Option {
	return func(cfg *watchConfig) error {
		if d <= 0 {
			return errors.New("polling interval must be positive")
		}
		cfg.pollingInterval = d
		return nil
	}
}

// WithSuppress disables polling for this watcher when suppress is true.
//
// The page is loaded once and served, but never refreshed. A push URL
// carrying the noreload query parameter has the same effect.
func WithSuppress(suppress bool) Option {
	return func(cfg *watchConfig) error {
		cfg.suppress = suppress
		return nil
	}
}

// WithPort sets the HTTP port for the local mirror.
//
// Defaults to 8080. Returns an error if the port is outside 1-65535.
func WithPort(port int) Option {
	return func(cfg *watchConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithTitle sets the page title of the local mirror.
func WithTitle(title string) Option {
	return func(cfg *watchConfig) error {
		cfg.title = title
		return nil
	}
}

// WithTimeout sets a per-request timeout for polls.
//
// Zero, the default, leaves requests bounded only by the transport.
// Returns an error if the duration is negative.
func WithTimeout(d time.Duration) Option {
	return func(cfg *watchConfig) error {
		if d < 0 {
			return errors.New("timeout cannot be negative")
		}
		cfg.timeout = d
		return nil
	}
}

// WithHeaders adds HTTP headers sent with every poll, typically a session
// cookie for the tracking server.
//
// Accepts variadic key-value pairs. Returns an error if an odd number of
// arguments is provided.
func WithHeaders(keyValues ...string) Option {
	return func(cfg *watchConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. Defaults to [slog.Default].
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *watchConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithRefreshCallback registers a function called after every successful
// poll, once the new fragment has been stored.
//
// Callbacks run synchronously on the poll goroutine in registration order
// and delay the next cycle while they run. Panics are recovered and logged.
// Nil callbacks are ignored.
func WithRefreshCallback(cb func(Refresh)) Option {
	return func(cfg *watchConfig) error {
		if cb == nil {
			return nil
		}
		cfg.refreshCallbacks = append(cfg.refreshCallbacks, cb)
		return nil
	}
}
