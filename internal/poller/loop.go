package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// State is the server-side state tag of a push. The client only ever holds a
// cached copy; the tracking server is the source of truth.
type State string

// StateLive is the terminal push state. Reaching it stops polling.
const StateLive State = "live"

// Config controls the poll loop.
type Config struct {
	// Interval is the fixed delay before every fetch. There is no backoff.
	Interval time.Duration

	// Suppress disables polling entirely for this watch (the page's
	// ?noreload parameter).
	Suppress bool
}

// ShouldPoll reports whether a cycle is armed for state under cfg.
func ShouldPoll(state State, cfg Config) bool {
	return state != StateLive && !cfg.Suppress
}

// Fetcher retrieves the current push payload from endpoint.
type Fetcher interface {
	FetchPush(ctx context.Context, endpoint string) (Payload, error)
}

// Display receives every successfully fetched payload, in order.
type Display interface {
	ShowPush(p Payload)
}

// Clock abstracts the scheduled wait so tests can fire it by hand.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Status is a snapshot of the loop's recent activity.
type Status struct {
	State               State     `json:"state"`
	Polling             bool      `json:"polling"`
	Cycles              int       `json:"cycles"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastAttempt         time.Time `json:"last_attempt"`
	LastSuccess         time.Time `json:"last_success"`
}

// LoopOption configures a [Loop].
type LoopOption func(*Loop)

// WithClock replaces the wall clock used for scheduled waits.
func WithClock(c Clock) LoopOption {
	return func(l *Loop) {
		if c != nil {
			l.clock = c
		}
	}
}

// Loop keeps a displayed push synchronized with the tracking server.
//
// Each cycle waits Interval, fetches once, and then either displays the new
// fragment and adopts the new state (success) or keeps the previous state
// (failure). The loop continues while [ShouldPoll] holds for the current
// state. Failures are retried forever at the same interval.
//
// At most one cycle is scheduled or in flight at any time: [Loop.Start] is a
// no-op while a previous Start is still running. The only external stop is
// cancellation of the context passed to Start.
type Loop struct {
	fetcher  Fetcher
	endpoint string
	display  Display
	cfg      Config
	clock    Clock
	logger   *slog.Logger

	mu     sync.Mutex
	armed  bool
	done   chan struct{}
	status Status
}

// NewLoop creates a [Loop] polling endpoint with fetcher and sending each
// successful payload to display.
func NewLoop(fetcher Fetcher, endpoint string, display Display, cfg Config, logger *slog.Logger, opts ...LoopOption) *Loop {
	if logger == nil {
		logger = slog.Default()
	}

	done := make(chan struct{})
	close(done)

	l := &Loop{
		fetcher:  fetcher,
		endpoint: endpoint,
		display:  display,
		cfg:      cfg,
		clock:    realClock{},
		logger:   logger,
		done:     done,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start caches state and, if [ShouldPoll] holds, arms the loop in a
// background goroutine. It returns true when a cycle was armed.
//
// Start returns false without side effects while a previously armed loop is
// still running, and false after caching state when no polling is due.
func (l *Loop) Start(ctx context.Context, state State) bool {
	l.mu.Lock()
	if l.armed {
		l.mu.Unlock()
		return false
	}
	l.status.State = state
	if !ShouldPoll(state, l.cfg) {
		l.mu.Unlock()
		l.logStopped(state)
		return false
	}
	l.armed = true
	l.status.Polling = true
	l.done = make(chan struct{})
	done := l.done
	l.mu.Unlock()

	go func() {
		defer close(done)
		final := l.run(ctx, state)

		l.mu.Lock()
		l.armed = false
		l.status.Polling = false
		l.mu.Unlock()

		if ctx.Err() != nil {
			l.logger.Info("polling cancelled", "state", string(final))
			return
		}
		l.logStopped(final)
	}()

	return true
}

// run is the poll loop proper. It returns the last known state.
func (l *Loop) run(ctx context.Context, state State) State {
	for ShouldPoll(state, l.cfg) {
		select {
		case <-ctx.Done():
			return state
		case <-l.clock.After(l.cfg.Interval):
		}
		if ctx.Err() != nil {
			return state
		}

		state = l.fetchOnce(ctx, state)
	}
	return state
}

// fetchOnce performs a single fetch and returns the state to continue with.
func (l *Loop) fetchOnce(ctx context.Context, previous State) State {
	attempt := time.Now()
	payload, err := l.fetcher.FetchPush(ctx, l.endpoint)

	l.mu.Lock()
	l.status.Cycles++
	l.status.LastAttempt = attempt
	if err != nil {
		l.status.ConsecutiveFailures++
		failures := l.status.ConsecutiveFailures
		l.mu.Unlock()

		l.logger.Debug("push fetch failed, retrying",
			"endpoint", l.endpoint,
			"state", string(previous),
			"consecutive_failures", failures,
			"error", err.Error(),
		)
		return previous
	}
	next := State(payload.Push.State)
	l.status.ConsecutiveFailures = 0
	l.status.LastSuccess = attempt
	l.status.State = next
	l.mu.Unlock()

	if l.display != nil {
		l.display.ShowPush(payload)
	}

	if next != previous {
		l.logger.Info("push state changed", "from", string(previous), "to", string(next))
	}
	return next
}

func (l *Loop) logStopped(state State) {
	switch {
	case l.cfg.Suppress:
		l.logger.Info("polling suppressed", "state", string(state))
	case state == StateLive:
		l.logger.Info("push is live, polling stopped")
	}
}

// State returns the cached push state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status.State
}

// Status returns a snapshot of the loop's recent activity.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Done returns a channel that is closed once the most recently armed loop
// has exited. If no loop is armed the channel is already closed.
func (l *Loop) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}
