package pushwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/pushwatch/dashboard"
	"github.com/jpalmerr/pushwatch/internal/poller"
	"github.com/jpalmerr/pushwatch/internal/server"
	"github.com/jpalmerr/pushwatch/internal/store"
	"github.com/jpalmerr/pushwatch/pageurl"
)

const (
	defaultPollingInterval = 30 * time.Second
	defaultPort            = 8080
)

// Watcher keeps a local copy of one push page synchronized with the tracking
// server and serves it.
//
// A Watcher is created with [New] and run with [Watcher.Start]:
//
//	w, err := pushwatch.New("https://pushmaster.example.com/push/abc123")
//	if err != nil {
//	    slog.Error("failed to create watcher", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	w.Start(ctx) // blocks until ctx is cancelled
type Watcher struct {
	pushURL          *url.URL
	endpoint         string
	title            string
	pollingInterval  time.Duration
	suppress         bool
	port             int
	timeout          time.Duration
	headers          map[string]string
	logger           *slog.Logger
	refreshCallbacks []func(Refresh)
}

// New creates a [Watcher] for the push page at pushURL.
//
// pushURL must be an absolute http or https URL. If it carries the noreload
// query parameter, polling is suppressed as if [WithSuppress] were given.
//
// Defaults:
//   - Polling interval: 30 seconds
//   - Port: 8080
//   - Timeout: none
func New(pushURL string, opts ...Option) (*Watcher, error) {
	u, err := url.Parse(pushURL)
	if err != nil {
		return nil, fmt.Errorf("invalid push URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New("push URL must have an http:// or https:// scheme")
	}
	if u.Host == "" {
		return nil, errors.New("push URL must have a host")
	}

	cfg := &watchConfig{
		pollingInterval: defaultPollingInterval,
		port:            defaultPort,
		headers:         make(map[string]string),
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		pushURL:          u,
		endpoint:         pageurl.JSONEndpoint(u),
		title:            cfg.title,
		pollingInterval:  cfg.pollingInterval,
		suppress:         cfg.suppress || pageurl.Suppressed(u),
		port:             cfg.port,
		timeout:          cfg.timeout,
		headers:          cfg.headers,
		logger:           logger,
		refreshCallbacks: cfg.refreshCallbacks,
	}, nil
}

// Start loads the push, starts the local mirror and polls until the push is
// live or ctx is cancelled.
//
// The initial load is a single fetch; if it fails Start returns its error,
// unless ctx was cancelled meanwhile.
// After that, poll failures are retried forever at the polling interval and
// never returned. The mirror keeps serving after the push goes live, until
// ctx is cancelled.
//
// Returns nil on graceful shutdown.
func (w *Watcher) Start(ctx context.Context) error {
	logger := w.logger.With("session_id", uuid.NewString())

	if ctx.Err() != nil {
		return nil
	}

	logger.Info("pushwatch starting",
		"push_url", w.pushURL.Redacted(),
		"endpoint", w.endpoint,
		"interval", w.pollingInterval.String(),
		"suppressed", w.suppress,
	)

	client := poller.NewClient(copyMap(w.headers), w.timeout)
	defer client.Close()

	initial, err := client.FetchPush(ctx, w.endpoint)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to load push: %w", err)
	}

	statusStore := store.NewMemoryStore()
	display := newStoreDisplay(statusStore, w.refreshCallbacks, logger)
	display.load(initial)

	loop := poller.NewLoop(client, w.endpoint, display, poller.Config{
		Interval: w.pollingInterval,
		Suppress: w.suppress,
	}, logger)

	httpServer := server.NewServer(statusStore, loop.Status, w.port, dashboard.Assets, w.title, logger)
	if err := httpServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	logger.Info("mirror available", "url", fmt.Sprintf("http://localhost:%d", w.port))

	loop.Start(ctx, poller.State(initial.Push.State))

	<-ctx.Done()
	<-loop.Done()
	logger.Info("pushwatch stopped")
	return nil
}

// PushURL returns the watched push page URL.
func (w *Watcher) PushURL() string {
	return w.pushURL.String()
}

// Endpoint returns the JSON endpoint polled for the push.
func (w *Watcher) Endpoint() string {
	return w.endpoint
}

// Suppressed reports whether polling is disabled for this watcher.
func (w *Watcher) Suppressed() bool {
	return w.suppress
}

// PollingInterval returns the fixed delay before every poll.
func (w *Watcher) PollingInterval() time.Duration {
	return w.pollingInterval
}

// Port returns the configured HTTP port for the local mirror.
func (w *Watcher) Port() int {
	return w.port
}

// storeDisplay applies poll results to the snapshot store and runs refresh
// callbacks.
type storeDisplay struct {
	store     store.Store
	callbacks []func(Refresh)
	logger    *slog.Logger

	mu       sync.Mutex
	previous State
}

func newStoreDisplay(st store.Store, callbacks []func(Refresh), logger *slog.Logger) *storeDisplay {
	return &storeDisplay{store: st, callbacks: callbacks, logger: logger}
}

// load stores the initial page payload without running callbacks.
func (d *storeDisplay) load(p poller.Payload) {
	d.mu.Lock()
	d.previous = State(p.Push.State)
	d.mu.Unlock()

	d.store.Update(toSnapshot(p, time.Now()))
}

// ShowPush implements poller.Display.
func (d *storeDisplay) ShowPush(p poller.Payload) {
	now := time.Now()
	d.store.Update(toSnapshot(p, now))

	d.mu.Lock()
	previous := d.previous
	d.previous = State(p.Push.State)
	d.mu.Unlock()

	if len(d.callbacks) == 0 {
		return
	}
	refresh := Refresh{
		PushKey:   p.Push.Key,
		State:     State(p.Push.State),
		Previous:  previous,
		HTML:      p.HTML,
		FetchedAt: now,
	}
	for _, cb := range d.callbacks {
		invokeCallbackSafe(cb, refresh, d.logger)
	}
}

func toSnapshot(p poller.Payload, at time.Time) store.Snapshot {
	return store.Snapshot{
		Key:       p.Push.Key,
		State:     p.Push.State,
		HTML:      p.HTML,
		UpdatedAt: at,
	}
}

// invokeCallbackSafe calls a refresh callback with panic recovery.
// Panics are logged with a correlation ID and do not propagate.
func invokeCallbackSafe(cb func(Refresh), refresh Refresh, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("refresh callback panicked",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"state", refresh.State.String(),
			)
		}
	}()
	cb(refresh)
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
