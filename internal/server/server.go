package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jpalmerr/pushwatch/internal/poller"
	"github.com/jpalmerr/pushwatch/internal/store"
)

const (
	// sseWriteTimeout bounds a single SSE write so slow or vanished clients
	// cannot pin a handler goroutine. Must be <= shutdown timeout.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	defaultTitle = "pushwatch"

	pageAsset = "assets/index.html"
)

// StatusFunc reports the poll loop's current status.
type StatusFunc func() poller.Status

// Server serves the local mirror of a watched push.
//
// Routes:
//   - GET /: page shell with the current fragment inside the push region
//   - GET /json: the current push payload, same shape as the upstream endpoint
//   - GET /api/status: poll loop status as JSON
//   - GET /api/sse: Server-Sent Events stream of fragment updates
//   - GET /metrics: poll loop status in Prometheus text format
type Server struct {
	store      store.Store
	status     StatusFunc
	port       int
	httpServer *http.Server
	assets     fs.FS
	title      string
	logger     *slog.Logger
}

// pageData is the template input for the page shell.
type pageData struct {
	Title    string
	State    string
	Key      string
	Fragment template.HTML
}

// NewServer creates a mirror [Server].
//
// assets may be nil, in which case "/" responds with 500. status may be nil,
// in which case /api/status reports only the stored snapshot's state.
func NewServer(st store.Store, status StatusFunc, port int, assets fs.FS, title string, logger *slog.Logger) *Server {
	if title == "" {
		title = defaultTitle
	}
	return &Server{
		store:  st,
		status: status,
		port:   port,
		assets: assets,
		title:  title,
		logger: logger,
	}
}

// Routes returns the mirror's HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handlePage)
	r.Get("/json", s.handleJSON)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/sse", s.handleSSE)
	})
	r.Method(http.MethodGet, "/metrics", s.metricsHandler())

	return r
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start returns once the listener is bound. The server shuts down gracefully
// when ctx is cancelled. Returns an error if the port cannot be bound.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from ctx so SSE handlers end on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if s.assets == nil {
		http.Error(w, "Page not found", http.StatusInternalServerError)
		return
	}

	tmpl, err := template.ParseFS(s.assets, pageAsset)
	if err != nil {
		s.logger.Error("failed to parse page template", "error", err)
		http.Error(w, "Page not found", http.StatusInternalServerError)
		return
	}

	data := pageData{Title: s.title}
	if snap, ok := s.store.Current(); ok {
		data.State = snap.State
		data.Key = snap.Key
		// fragments are rendered by the tracking server and shown verbatim
		data.Fragment = template.HTML(snap.HTML)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		s.logger.Error("failed to render page", "error", err)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.store.Current()
	if !ok {
		http.Error(w, "push not loaded yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Vary", "Accept")
	w.Header().Set("Cache-Control", "no-store")

	resp := poller.Payload{
		Push: poller.PushInfo{Key: snap.Key, State: snap.State},
		HTML: snap.HTML,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to encode push response", "error", err)
	}
}

// currentStatus returns the loop status, or just the stored state when no
// loop is attached.
func (s *Server) currentStatus() poller.Status {
	var status poller.Status
	if s.status != nil {
		status = s.status()
	} else if snap, ok := s.store.Current(); ok {
		status.State = poller.State(snap.State)
	}
	return status
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.currentStatus()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("failed to encode status response", "error", err)
	}
}

// handleSSE streams snapshots via Server-Sent Events, starting with the
// current one. Writes carry a deadline so a stuck client cannot block the
// handler past shutdown.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Debug("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	if snap, ok := s.store.Current(); ok {
		data, err := json.Marshal(snap)
		if err == nil {
			if err := writeAndFlush(data); err != nil {
				return
			}
		}
	}

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			return
		}
	}
}

// metricsHandler exposes the loop status as Prometheus metrics. Values are
// read from the status at scrape time.
func (s *Server) metricsHandler() http.Handler {
	boolValue := func(b bool) float64 {
		if b {
			return 1
		}
		return 0
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "pushwatch",
			Name:      "poll_cycles_total",
			Help:      "Poll attempts made since the watcher started.",
		}, func() float64 {
			return float64(s.currentStatus().Cycles)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "pushwatch",
			Name:      "poll_consecutive_failures",
			Help:      "Failed polls since the last successful one.",
		}, func() float64 {
			return float64(s.currentStatus().ConsecutiveFailures)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "pushwatch",
			Name:      "polling",
			Help:      "1 while a poll cycle is armed.",
		}, func() float64 {
			return boolValue(s.currentStatus().Polling)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "pushwatch",
			Name:      "push_live",
			Help:      "1 once the push has been reported live.",
		}, func() float64 {
			return boolValue(s.currentStatus().State == poller.StateLive)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "pushwatch",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful poll, 0 if none.",
		}, func() float64 {
			last := s.currentStatus().LastSuccess
			if last.IsZero() {
				return 0
			}
			return float64(last.Unix())
		}),
	)

	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
