// Package devtools exposes a reactive engine's internals over HTTP for
// inspection during development: the dependency graph as JSON, a
// Prometheus metrics endpoint, and a WebSocket event stream.
//
// The inspector is meant for development and internal diagnostics
// ports. It exposes target IDs and key names; do not mount it on a
// public listener.
package devtools

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reverb-dev/reverb/pkg/reverb"
)

// Config configures the inspector server.
type Config struct {
	// Hub is the event hub streamed at /events. When nil a fresh hub is
	// created; wire it into the engine via reverb.WithInstrumentation
	// for the stream to carry events.
	Hub *Hub

	// Metrics is the handler mounted at /metrics
	// (default: promhttp.Handler()).
	Metrics http.Handler

	// CheckOrigin is the WebSocket origin check
	// (default: same-origin, gorilla's default).
	CheckOrigin func(r *http.Request) bool

	// WriteTimeout bounds each WebSocket write (default: 10s).
	WriteTimeout time.Duration

	// Logger is the structured logger (default: slog.Default()).
	Logger *slog.Logger
}

// Option configures the inspector server.
type Option func(*Config)

// WithHub sets the event hub streamed at /events.
func WithHub(h *Hub) Option {
	return func(c *Config) {
		c.Hub = h
	}
}

// WithMetricsHandler sets the handler mounted at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(c *Config) {
		c.Metrics = h
	}
}

// WithCheckOrigin sets the WebSocket origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(c *Config) {
		c.CheckOrigin = fn
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// Server serves the inspector endpoints for one engine.
type Server struct {
	engine   *reverb.Engine
	hub      *Hub
	metrics  http.Handler
	timeout  time.Duration
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// New creates an inspector server over the engine.
func New(engine *reverb.Engine, opts ...Option) *Server {
	config := Config{
		Metrics:      promhttp.Handler(),
		WriteTimeout: 10 * time.Second,
		Logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Hub == nil {
		config.Hub = NewHub()
	}

	return &Server{
		engine:  engine,
		hub:     config.Hub,
		metrics: config.Metrics,
		timeout: config.WriteTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     config.CheckOrigin,
		},
		logger: config.Logger,
	}
}

// Hub returns the event hub streamed at /events.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the inspector's routes for mounting in an external
// router:
//   - GET /graph   - dependency graph snapshot as JSON
//   - GET /metrics - Prometheus metrics
//   - GET /events  - WebSocket stream of engine lifecycle events
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/graph", s.handleGraph)
	r.Method(http.MethodGet, "/metrics", s.metrics)
	r.Get("/events", s.handleEvents)
	return r
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.logger.Error("graph snapshot encode failed", "error", err)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch := s.hub.subscribe()
	defer s.hub.unsubscribe(ch)

	// Reader goroutine: drains control frames and unblocks the writer
	// when the peer goes away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev := <-ch:
			conn.SetWriteDeadline(time.Now().Add(s.timeout))
			if err := conn.WriteJSON(ev); err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseNormalClosure) {
					s.logger.Error("event stream write failed", "error", err)
				}
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
