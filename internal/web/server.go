// Package web serves the recognizer bridge, the WebSocket remote control, health and
// Prometheus metrics over HTTP.
package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/rbright/voiceprompt/internal/logging"
	"github.com/rbright/voiceprompt/internal/observe"
	"github.com/rbright/voiceprompt/internal/playback"
)

const (
	DefaultAddr      = "127.0.0.1:7420"
	DefaultRateLimit = 10.0
	DefaultRateBurst = 5
	shutdownTimeout  = 3 * time.Second
)

//go:embed bridge.html
var bridgePage []byte

// StateSource reports the controller snapshot for /healthz.
type StateSource interface {
	Snapshot() playback.Snapshot
}

type Config struct {
	Addr       string
	Logger     *slog.Logger
	Metrics    *observe.Metrics
	Commander  Commander
	Hub        Hub
	State      StateSource
	Recognizer *Recognizer
	// RateLimit is remote commands per second per connection.
	RateLimit float64
	RateBurst int
	// MetricsHandler serves /metrics. Nil uses the default Prometheus registry.
	MetricsHandler http.Handler
}

type Server struct {
	cfg     Config
	logger  *slog.Logger
	handler http.Handler
}

func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.Discard()
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = DefaultRateBurst
	}
	if cfg.Recognizer == nil {
		cfg.Recognizer = NewRecognizer(cfg.Logger)
	}
	if cfg.MetricsHandler == nil {
		cfg.MetricsHandler = promhttp.Handler()
	}

	s := &Server{cfg: cfg, logger: cfg.Logger}
	s.handler = observe.Middleware(cfg.Metrics, cfg.Logger)(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleBridgePage)
	mux.Handle("GET /ws/recognizer", s.cfg.Recognizer)
	if s.cfg.Commander != nil && s.cfg.Hub != nil {
		mux.Handle("GET /ws/remote", &remoteHandler{
			logger:    s.logger,
			metrics:   s.cfg.Metrics,
			commander: s.cfg.Commander,
			hub:       s.cfg.Hub,
			limit:     rate.Limit(s.cfg.RateLimit),
			burst:     s.cfg.RateBurst,
		})
	}
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.cfg.MetricsHandler)
	return mux
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("http server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
		}
		return nil
	}
}

// ListenAndServe binds cfg.Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) handleBridgePage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(bridgePage)
}

type healthResponse struct {
	OK         bool   `json:"ok"`
	State      string `json:"state,omitempty"`
	Cursor     int    `json:"wordCursor"`
	TotalWords int    `json:"totalWords"`
	Bridge     bool   `json:"bridge"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{OK: true, Bridge: s.cfg.Recognizer.Connected()}
	if s.cfg.State != nil {
		snap := s.cfg.State.Snapshot()
		resp.State = string(snap.State)
		resp.Cursor = snap.Cursor
		resp.TotalWords = snap.Script.Len()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
