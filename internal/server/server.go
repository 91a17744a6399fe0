// Package server exposes the analytics engine over a local HTTP
// API: ingest endpoints for the chat frontend and read-only
// aggregate views for the dashboard.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	gosync "sync"
	"time"

	"github.com/chatlens/chatlens/internal/analytics"
	"github.com/chatlens/chatlens/internal/config"
)

// VersionInfo holds build-time version metadata.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// Server is the HTTP server in front of the analytics engine.
type Server struct {
	mu      gosync.RWMutex
	cfg     config.Config
	engine  *analytics.Engine
	mux     *http.ServeMux
	httpSrv *http.Server
	version VersionInfo
	meta    SnapshotMeta

	// handlerDelay is injected before each timeout-wrapped
	// handler, used only by tests to guarantee handlers
	// exceed a short timeout. Zero in production.
	handlerDelay time.Duration
}

// New creates a new Server around the engine.
func New(
	cfg config.Config, engine *analytics.Engine, opts ...Option,
) *Server {
	s := &Server{
		cfg:    cfg,
		engine: engine,
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the build-time version metadata.
func WithVersion(v VersionInfo) Option {
	return func(s *Server) { s.version = v }
}

// withHandlerDelay injects a sleep before every timeout-wrapped
// handler. Test-only.
func withHandlerDelay(d time.Duration) Option {
	return func(s *Server) { s.handlerDelay = d }
}

func (s *Server) routes() {
	s.mux.Handle("POST /api/v1/turns/start", s.withTimeout(s.handleStartTurn))
	s.mux.Handle("POST /api/v1/messages/user", s.withTimeout(s.handleUserMessage))
	s.mux.Handle("POST /api/v1/messages/bot", s.withTimeout(s.handleBotMessage))
	s.mux.Handle("POST /api/v1/reset", s.withTimeout(s.handleReset))

	s.mux.Handle("GET /api/v1/analytics/summary", s.withTimeout(s.handleSummary))
	s.mux.Handle("GET /api/v1/analytics/topics", s.withTimeout(s.handleTopics))
	s.mux.Handle("GET /api/v1/analytics/activity", s.withTimeout(s.handleActivity))
	s.mux.Handle("GET /api/v1/history", s.withTimeout(s.handleHistory))
	s.mux.Handle("GET /api/v1/search", s.withTimeout(s.handleSearch))

	// Export: no timeout handler, to avoid buffering the download.
	s.mux.Handle("GET /api/v1/export", http.HandlerFunc(s.handleExport))
	// SSE: long-lived connection, no timeout.
	s.mux.HandleFunc("GET /api/v1/watch", s.handleWatch)

	s.mux.Handle("GET /api/v1/version", s.withTimeout(s.handleGetVersion))
	s.mux.Handle("GET /api/v1/stats", s.withTimeout(s.handleStats))
}

func (s *Server) handleGetVersion(
	w http.ResponseWriter, _ *http.Request,
) {
	writeJSON(w, http.StatusOK, s.version)
}

// Handler returns the http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(logMiddleware(s.mux))
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()
	log.Printf("Starting server at http://%s", addr)
	return srv.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.httpSrv
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// FindAvailablePort finds an available port starting from the
// given port, binding to the specified host.
func FindAvailablePort(host string, start int) int {
	for port := start; port < start+100; port++ {
		addr := net.JoinHostPort(host, strconv.Itoa(port))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			ln.Close()
			return port
		}
	}
	return start
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set(
				"Access-Control-Allow-Origin", "*",
			)
			w.Header().Set(
				"Access-Control-Allow-Methods",
				"GET, POST, OPTIONS",
			)
			w.Header().Set(
				"Access-Control-Allow-Headers",
				"Content-Type",
			)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			log.Printf("%s %s", r.Method, r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}
