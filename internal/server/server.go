// Package server is the HTTP runtime hosting the invocation entrypoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/soyeahso/agentcore/internal/config"
	"github.com/soyeahso/agentcore/internal/entrypoint"
	"github.com/soyeahso/agentcore/internal/hooks"
	"github.com/soyeahso/agentcore/internal/logging"
	"github.com/soyeahso/agentcore/internal/metrics"
)

// maxBodyBytes caps invocation request bodies and WebSocket frames.
const maxBodyBytes = 1 << 20

// Server serves /invocations, /ping, /ws and /metrics.
type Server struct {
	cfg     config.ServerConfig
	entry   *entrypoint.Entrypoint
	log     *logging.Logger
	hooks   *hooks.Manager
	clients *ClientRegistry
	metrics bool

	startedAt time.Time
	upgrader  websocket.Upgrader

	mu         sync.Mutex
	httpServer *http.Server
	addr       string
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithHooks sets the hook manager for lifecycle events.
func WithHooks(hm *hooks.Manager) ServerOption {
	return func(s *Server) {
		s.hooks = hm
	}
}

// WithoutMetrics disables the /metrics route.
func WithoutMetrics() ServerOption {
	return func(s *Server) {
		s.metrics = false
	}
}

// New creates a server handing invocations to entry.
func New(cfg config.ServerConfig, entry *entrypoint.Entrypoint, log *logging.Logger, opts ...ServerOption) *Server {
	s := &Server{
		cfg:       cfg,
		entry:     entry,
		log:       log.Sub("server"),
		clients:   NewClientRegistry(log.Sub("ws")),
		metrics:   true,
		startedAt: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkWebSocketOrigin(cfg.AllowedOrigins),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// checkWebSocketOrigin allows non-browser clients and configured origins.
func checkWebSocketOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return isOriginAllowed(origin, allowed)
	}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return withMiddleware(mux, s.log, s.cfg.AllowedOrigins)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /invocations", s.handleInvocations)
	mux.HandleFunc("GET /ping", s.handlePing)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	if s.metrics {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	mux.HandleFunc("/", handleNotFound)
}

// Start listens on the configured host and port and serves until ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the server on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	s.httpServer = srv
	s.addr = ln.Addr().String()
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.log.Info().Str("addr", s.addr).Strs("hooks", s.hooks.Events()).Msg("agent runtime listening")
	s.hooks.Emit(ctx, hooks.EventServerStart, map[string]any{hooks.KeyAddr: s.addr})

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.log.Info().Msg("shutting down agent runtime")
		s.hooks.Emit(context.Background(), hooks.EventServerStop, map[string]any{hooks.KeyAddr: s.addr})
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.clients.CloseAll()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}

// Addr returns the listen address once the server is serving.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
