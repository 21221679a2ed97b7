package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"paperTrader/internal/ports"
	"paperTrader/internal/server/handler"
	"paperTrader/internal/server/middleware"
	"paperTrader/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health    *handler.HealthHandler
	Auth      *handler.AuthHandler
	Positions *handler.PositionHandler
	Summary   *handler.SummaryHandler
	Proxy     *handler.ProxyHandler
}

// Server is the HTTP + WebSocket API behind the dashboard.
type Server struct {
	httpServer *http.Server
	logger     ports.Logger
}

// authExemptPaths can be reached without a bearer token: liveness, sign-in,
// and the read-only WebSocket stream the dashboard opens before sign-in.
var authExemptPaths = []string{"/api/health", "/api/auth/login", "/ws"}

// NewServer creates a Server with all routes registered and the middleware
// chain (CORS, request logging, bearer auth) wired up.
func NewServer(cfg Config, handlers Handlers, sessions middleware.TokenValidator, hub *ws.Hub, logger ports.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("POST /api/auth/login", handlers.Auth.Login)
	mux.HandleFunc("POST /api/auth/logout", handlers.Auth.Logout)

	mux.HandleFunc("GET /api/positions", handlers.Positions.ListActive)
	mux.HandleFunc("GET /api/positions/closed", handlers.Positions.ListClosed)
	mux.HandleFunc("POST /api/positions", handlers.Positions.Open)
	mux.HandleFunc("DELETE /api/positions/{address}", handlers.Positions.Close)

	mux.HandleFunc("GET /api/summary", handlers.Summary.GetSummary)

	if handlers.Proxy != nil {
		mux.HandleFunc("GET /api/proxy/{provider}/{rest...}", handlers.Proxy.Forward)
	}

	if hub != nil {
		mux.HandleFunc("GET /ws", hub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	h = middleware.Auth(sessions, authExemptPaths)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{httpServer: srv, logger: logger}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "HTTP server starting", map[string]interface{}{
		"addr": s.httpServer.Addr,
	})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}
