package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"flashtrade-sim/internal/session"
	"flashtrade-sim/internal/trader"
	"flashtrade-sim/internal/trading"
)

// Server exposes the simulator over HTTP and websocket.
type Server struct {
	port     int
	logger   *zap.Logger
	store    *trading.Store
	engine   *trader.Engine
	sessions *session.Manager
	hub      *Hub
	server   *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(port int, store *trading.Store, engine *trader.Engine, sessions *session.Manager, hub *Hub, logger *zap.Logger) *Server {
	return &Server{
		port:     port,
		logger:   logger.Named("api"),
		store:    store,
		engine:   engine,
		sessions: sessions,
		hub:      hub,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWS)

	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/assets", s.handleAssets)
	mux.HandleFunc("GET /api/trades", s.handleTrades)
	mux.HandleFunc("POST /api/trades", s.handlePlaceOrder)
	mux.HandleFunc("POST /api/trades/{id}/close", s.handleClosePosition)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/modules", s.handleModules)
	mux.HandleFunc("POST /api/modules/{id}/complete", s.handleCompleteModule)
	mux.HandleFunc("PUT /api/tab", s.handleSetTab)
	mux.HandleFunc("PUT /api/selected-asset", s.handleSelectAsset)
	mux.HandleFunc("GET /api/history/{symbol}", s.handleHistory)

	mux.HandleFunc("GET /api/session", s.handleGetSession)
	mux.HandleFunc("POST /api/session", s.handleLogin)
	mux.HandleFunc("DELETE /api/session", s.handleLogout)

	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("Request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}

// Start listens on the configured port. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Starting web server", zap.String("address", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}
