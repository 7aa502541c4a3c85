package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vitos/crypto_scalp_sim/internal/domain"
	"github.com/vitos/crypto_scalp_sim/internal/infrastructure/storage"
	"github.com/vitos/crypto_scalp_sim/internal/usecase"
)

// Store is the read side of the position and configuration tables.
type Store interface {
	ListPositions(ctx context.Context, limit int) ([]*domain.Position, error)
	LoadConfiguration(ctx context.Context) (domain.Configuration, error)
	Summary(ctx context.Context) ([]storage.StateCount, error)
}

type StatusSource interface {
	LastReport() (usecase.CycleReport, bool)
}

type Server struct {
	router  *http.ServeMux
	server  *http.Server
	store   Store
	status  StatusSource
	started time.Time
	logger  *zap.Logger
}

func NewServer(port int, store Store, status StatusSource, logger *zap.Logger) *Server {
	s := &Server{
		router:  http.NewServeMux(),
		store:   store,
		status:  status,
		started: time.Now(),
		logger:  logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("GET /healthz", s.handleHealth)

	s.router.HandleFunc("GET /api/positions", s.handlePositions)
	s.router.HandleFunc("GET /api/config", s.handleConfig)
	s.router.HandleFunc("GET /api/status", s.handleStatus)

	s.router.Handle("GET /metrics", promhttp.Handler())
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
