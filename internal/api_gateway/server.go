package api_gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/securebank-ledger/internal/api_gateway/handler"
	"github.com/securebank-ledger/internal/api_gateway/service"
	"github.com/securebank-ledger/internal/config"
)

// Server serves the ledger API until Stop is called
type Server struct {
	logger *slog.Logger
	router *gin.Engine
	http   *http.Server
}

// Services are the application services the HTTP layer delegates to
type Services struct {
	Transactions service.TransactionService
	Reports      service.ReportService
	Calculator   service.CalculatorService
}

func NewServer(log *slog.Logger, cfg *config.Config, services Services) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	setupRouter(log, router, Handlers{
		Transactions: handler.NewTransactionHandler(log.With("handler", "transactions"), services.Transactions),
		Reports:      handler.NewReportHandler(log.With("handler", "reports"), services.Reports),
		Calculator:   handler.NewCalculatorHandler(log.With("handler", "calculator"), services.Calculator),
	})

	return &Server{
		logger: log,
		router: router,
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			ReadTimeout:       cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
			IdleTimeout:       cfg.Server.IdleTimeout,
			ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelWarn),
		},
	}
}

// Handler exposes the configured router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks until the listener fails or Stop is called. Stop is not an error.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("HTTP server on %s: %w", s.http.Addr, err)
}

// Stop lets in-flight requests finish until ctx expires, then closes what is left
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	if err := s.http.Shutdown(ctx); err != nil {
		_ = s.http.Close()
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}
