// Package server exposes the operator HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"solana-sniper/internal/approval"
	"solana-sniper/internal/domain"
	"solana-sniper/internal/service"
	"solana-sniper/internal/storage"
)

// Config holds the HTTP server configuration.
type Config struct {
	Addr         string
	APIKey       string // empty disables authentication
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ApprovalQueue is the manual-approval gate as seen by the API. Satisfied by *approval.Gate.
type ApprovalQueue interface {
	Pending() []approval.Pending
	Dispatch(matchID string) error
	Reject(matchID string) error
}

// SafetyReader exposes Safety State snapshots. Satisfied by *safety.Tracker.
type SafetyReader interface {
	Snapshot(now time.Time) domain.SafetyState
}

// Deps are the components the handlers serve.
type Deps struct {
	Rules        *service.RuleService
	Accounts     *service.AccountService
	Transactions storage.TransactionStore
	Approvals    ApprovalQueue // optional
	Safety       SafetyReader
	Metrics      http.Handler // optional, mounted at /metrics
	Now          func() time.Time
}

// Server is the operator API server.
type Server struct {
	httpServer *http.Server
	log        logrus.FieldLogger
}

// New creates a Server with all routes registered.
func New(cfg Config, deps Deps, log logrus.FieldLogger) *Server {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	log = log.WithField("component", "http")

	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 30 * time.Second
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      NewRouter(cfg.APIKey, deps, log),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  60 * time.Second,
		},
		log: log,
	}
}

// NewRouter builds the route tree. /api/health and /metrics are never authenticated.
func NewRouter(apiKey string, deps Deps, log logrus.FieldLogger) http.Handler {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	h := &handlers{deps: deps, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)

		r.Group(func(r chi.Router) {
			r.Use(apiKeyAuth(apiKey))

			r.Route("/rules", func(r chi.Router) {
				r.Get("/", h.listRules)
				r.Post("/", h.createRule)
				r.Get("/{id}", h.getRule)
				r.Put("/{id}", h.updateRule)
				r.Delete("/{id}", h.deleteRule)
				r.Post("/{id}/enable", h.setRuleEnabled(true))
				r.Post("/{id}/disable", h.setRuleEnabled(false))
			})

			r.Route("/accounts", func(r chi.Router) {
				r.Get("/", h.listAccounts)
				r.Post("/", h.addAccount)
				r.Post("/{id}/activate", h.setAccountActive(true))
				r.Post("/{id}/deactivate", h.setAccountActive(false))
			})

			r.Get("/matches/pending", h.listPending)
			r.Post("/matches/{id}/approve", h.approveMatch)
			r.Post("/matches/{id}/reject", h.rejectMatch)

			r.Get("/transactions", h.listTransactions)
			r.Get("/stats", h.stats)
		})
	})

	return r
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("http server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: listen: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("http server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server: shutdown: %w", err)
	}
	return nil
}
