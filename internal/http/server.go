// Package http serves the JSON API over the analyzer and record services.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"emianalyzer/internal/log"
	"emianalyzer/internal/metrics"
	"emianalyzer/internal/middleware/ratelimit"
	"emianalyzer/internal/middleware/security"
	"emianalyzer/internal/middleware/trace"
	"emianalyzer/internal/ports"
	"emianalyzer/internal/services"
)

type ServerConfig struct {
	Addr           string
	RequestTimeout time.Duration
	RateLimit      ratelimit.Config
	// TrustedProxies defaults to security.DefaultTrustedProxies.
	TrustedProxies []string

	Analyzer *services.AnalyzerService
	Records  *services.RecordService
	Store    ports.Store
	Metrics  *metrics.Metrics
	Logger   *log.Logger
}

type Server struct {
	http.Server

	analyzer *services.AnalyzerService
	records  *services.RecordService
	store    ports.Store
	metrics  *metrics.Metrics
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	clientIP *security.ClientIPResolver

	shutdownOnce sync.Once
}

// NewServer wires the router. The returned server is ready for
// ListenAndServe.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Analyzer == nil || cfg.Records == nil || cfg.Store == nil {
		return nil, fmt.Errorf("services and store are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.DefaultConfig())
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.TrustedProxies == nil {
		cfg.TrustedProxies = security.DefaultTrustedProxies
	}
	resolver, err := security.NewClientIPResolver(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	s := &Server{
		analyzer: cfg.Analyzer,
		records:  cfg.Records,
		store:    cfg.Store,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger.WithComponent(log.ComponentHTTP),
		limiter:  ratelimit.NewLimiter(cfg.RateLimit),
		clientIP: resolver,
	}
	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(cfg.RequestTimeout),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(timeout time.Duration) http.Handler {
	var observer trace.Observer
	if s.metrics != nil {
		observer = s.metrics
	}

	r := chi.NewRouter()
	r.Use(log.Middleware(s.logger))
	r.Use(trace.NewMiddleware(s.logger, s.clientIP.ClientIP, observer).Handler)
	r.Use(log.RequestIDMiddleware(trace.RequestID))
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorBody{Error: "not found", RequestID: trace.GetRequestID(r.Context())})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorBody{Error: "method not allowed", RequestID: trace.GetRequestID(r.Context())})
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.clientIP.ClientIP, s.onRateLimit))
		r.Use(middleware.Timeout(timeout))

		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.handleListUsers)
			r.Post("/", s.handleCreateUser)

			r.Route("/{userID}", func(r chi.Router) {
				r.Get("/", s.handleGetUser)
				r.Get("/income", s.handleGetIncome)
				r.Put("/income", s.handlePutIncome)
				r.Get("/budget", s.handleGetBudget)
				r.Put("/budget", s.handlePutBudget)

				r.Get("/loans", s.handleListLoans)
				r.Post("/loans", s.handleCreateLoan)
				r.Post("/loans/quote", s.handleQuoteLoan)
				r.Put("/loans/{loanID}", s.handleUpdateLoan)
				r.Delete("/loans/{loanID}", s.handleDeleteLoan)

				r.Get("/cards", s.handleListCards)
				r.Post("/cards", s.handleCreateCard)
				r.Put("/cards/{cardID}", s.handleUpdateCard)
				r.Delete("/cards/{cardID}", s.handleDeleteCard)
				r.Post("/cards/{cardID}/entries", s.handleCreateCardEntry)
				r.Delete("/cards/{cardID}/entries/{entryID}", s.handleDeleteCardEntry)

				r.Get("/snapshot", s.handleSnapshot)
				r.Get("/charts", s.handleCharts)
				r.Get("/risk", s.handleRisk)
				r.Get("/risk/history", s.handleRiskHistory)
				r.Get("/payments", s.handlePayments)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/settings", s.handleGetSettings)
			r.Put("/settings", s.handlePutSettings)
			r.Get("/users", s.handleAdminUsers)
			r.Get("/risk", s.handleAdminRisk)
			r.Get("/charts", s.handleAdminCharts)
			r.Get("/export/{kind}", s.handleExport)
			r.Post("/export/sheets", s.handleExportSheets)
		})
	})

	return r
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, ErrorBody{
		Error:     "rate limit exceeded, please try again later",
		RequestID: trace.GetRequestID(r.Context()),
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports ready once the store answers a settings read.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.analyzer.Thresholds(r.Context()); err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Shutdown stops the rate limiter and drains the HTTP server. Later calls
// are no-ops.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
