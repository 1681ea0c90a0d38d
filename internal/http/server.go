// Package http serves the JSON API over the report and ledger services.
package http

import (
	"context"
	"net/http"
	"time"

	"financemei/internal/metrics"
	"financemei/internal/middleware/ratelimit"
	"financemei/internal/middleware/security"
	"financemei/internal/middleware/trace"
	"financemei/internal/services"

	"github.com/gorilla/mux"
)

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	RateLimit      ratelimit.Config
	RequestTimeout time.Duration
	// Ready reports whether the backing store is reachable.
	Ready func(ctx context.Context) error
}

// Server is the HTTP front of the tracker.
type Server struct {
	*http.Server

	reports *services.ReportService
	ledger  *services.LedgerService

	detector       *security.Detector
	limiter        *ratelimit.Limiter
	tracer         *trace.Middleware
	ready          func(ctx context.Context) error
	requestTimeout time.Duration
	startedAt      time.Time
	now            func() time.Time
}

func NewServer(addr string, reports *services.ReportService, ledgerSvc *services.LedgerService, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	detector := security.NewDetector()
	s := &Server{
		reports:        reports,
		ledger:         ledgerSvc,
		detector:       detector,
		limiter:        ratelimit.NewLimiter(opts.RateLimit),
		tracer:         trace.NewMiddleware(detector.ExtractClientIP),
		ready:          opts.Ready,
		requestTimeout: opts.RequestTimeout,
		startedAt:      time.Now(),
		now:            time.Now,
	}

	s.Server = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      opts.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(metrics.InstrumentHandler)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.requireOwner)
	api.Use(s.limiter.Middleware(s.detector.ExtractClientIP, nil))
	api.Use(s.withTimeout)
	api.Use(s.accessGate)

	api.HandleFunc("/subscription", s.handleSubscription).Methods(http.MethodGet)
	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/trend", s.handleTrend).Methods(http.MethodGet)
	api.HandleFunc("/categories", s.handleCategories).Methods(http.MethodGet)
	api.HandleFunc("/standing", s.handleStanding).Methods(http.MethodGet)
	api.HandleFunc("/tax", s.handleTax).Methods(http.MethodGet)
	api.HandleFunc("/tax/due", s.handleTaxDue).Methods(http.MethodGet)
	api.HandleFunc("/entries", s.handleCreateEntry).Methods(http.MethodPost)
	api.HandleFunc("/entries/{id}", s.handleDeleteEntry).Methods(http.MethodDelete)
	api.HandleFunc("/obligations", s.handleCreateObligation).Methods(http.MethodPost)
	api.HandleFunc("/obligations/{id}/fulfill", s.handleFulfillObligation).Methods(http.MethodPost)

	r.HandleFunc("/admin/subscriptions/tally", s.handleTally).Methods(http.MethodGet)
	return r
}

func (s *Server) withTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Shutdown stops accepting requests and releases the limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}
