package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/middleware/auth"
	"finanzas/internal/middleware/ratelimit"
	"finanzas/internal/middleware/security"
	"finanzas/internal/middleware/trace"
	"finanzas/internal/services"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Ledger is the part of services.LedgerService the API serves.
type Ledger interface {
	CreateAccount(ctx context.Context, ownerID string, in services.AccountInput) (core.Account, error)
	UpdateAccount(ctx context.Context, ownerID, id string, patch services.AccountPatch) (core.Account, error)
	DeleteAccount(ctx context.Context, ownerID, id string) error
	GetAccount(ctx context.Context, ownerID, ref string) (core.Account, error)
	ListAccounts(ctx context.Context, ownerID string, includeCash bool) ([]core.Account, error)
	ReconcileAccount(ctx context.Context, ownerID, accountID string, fix bool) (services.Reconciliation, error)
	SetOpeningBalance(ctx context.Context, ownerID, accountRef string, amount decimal.Decimal) (core.Transaction, error)

	CreateTransaction(ctx context.Context, ownerID string, in core.TransactionInput) (core.Transaction, error)
	GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error)
	ListTransactions(ctx context.Context, ownerID string, f core.Filter) ([]core.Transaction, error)
	EditTransaction(ctx context.Context, ownerID, id string, patch core.TransactionPatch) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, ownerID, id string) error
	DeleteTransactions(ctx context.Context, ownerID string, ids []string) (services.BulkDeleteResult, error)
	DuplicateTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error)

	Report(ctx context.Context, ownerID string, f core.Filter, months int) (services.Report, error)
}

// ReadinessCheck is one dependency probed by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Config struct {
	Addr               string
	RateLimitPerMinute int // zero disables rate limiting
	// JWTSecret enables bearer authentication. Without it every request runs
	// as auth.LocalOwner.
	JWTSecret []byte
	Logger    *log.Logger
	Checks    []ReadinessCheck
}

type Server struct {
	http.Server
	ledger   Ledger
	checks   []ReadinessCheck
	limiter  *ratelimit.Limiter
	detector *security.Detector
	auth     func(http.Handler) http.Handler
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, ledger Ledger) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	s := &Server{
		ledger:   ledger,
		checks:   cfg.Checks,
		detector: security.NewDetector(),
		started:  time.Now(),
	}
	if len(cfg.JWTSecret) > 0 {
		s.auth = auth.JWT(cfg.JWTSecret)
	} else {
		logger.Warn("AUTH_JWT_SECRET not set, serving every request as the local owner")
		s.auth = auth.Static(auth.LocalOwner)
	}

	mux := http.NewServeMux()
	s.handle(mux, "GET /healthz", s.handleHealth, false)
	s.handle(mux, "GET /readyz", s.handleReady, false)
	s.handle(mux, "GET /metrics", promhttp.Handler().ServeHTTP, false)

	s.handle(mux, "GET /api/v1/accounts", s.handleListAccounts, true)
	s.handle(mux, "POST /api/v1/accounts", s.handleCreateAccount, true)
	s.handle(mux, "GET /api/v1/accounts/{id}", s.handleGetAccount, true)
	s.handle(mux, "PATCH /api/v1/accounts/{id}", s.handleUpdateAccount, true)
	s.handle(mux, "DELETE /api/v1/accounts/{id}", s.handleDeleteAccount, true)
	s.handle(mux, "PUT /api/v1/accounts/{id}/opening-balance", s.handleOpeningBalance, true)
	s.handle(mux, "POST /api/v1/accounts/{id}/reconcile", s.handleReconcile, true)

	s.handle(mux, "GET /api/v1/transactions", s.handleListTransactions, true)
	s.handle(mux, "POST /api/v1/transactions", s.handleCreateTransaction, true)
	s.handle(mux, "POST /api/v1/transactions/bulk-delete", s.handleBulkDelete, true)
	s.handle(mux, "GET /api/v1/transactions/{id}", s.handleGetTransaction, true)
	s.handle(mux, "PATCH /api/v1/transactions/{id}", s.handleEditTransaction, true)
	s.handle(mux, "DELETE /api/v1/transactions/{id}", s.handleDeleteTransaction, true)
	s.handle(mux, "POST /api/v1/transactions/{id}/duplicate", s.handleDuplicateTransaction, true)

	s.handle(mux, "GET /api/v1/reports/summary", s.handleSummary, true)

	var handler http.Handler = mux
	if cfg.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})
		handler = s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, s.detector.ExtractClientIP(r), log.FieldPath, r.URL.Path)
			ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, try again later").Write(w)
		})(handler)
	}
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = log.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = log.ComponentMiddleware(log.ComponentHTTP)(handler)
	handler = log.Middleware(logger)(handler)
	handler = trace.NewMiddleware(s.detector.ExtractClientIP).Middleware(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc, authenticated bool) {
	var handler http.Handler = h
	if authenticated {
		handler = s.auth(handler)
	}
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		trace.SetRoute(r)
		handler.ServeHTTP(w, r)
	}))
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// ownerOf returns the authenticated owner. The auth middleware guarantees one
// on every API route.
func ownerOf(r *http.Request) string {
	owner, _ := auth.OwnerFromContext(r.Context())
	return owner
}

// fail writes the response for a ledger error and logs server-side failures.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	resp := LedgerErrorResponse(err)
	if resp.statusCode >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path, log.FieldStatusCode, resp.statusCode, log.FieldError, err)
	}
	resp.Write(w)
}

func (s *Server) logOp(r *http.Request, op, transactionID string, err error) {
	log.NewStructuredLogger(log.FromContext(r.Context())).LogLedgerOp(r.Context(), op, ownerOf(r), transactionID, err)
}
