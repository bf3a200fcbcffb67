package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/services"

	"golang.org/x/sync/errgroup"
)

// handleSummary serves the dashboard: aggregates and the monthly series next
// to the current account balances, loaded concurrently.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := ParseFilter(q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	months, err := parseMonths(q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	owner := ownerOf(r)

	var (
		report   services.Report
		accounts []core.Account
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		report, err = s.ledger.Report(ctx, owner, f, months)
		return err
	})
	g.Go(func() error {
		var err error
		accounts, err = s.ledger.ListAccounts(ctx, owner, true)
		return err
	})
	if err := g.Wait(); err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Body(newSummaryResponse(report, accounts)).Write(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady runs every readiness check concurrently.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	results := make([]string, len(s.checks))
	var g errgroup.Group
	for i, c := range s.checks {
		g.Go(func() error {
			if err := c.Check(ctx); err != nil {
				results[i] = "failed: " + err.Error()
				return err
			}
			results[i] = "ok"
			return nil
		})
	}
	status, code := "ready", http.StatusOK
	if err := g.Wait(); err != nil {
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	checks := make(map[string]string, len(s.checks))
	for i, c := range s.checks {
		checks[c.Name] = results[i]
	}
	if s.limiter != nil {
		m := s.limiter.GetMetrics()
		checks["rate_limiter"] = "ok (" + strconv.FormatInt(m.ClientCount, 10) + " clients)"
	}
	NewJSONResponse().Status(code).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}
