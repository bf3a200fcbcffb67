package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finanzas/internal/core"
)

// DefaultReportMonths is the length of the monthly series when none is asked for.
const DefaultReportMonths = 6

// Report is the aggregate view of an owner's transactions.
type Report struct {
	Totals      core.Aggregates
	Income      []core.CategoryAmount
	Expense     []core.CategoryAmount
	Monthly     []core.MonthTotals
	GeneratedAt time.Time
}

// Report aggregates the owner's transactions matching f and builds a monthly
// series of the given length ending with the current month.
func (s *LedgerService) Report(ctx context.Context, ownerID string, f core.Filter, months int) (Report, error) {
	if months <= 0 {
		months = DefaultReportMonths
	}
	key := reportKey(ownerID, f, months)
	if s.reports != nil {
		if r, ok := s.reports.Get(key); ok {
			slog.DebugContext(ctx, "Report cache hit", "owner_id", ownerID)
			return r, nil
		}
	}

	txs, err := s.txs.ListTransactions(ctx, ownerID, f)
	if err != nil {
		return Report{}, &core.StoreError{Op: "list transactions", Err: err}
	}
	now := s.now()
	agg := core.Aggregate(txs, f)
	r := Report{
		Totals:      agg,
		Income:      agg.SortedByCategory(core.Income),
		Expense:     agg.SortedByCategory(core.Expense),
		Monthly:     core.MonthlySeries(txs, months, now),
		GeneratedAt: now,
	}
	if s.reports != nil {
		s.reports.Set(key, r)
	}
	return r, nil
}

func (s *LedgerService) invalidateReports(ownerID string) {
	if s.reports == nil {
		return
	}
	s.reports.DeletePrefix(ownerID + "|")
}

func reportKey(ownerID string, f core.Filter, months int) string {
	return fmt.Sprintf("%s|%s|%s|%s|%d|%d|%t|%t|%d",
		ownerID, f.Kind, f.Account, f.Category,
		unixOrZero(f.From), unixOrZero(f.To),
		f.OpeningBalanceOnly, f.ExcludeOpeningBalances, months)
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
