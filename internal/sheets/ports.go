// Package sheets declares the spreadsheet mirror the sync worker writes to.
package sheets

import (
	"context"
	"time"

	"finanzas/internal/core"

	"github.com/shopspring/decimal"
)

// Header is the first row of the mirror sheet; columns follow this order.
var Header = []string{"ID", "Date", "Kind", "Description", "Category", "Account", "Amount", "Opening", "Version"}

// Row is one transaction as mirrored in the spreadsheet.
type Row struct {
	ID          string
	Date        time.Time
	Kind        core.TransactionKind
	Description string
	Category    string
	Account     string
	Amount      decimal.Decimal
	Opening     bool
	Version     int64
}

// RowFromTransaction builds the mirror row for t at the given version.
func RowFromTransaction(t core.Transaction, version int64) Row {
	return Row{
		ID:          t.ID,
		Date:        t.Date,
		Kind:        t.Kind,
		Description: t.Description,
		Category:    t.CategoryOrDefault(),
		Account:     t.AccountRef(),
		Amount:      t.Amount,
		Opening:     t.IsOpeningBalance,
		Version:     version,
	}
}

// Ports for outbound adapters.
type (
	// TransactionMirror keeps one row per transaction id. Upsert ignores rows
	// whose version is not newer than the stored row or tombstone. Delete
	// removes the row and leaves a tombstone at version, so a late create or
	// update for the id is refused. Both report whether they changed anything.
	TransactionMirror interface {
		Upsert(ctx context.Context, r Row) (applied bool, err error)
		Delete(ctx context.Context, id string, version int64) (applied bool, err error)
	}

	// RowLister reads back the mirrored rows.
	RowLister interface {
		Rows(ctx context.Context) ([]Row, error)
	}
)
