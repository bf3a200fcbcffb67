// Package storage is the SQLite-backed account and transaction store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"finanzas/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; AdjustBalance relies on it.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if err := r.queries.CreateAccount(ctx, accountRow(a)); err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	slog.InfoContext(ctx, "Account saved to SQLite", "id", a.ID, "kind", a.Kind)
	return a, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id string) (core.Account, error) {
	row, err := r.queries.GetAccount(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %q: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return accountFromRow(row)
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	rows, err := r.queries.ListAccounts(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]core.Account, 0, len(rows))
	for _, row := range rows {
		a, err := accountFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) error {
	n, err := r.queries.UpdateAccountMetadata(ctx, UpdateAccountMetadataParams{
		Name:         a.Name,
		Institution:  a.Institution,
		MaskedNumber: a.MaskedNumber,
		CreditLimit:  nullDecimal(a.CreditLimit),
		UpdatedAt:    toNanos(a.UpdatedAt),
		ID:           a.ID,
	})
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %q: %w", a.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	n, err := r.queries.SetAccountBalance(ctx, balance.String(), toNanos(time.Now()), id)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %q: %w", id, core.ErrNotFound)
	}
	return nil
}

// AdjustBalance adds delta to the stored balance inside one database
// transaction. Balances are decimal text, so the sum is computed in Go.
func (r *SQLiteRepository) AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("begin adjust balance: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	row, err := q.GetAccount(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("account %q: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("read balance: %w", err)
	}
	cur, err := decimal.NewFromString(row.Balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse balance %q: %w", row.Balance, err)
	}
	next := cur.Add(delta)
	if _, err := q.SetAccountBalance(ctx, next.String(), toNanos(time.Now()), id); err != nil {
		return decimal.Zero, fmt.Errorf("write balance: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return decimal.Zero, fmt.Errorf("commit adjust balance: %w", err)
	}
	return next, nil
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id string) error {
	n, err := r.queries.DeleteAccount(ctx, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %q: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := r.queries.CreateTransaction(ctx, transactionRow(t)); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID, "kind", t.Kind, "amount", core.FormatAmount(t.Amount), "account", t.AccountRef())
	return t, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %q: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return transactionFromRow(row)
}

// ListTransactions narrows by owner, kind, account and date range in SQL and
// applies the rest of f in Go.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, ownerID string, f core.Filter) ([]core.Transaction, error) {
	arg := ListTransactionsParams{OwnerID: ownerID, Kind: string(f.Kind)}
	if f.Account != "" {
		if id := core.NormalizeAccountRef(f.Account); id == "" {
			arg.AccountMode = 1
		} else {
			arg.AccountMode, arg.AccountID = 2, id
		}
	}
	if !f.From.IsZero() {
		arg.HasFrom, arg.From = 1, toNanos(f.From)
	}
	if !f.To.IsZero() {
		arg.HasTo, arg.To = 1, toNanos(f.To)
	}

	rows, err := r.queries.ListTransactions(ctx, arg)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := transactionFromRow(row)
		if err != nil {
			return nil, err
		}
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	n, err := r.queries.UpdateTransaction(ctx, transactionRow(t))
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %q: %w", t.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %q: %w", id, core.ErrNotFound)
	}
	return nil
}
