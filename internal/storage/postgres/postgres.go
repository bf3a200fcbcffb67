// Package postgres is the PostgreSQL-backed account and transaction store.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finanzas/internal/core"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Store struct {
	db *pgxpool.Pool
}

// New connects to dsn, pings the server and applies pending migrations.
func New(ctx context.Context, dsn string) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(dsn); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{db: pool}, nil
}

// runMigrations uses its own database/sql handle so the pool is left alone.
func runMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer db.Close()

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		return fmt.Errorf("create pgx migrate driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.db.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

const accountColumns = `id, owner_id, name, institution, masked_number, kind,
	balance::text, initial_balance::text, credit_limit::text, created_at, updated_at`

func scanAccount(row pgx.Row) (core.Account, error) {
	var (
		a                      core.Account
		kind, balance, initial string
		limit                  *string
	)
	if err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Institution, &a.MaskedNumber, &kind,
		&balance, &initial, &limit, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return core.Account{}, err
	}
	a.Kind = core.AccountKind(kind)
	var err error
	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return core.Account{}, fmt.Errorf("parse balance: %w", err)
	}
	if a.InitialBalance, err = decimal.NewFromString(initial); err != nil {
		return core.Account{}, fmt.Errorf("parse initial balance: %w", err)
	}
	if limit != nil {
		d, err := decimal.NewFromString(*limit)
		if err != nil {
			return core.Account{}, fmt.Errorf("parse credit limit: %w", err)
		}
		a.CreditLimit = &d
	}
	a.CreatedAt, a.UpdatedAt = a.CreatedAt.UTC(), a.UpdatedAt.UTC()
	return a, nil
}

func decimalPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func (s *Store) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO accounts (id, owner_id, name, institution, masked_number, kind,
			balance, initial_balance, credit_limit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9::numeric, $10, $11)`,
		a.ID, a.OwnerID, a.Name, a.Institution, a.MaskedNumber, string(a.Kind),
		a.Balance.String(), a.InitialBalance.String(), decimalPtr(a.CreditLimit), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	slog.InfoContext(ctx, "Account saved to PostgreSQL", "id", a.ID, "kind", a.Kind)
	return a, nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (core.Account, error) {
	a, err := scanAccount(s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %q: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (s *Store) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	rows, err := s.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE owner_id = $1 ORDER BY name, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) UpdateAccount(ctx context.Context, a core.Account) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE accounts
		SET name = $2, institution = $3, masked_number = $4, credit_limit = $5::numeric, updated_at = $6
		WHERE id = $1`,
		a.ID, a.Name, a.Institution, a.MaskedNumber, decimalPtr(a.CreditLimit), a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %q: %w", a.ID, core.ErrNotFound)
	}
	return nil
}

func (s *Store) UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE accounts SET balance = $2::numeric, updated_at = now() WHERE id = $1`,
		id, balance.String())
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %q: %w", id, core.ErrNotFound)
	}
	return nil
}

// AdjustBalance increments the balance server-side in a single statement.
func (s *Store) AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance string
	err := s.db.QueryRow(ctx,
		`UPDATE accounts SET balance = balance + $2::numeric, updated_at = now() WHERE id = $1 RETURNING balance::text`,
		id, delta.String()).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("account %q: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("adjust balance: %w", err)
	}
	return decimal.NewFromString(balance)
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %q: %w", id, core.ErrNotFound)
	}
	return nil
}

const transactionColumns = `id, owner_id, kind, amount::text, description, category, date,
	account_id, is_opening_balance, created_at, updated_at`

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		t            core.Transaction
		kind, amount string
		accountID    *string
	)
	if err := row.Scan(&t.ID, &t.OwnerID, &kind, &amount, &t.Description, &t.Category, &t.Date,
		&accountID, &t.IsOpeningBalance, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return core.Transaction{}, err
	}
	t.Kind = core.TransactionKind(kind)
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount: %w", err)
	}
	t.Amount = d
	if accountID != nil {
		t.AccountID = *accountID
	}
	t.Date, t.CreatedAt, t.UpdatedAt = t.Date.UTC(), t.CreatedAt.UTC(), t.UpdatedAt.UTC()
	return t, nil
}

func accountIDParam(t core.Transaction) *string {
	if t.IsCash() {
		return nil
	}
	id := t.AccountID
	return &id
}

func (s *Store) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO transactions (id, owner_id, kind, amount, description, category, date,
			account_id, is_opening_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.OwnerID, string(t.Kind), t.Amount.String(), t.Description, t.Category, t.Date,
		accountIDParam(t), t.IsOpeningBalance, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction saved to PostgreSQL",
		"id", t.ID, "kind", t.Kind, "amount", core.FormatAmount(t.Amount), "account", t.AccountRef())
	return t, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	t, err := scanTransaction(s.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %q: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// ListTransactions narrows by owner, kind, account and date range in SQL and
// applies the rest of f in Go.
func (s *Store) ListTransactions(ctx context.Context, ownerID string, f core.Filter) ([]core.Transaction, error) {
	var (
		mode      int
		accountID string
		from, to  *time.Time
	)
	if f.Account != "" {
		if id := core.NormalizeAccountRef(f.Account); id == "" {
			mode = 1
		} else {
			mode, accountID = 2, id
		}
	}
	if !f.From.IsZero() {
		from = &f.From
	}
	if !f.To.IsZero() {
		to = &f.To
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE owner_id = $1
		  AND ($2::text = '' OR kind = $2)
		  AND ($3::int = 0 OR ($3 = 1 AND account_id IS NULL) OR ($3 = 2 AND account_id = $4))
		  AND ($5::timestamptz IS NULL OR date >= $5)
		  AND ($6::timestamptz IS NULL OR date < $6)
		ORDER BY date DESC, created_at, id`,
		ownerID, string(f.Kind), mode, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out, rows.Err()
}

func (s *Store) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE transactions
		SET kind = $2, amount = $3::numeric, description = $4, category = $5, date = $6,
			account_id = $7, is_opening_balance = $8, updated_at = $9
		WHERE id = $1`,
		t.ID, string(t.Kind), t.Amount.String(), t.Description, t.Category, t.Date,
		accountIDParam(t), t.IsOpeningBalance, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %q: %w", t.ID, core.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %q: %w", id, core.ErrNotFound)
	}
	return nil
}
