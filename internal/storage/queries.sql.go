package storage

import (
	"context"
	"database/sql"
)

const accountColumns = `id, owner_id, name, institution, masked_number, kind, balance, initial_balance, credit_limit, created_at, updated_at`

const transactionColumns = `id, owner_id, kind, amount, description, category, date, account_id, is_opening_balance, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Institution, &a.MaskedNumber, &a.Kind,
		&a.Balance, &a.InitialBalance, &a.CreditLimit, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func scanTransaction(row interface{ Scan(...any) error }) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.OwnerID, &t.Kind, &t.Amount, &t.Description, &t.Category,
		&t.Date, &t.AccountID, &t.IsOpeningBalance, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

const createAccount = `-- name: CreateAccount :exec
INSERT INTO accounts (` + accountColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateAccount(ctx context.Context, a Account) error {
	_, err := q.db.ExecContext(ctx, createAccount,
		a.ID, a.OwnerID, a.Name, a.Institution, a.MaskedNumber, a.Kind,
		a.Balance, a.InitialBalance, a.CreditLimit, a.CreatedAt, a.UpdatedAt)
	return err
}

const getAccount = `-- name: GetAccount :one
SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

func (q *Queries) GetAccount(ctx context.Context, id string) (Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccount, id))
}

const listAccounts = `-- name: ListAccounts :many
SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = ? ORDER BY name, id`

func (q *Queries) ListAccounts(ctx context.Context, ownerID string) ([]Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const updateAccountMetadata = `-- name: UpdateAccountMetadata :execrows
UPDATE accounts
SET name = ?, institution = ?, masked_number = ?, credit_limit = ?, updated_at = ?
WHERE id = ?`

type UpdateAccountMetadataParams struct {
	Name         string
	Institution  string
	MaskedNumber string
	CreditLimit  sql.NullString
	UpdatedAt    int64
	ID           string
}

func (q *Queries) UpdateAccountMetadata(ctx context.Context, arg UpdateAccountMetadataParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateAccountMetadata,
		arg.Name, arg.Institution, arg.MaskedNumber, arg.CreditLimit, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const setAccountBalance = `-- name: SetAccountBalance :execrows
UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?`

func (q *Queries) SetAccountBalance(ctx context.Context, balance string, updatedAt int64, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, setAccountBalance, balance, updatedAt, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteAccount = `-- name: DeleteAccount :execrows
DELETE FROM accounts WHERE id = ?`

func (q *Queries) DeleteAccount(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteAccount, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createTransaction = `-- name: CreateTransaction :exec
INSERT INTO transactions (` + transactionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, t Transaction) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		t.ID, t.OwnerID, t.Kind, t.Amount, t.Description, t.Category,
		t.Date, t.AccountID, t.IsOpeningBalance, t.CreatedAt, t.UpdatedAt)
	return err
}

const getTransaction = `-- name: GetTransaction :one
SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

// Account mode: 0 any account, 1 cash only, 2 the given account id.
const listTransactions = `-- name: ListTransactions :many
SELECT ` + transactionColumns + ` FROM transactions
WHERE owner_id = ?1
  AND (?2 = '' OR kind = ?2)
  AND (?3 = 0 OR (?3 = 1 AND account_id IS NULL) OR (?3 = 2 AND account_id = ?4))
  AND (?5 = 0 OR date >= ?6)
  AND (?7 = 0 OR date < ?8)
ORDER BY date DESC, created_at, id`

type ListTransactionsParams struct {
	OwnerID     string
	Kind        string
	AccountMode int64
	AccountID   string
	HasFrom     int64
	From        int64
	HasTo       int64
	To          int64
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions,
		arg.OwnerID, arg.Kind, arg.AccountMode, arg.AccountID,
		arg.HasFrom, arg.From, arg.HasTo, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const updateTransaction = `-- name: UpdateTransaction :execrows
UPDATE transactions
SET kind = ?, amount = ?, description = ?, category = ?, date = ?, account_id = ?,
    is_opening_balance = ?, updated_at = ?
WHERE id = ?`

func (q *Queries) UpdateTransaction(ctx context.Context, t Transaction) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		t.Kind, t.Amount, t.Description, t.Category, t.Date, t.AccountID,
		t.IsOpeningBalance, t.UpdatedAt, t.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransaction = `-- name: DeleteTransaction :execrows
DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
