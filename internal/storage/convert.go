package storage

import (
	"database/sql"
	"fmt"
	"time"

	"finanzas/internal/core"

	"github.com/shopspring/decimal"
)

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func accountRow(a core.Account) Account {
	return Account{
		ID:             a.ID,
		OwnerID:        a.OwnerID,
		Name:           a.Name,
		Institution:    a.Institution,
		MaskedNumber:   a.MaskedNumber,
		Kind:           string(a.Kind),
		Balance:        a.Balance.String(),
		InitialBalance: a.InitialBalance.String(),
		CreditLimit:    nullDecimal(a.CreditLimit),
		CreatedAt:      toNanos(a.CreatedAt),
		UpdatedAt:      toNanos(a.UpdatedAt),
	}
}

func accountFromRow(row Account) (core.Account, error) {
	balance, err := decimal.NewFromString(row.Balance)
	if err != nil {
		return core.Account{}, fmt.Errorf("account %s: parse balance: %w", row.ID, err)
	}
	initial, err := decimal.NewFromString(row.InitialBalance)
	if err != nil {
		return core.Account{}, fmt.Errorf("account %s: parse initial balance: %w", row.ID, err)
	}
	a := core.Account{
		ID:             row.ID,
		OwnerID:        row.OwnerID,
		Name:           row.Name,
		Institution:    row.Institution,
		MaskedNumber:   row.MaskedNumber,
		Kind:           core.AccountKind(row.Kind),
		Balance:        balance,
		InitialBalance: initial,
		CreatedAt:      fromNanos(row.CreatedAt),
		UpdatedAt:      fromNanos(row.UpdatedAt),
	}
	if row.CreditLimit.Valid {
		limit, err := decimal.NewFromString(row.CreditLimit.String)
		if err != nil {
			return core.Account{}, fmt.Errorf("account %s: parse credit limit: %w", row.ID, err)
		}
		a.CreditLimit = &limit
	}
	return a, nil
}

func transactionRow(t core.Transaction) Transaction {
	row := Transaction{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Kind:        string(t.Kind),
		Amount:      t.Amount.String(),
		Description: t.Description,
		Category:    t.Category,
		Date:        toNanos(t.Date),
		AccountID:   sql.NullString{String: t.AccountID, Valid: !t.IsCash()},
		CreatedAt:   toNanos(t.CreatedAt),
		UpdatedAt:   toNanos(t.UpdatedAt),
	}
	if t.IsOpeningBalance {
		row.IsOpeningBalance = 1
	}
	return row
}

func transactionFromRow(row Transaction) (core.Transaction, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: parse amount: %w", row.ID, err)
	}
	return core.Transaction{
		ID:               row.ID,
		OwnerID:          row.OwnerID,
		Kind:             core.TransactionKind(row.Kind),
		Amount:           amount,
		Description:      row.Description,
		Category:         row.Category,
		Date:             fromNanos(row.Date),
		AccountID:        row.AccountID.String,
		IsOpeningBalance: row.IsOpeningBalance != 0,
		CreatedAt:        fromNanos(row.CreatedAt),
		UpdatedAt:        fromNanos(row.UpdatedAt),
	}, nil
}
