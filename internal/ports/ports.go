// Package ports declares the collaborators the ledger engine depends on.
package ports

import (
	"context"
	"time"

	"finanzas/internal/core"

	"github.com/shopspring/decimal"
)

type (
	// AccountStore persists stored accounts. The cash pseudo-account is never
	// stored. Missing rows are reported with an error matching core.ErrNotFound.
	AccountStore interface {
		CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
		GetAccount(ctx context.Context, id string) (core.Account, error)
		ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error)
		// UpdateAccount writes metadata only; the balance column is left alone.
		UpdateAccount(ctx context.Context, a core.Account) error
		UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error
		DeleteAccount(ctx context.Context, id string) error
	}

	// BalanceAdjuster is implemented by stores that can apply a delta
	// atomically on the server side.
	BalanceAdjuster interface {
		AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error)
	}

	// TransactionStore persists transactions.
	TransactionStore interface {
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		ListTransactions(ctx context.Context, ownerID string, f core.Filter) ([]core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, id string) error
	}

	// Store bundles both stores plus lifecycle hooks, as the backends expose.
	Store interface {
		AccountStore
		TransactionStore
		Ping(ctx context.Context) error
		Close() error
	}

	// EventPublisher delivers ledger change events to downstream consumers.
	EventPublisher interface {
		PublishLedgerEvent(ctx context.Context, ev LedgerEvent) error
	}
)

// EventType names a ledger change.
type EventType string

const (
	EventTransactionCreated EventType = "transaction.created"
	EventTransactionUpdated EventType = "transaction.updated"
	EventTransactionDeleted EventType = "transaction.deleted"
)

// LedgerEvent describes one change to a transaction.
type LedgerEvent struct {
	Type        EventType
	Transaction core.Transaction
	Version     int64
	OccurredAt  time.Time
}
