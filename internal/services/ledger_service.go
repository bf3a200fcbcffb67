package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/metrics"
	"finanzas/internal/ports"

	"github.com/shopspring/decimal"
)

// LedgerService keeps stored account balances consistent with the
// transactions that reference them. It holds no per-caller state; every
// operation is scoped to the ownerID it receives.
type LedgerService struct {
	accounts ports.AccountStore
	txs      ports.TransactionStore
	events   ports.EventPublisher
	policy   FundsPolicy
	reports  *cache.LRUCache[Report]
	now      func() time.Time
}

// Option configures a LedgerService.
type Option func(*LedgerService)

// WithEventPublisher publishes a LedgerEvent after every mutation.
func WithEventPublisher(p ports.EventPublisher) Option {
	return func(s *LedgerService) { s.events = p }
}

// WithFundsPolicy overrides DefaultFundsPolicy.
func WithFundsPolicy(p FundsPolicy) Option {
	return func(s *LedgerService) { s.policy = p }
}

// WithReportCache caches Report results until the owner's next mutation.
func WithReportCache(c *cache.LRUCache[Report]) Option {
	return func(s *LedgerService) { s.reports = c }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

func NewLedgerService(accounts ports.AccountStore, txs ports.TransactionStore, opts ...Option) *LedgerService {
	s := &LedgerService{
		accounts: accounts,
		txs:      txs,
		policy:   DefaultFundsPolicy(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the active funds policy.
func (s *LedgerService) Policy() FundsPolicy { return s.policy }

// CreateTransaction validates in, checks funds, persists the transaction and
// applies its signed delta to the referenced account.
func (s *LedgerService) CreateTransaction(ctx context.Context, ownerID string, in core.TransactionInput) (core.Transaction, error) {
	start := time.Now()
	t, err := s.createTransaction(ctx, ownerID, in)
	metrics.ObserveLedgerOp("create", start, err)
	return t, err
}

func (s *LedgerService) createTransaction(ctx context.Context, ownerID string, in core.TransactionInput) (core.Transaction, error) {
	t, err := in.Build(ownerID)
	if err != nil {
		return core.Transaction{}, err
	}

	if t.IsCash() {
		if s.needsFundsCheck(core.Cash, t) {
			balance, err := s.cashBalance(ctx, ownerID)
			if err != nil {
				return core.Transaction{}, err
			}
			if err := checkFunds(core.CashRef, balance, t); err != nil {
				return core.Transaction{}, err
			}
		}
	} else {
		acc, err := s.loadAccount(ctx, ownerID, t.AccountID)
		if err != nil {
			return core.Transaction{}, err
		}
		if s.needsFundsCheck(acc.Kind, t) {
			if err := checkFunds(acc.ID, acc.Balance, t); err != nil {
				return core.Transaction{}, err
			}
		}
	}

	now := s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	created, err := s.txs.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, &core.StoreError{Op: "create transaction", Err: err}
	}
	s.invalidateReports(ownerID)

	if !created.IsCash() {
		adj := core.BalanceAdjustment{Step: core.StepBalanceApply, AccountID: created.AccountID, Delta: core.SignedDelta(created)}
		if err := s.adjust(ctx, "create", created.ID, []core.Step{core.StepTransactionCreate}, []core.BalanceAdjustment{adj}); err != nil {
			// The record exists, so downstream mirrors still hear about it.
			s.publish(ctx, ports.EventTransactionCreated, created)
			return created, err
		}
	}

	slog.InfoContext(ctx, "Transaction created",
		"id", created.ID, "kind", created.Kind, "amount", core.FormatAmount(created.Amount),
		"account", created.AccountRef(), "opening_balance", created.IsOpeningBalance)
	s.publish(ctx, ports.EventTransactionCreated, created)
	return created, nil
}

// GetTransaction returns the owner's transaction with the given id.
func (s *LedgerService) GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	return s.loadTransaction(ctx, ownerID, id)
}

// ListTransactions returns the owner's transactions matching f.
func (s *LedgerService) ListTransactions(ctx context.Context, ownerID string, f core.Filter) ([]core.Transaction, error) {
	txs, err := s.txs.ListTransactions(ctx, ownerID, f)
	if err != nil {
		return nil, &core.StoreError{Op: "list transactions", Err: err}
	}
	return txs, nil
}

func (s *LedgerService) needsFundsCheck(kind core.AccountKind, t core.Transaction) bool {
	return t.Kind == core.Expense && !t.IsOpeningBalance && s.policy.Checks(kind)
}

func checkFunds(accountRef string, available decimal.Decimal, t core.Transaction) error {
	if t.Amount.GreaterThan(available) {
		return &core.InsufficientFundsError{AccountID: accountRef, Balance: available, Requested: t.Amount}
	}
	return nil
}

func (s *LedgerService) loadTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	t, err := s.txs.GetTransaction(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: id}
	}
	if err != nil {
		return core.Transaction{}, &core.StoreError{Op: "get transaction", Err: err}
	}
	if t.OwnerID != ownerID {
		return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: id}
	}
	return t, nil
}

func (s *LedgerService) loadAccount(ctx context.Context, ownerID, id string) (core.Account, error) {
	a, err := s.accounts.GetAccount(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Account{}, &core.NotFoundError{Entity: "account", ID: id}
	}
	if err != nil {
		return core.Account{}, &core.StoreError{Op: "get account", Err: err}
	}
	if a.OwnerID != ownerID {
		return core.Account{}, &core.NotFoundError{Entity: "account", ID: id}
	}
	return a, nil
}

// accountExists reports whether id is still stored. Transactions may outlive
// their account; reversals against a deleted account are skipped.
func (s *LedgerService) accountExists(ctx context.Context, id string) (bool, error) {
	_, err := s.accounts.GetAccount(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, &core.StoreError{Op: "get account", Err: err}
	}
	return true, nil
}

func (s *LedgerService) cashBalance(ctx context.Context, ownerID string) (decimal.Decimal, error) {
	txs, err := s.txs.ListTransactions(ctx, ownerID, core.Filter{Account: core.CashRef})
	if err != nil {
		return decimal.Zero, &core.StoreError{Op: "list cash transactions", Err: err}
	}
	return core.CashAccount(ownerID, txs).Balance, nil
}

// adjust applies adjs in order after the record step(s) in done have
// succeeded. The first failure stops the run and is reported as a
// PartialFailureError listing what is still owed.
func (s *LedgerService) adjust(ctx context.Context, op, txID string, done []core.Step, adjs []core.BalanceAdjustment) error {
	completed := append([]core.Step(nil), done...)
	for i, adj := range adjs {
		if adj.Delta.IsZero() {
			completed = append(completed, adj.Step)
			continue
		}
		if err := s.applyDelta(ctx, adj.AccountID, adj.Delta); err != nil {
			pfe := &core.PartialFailureError{
				Op:            op,
				TransactionID: txID,
				Completed:     completed,
				Failed:        adj.Step,
				Pending:       append([]core.BalanceAdjustment(nil), adjs[i:]...),
				Err:           &core.StoreError{Op: string(adj.Step), Err: err},
			}
			slog.ErrorContext(ctx, "Ledger write partially applied",
				"operation", op, "transaction_id", txID, "failed_step", adj.Step,
				"account_id", adj.AccountID, "pending", len(pfe.Pending), "error", err)
			return pfe
		}
		completed = append(completed, adj.Step)
	}
	return nil
}

func (s *LedgerService) applyDelta(ctx context.Context, accountID string, delta decimal.Decimal) error {
	if adj, ok := s.accounts.(ports.BalanceAdjuster); ok {
		_, err := adj.AdjustBalance(ctx, accountID, delta)
		return err
	}
	a, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("read balance: %w", err)
	}
	return s.accounts.UpdateBalance(ctx, accountID, a.Balance.Add(delta))
}

// publish is best effort: the ledger write already succeeded.
func (s *LedgerService) publish(ctx context.Context, typ ports.EventType, t core.Transaction) {
	if s.events == nil {
		return
	}
	now := s.now()
	version := t.UpdatedAt.UnixNano()
	if typ == ports.EventTransactionDeleted {
		version = now.UnixNano()
	}
	ev := ports.LedgerEvent{Type: typ, Transaction: t, Version: version, OccurredAt: now}
	if err := s.events.PublishLedgerEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"type", typ, "transaction_id", t.ID, "error", err)
	}
}
