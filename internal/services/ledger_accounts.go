package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/metrics"

	"github.com/shopspring/decimal"
)

// AccountInput is the caller-supplied data for a new stored account.
type AccountInput struct {
	Name           string
	Institution    string
	MaskedNumber   string
	Kind           core.AccountKind
	InitialBalance decimal.Decimal
	CreditLimit    *decimal.Decimal
}

// AccountPatch changes account metadata. Balances are never edited here.
type AccountPatch struct {
	Name         *string
	Institution  *string
	MaskedNumber *string
	CreditLimit  *decimal.Decimal
}

func (s *LedgerService) CreateAccount(ctx context.Context, ownerID string, in AccountInput) (core.Account, error) {
	if strings.TrimSpace(ownerID) == "" {
		return core.Account{}, &core.ValidationError{Field: "owner_id", Reason: "is required"}
	}
	initial := core.RoundAmount(in.InitialBalance)
	now := s.now()
	a := core.Account{
		OwnerID:        ownerID,
		Name:           strings.TrimSpace(in.Name),
		Institution:    strings.TrimSpace(in.Institution),
		MaskedNumber:   strings.TrimSpace(in.MaskedNumber),
		Kind:           in.Kind,
		Balance:        initial,
		InitialBalance: initial,
		CreditLimit:    in.CreditLimit,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	created, err := s.accounts.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, &core.StoreError{Op: "create account", Err: err}
	}
	slog.InfoContext(ctx, "Account created", "id", created.ID, "kind", created.Kind,
		"initial_balance", core.FormatAmount(initial))
	return created, nil
}

func (s *LedgerService) UpdateAccount(ctx context.Context, ownerID, id string, patch AccountPatch) (core.Account, error) {
	a, err := s.loadAccount(ctx, ownerID, id)
	if err != nil {
		return core.Account{}, err
	}
	if patch.Name != nil {
		a.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Institution != nil {
		a.Institution = strings.TrimSpace(*patch.Institution)
	}
	if patch.MaskedNumber != nil {
		a.MaskedNumber = strings.TrimSpace(*patch.MaskedNumber)
	}
	if patch.CreditLimit != nil {
		a.CreditLimit = patch.CreditLimit
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	a.UpdatedAt = s.now()
	if err := s.accounts.UpdateAccount(ctx, a); err != nil {
		return core.Account{}, &core.StoreError{Op: "update account", Err: err}
	}
	return a, nil
}

// DeleteAccount removes a stored account. Its transactions are kept and keep
// referencing the deleted id.
func (s *LedgerService) DeleteAccount(ctx context.Context, ownerID, id string) error {
	if _, err := s.loadAccount(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.accounts.DeleteAccount(ctx, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return &core.NotFoundError{Entity: "account", ID: id}
		}
		return &core.StoreError{Op: "delete account", Err: err}
	}
	slog.InfoContext(ctx, "Account deleted", "id", id)
	return nil
}

// GetAccount resolves ref to a stored account or to the derived cash account.
func (s *LedgerService) GetAccount(ctx context.Context, ownerID, ref string) (core.Account, error) {
	if core.IsCashRef(ref) {
		return s.cashAccount(ctx, ownerID)
	}
	return s.loadAccount(ctx, ownerID, strings.TrimSpace(ref))
}

// ListAccounts returns the owner's stored accounts, followed by the cash
// account when includeCash is set.
func (s *LedgerService) ListAccounts(ctx context.Context, ownerID string, includeCash bool) ([]core.Account, error) {
	accs, err := s.accounts.ListAccounts(ctx, ownerID)
	if err != nil {
		return nil, &core.StoreError{Op: "list accounts", Err: err}
	}
	if includeCash {
		cash, err := s.cashAccount(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		accs = append(accs, cash)
	}
	return accs, nil
}

func (s *LedgerService) cashAccount(ctx context.Context, ownerID string) (core.Account, error) {
	txs, err := s.txs.ListTransactions(ctx, ownerID, core.Filter{Account: core.CashRef})
	if err != nil {
		return core.Account{}, &core.StoreError{Op: "list cash transactions", Err: err}
	}
	return core.CashAccount(ownerID, txs), nil
}

// Reconciliation compares a stored balance with the balance implied by the
// account's transactions.
type Reconciliation struct {
	AccountID string
	Stored    decimal.Decimal
	Expected  decimal.Decimal
	Drift     decimal.Decimal
	Fixed     bool
}

// ReconcileAccount recomputes InitialBalance plus the signed deltas of every
// transaction referencing the account. With fix set, a drifted balance is
// overwritten with the expected value.
func (s *LedgerService) ReconcileAccount(ctx context.Context, ownerID, accountID string, fix bool) (Reconciliation, error) {
	start := time.Now()
	r, err := s.reconcileAccount(ctx, ownerID, accountID, fix)
	metrics.ObserveLedgerOp("reconcile", start, err)
	return r, err
}

func (s *LedgerService) reconcileAccount(ctx context.Context, ownerID, accountID string, fix bool) (Reconciliation, error) {
	if core.IsCashRef(accountID) {
		return Reconciliation{}, &core.ValidationError{Field: "account", Reason: "cash balance is derived and cannot drift"}
	}
	a, err := s.loadAccount(ctx, ownerID, accountID)
	if err != nil {
		return Reconciliation{}, err
	}
	txs, err := s.txs.ListTransactions(ctx, ownerID, core.Filter{Account: a.ID})
	if err != nil {
		return Reconciliation{}, &core.StoreError{Op: "list transactions", Err: err}
	}
	expected := a.InitialBalance
	for _, t := range txs {
		expected = expected.Add(core.SignedDelta(t))
	}
	r := Reconciliation{
		AccountID: a.ID,
		Stored:    a.Balance,
		Expected:  expected,
		Drift:     a.Balance.Sub(expected),
	}
	if r.Drift.IsZero() {
		return r, nil
	}

	metrics.BalanceDrift()
	slog.WarnContext(ctx, "Account balance drift detected",
		"account_id", a.ID, "stored", core.FormatAmount(r.Stored),
		"expected", core.FormatAmount(r.Expected), "fix", fix)
	if fix {
		if err := s.accounts.UpdateBalance(ctx, a.ID, expected); err != nil {
			return r, &core.StoreError{Op: "update balance", Err: err}
		}
		r.Fixed = true
	}
	return r, nil
}

// Resume applies the balance adjustments a PartialFailureError left pending
// and records the progress in pfe: applied steps move to Completed and
// Pending keeps only what is still owed. Calling Resume again on the same
// error never reapplies a step. Not safe for concurrent use on one pfe.
func (s *LedgerService) Resume(ctx context.Context, pfe *core.PartialFailureError) error {
	if pfe == nil || len(pfe.Pending) == 0 {
		return nil
	}
	start := time.Now()
	owed := len(pfe.Pending)
	err := s.adjust(ctx, pfe.Op, pfe.TransactionID, pfe.Completed, pfe.Pending)
	metrics.ObserveLedgerOp("resume", start, err)

	var next *core.PartialFailureError
	if errors.As(err, &next) {
		*pfe = *next
		return err
	}
	if err != nil {
		return err
	}
	for _, adj := range pfe.Pending {
		pfe.Completed = append(pfe.Completed, adj.Step)
	}
	pfe.Pending = nil
	slog.InfoContext(ctx, "Partial ledger write completed",
		"operation", pfe.Op, "transaction_id", pfe.TransactionID, "applied", owed)
	return nil
}
