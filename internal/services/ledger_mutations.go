package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/metrics"
	"finanzas/internal/ports"

	"github.com/shopspring/decimal"
)

// EditTransaction applies patch to the owner's transaction. Changes to kind,
// amount or account reverse the original effect and apply the new one; when
// the account stays the same only the net difference is written.
func (s *LedgerService) EditTransaction(ctx context.Context, ownerID, id string, patch core.TransactionPatch) (core.Transaction, error) {
	start := time.Now()
	t, err := s.editTransaction(ctx, ownerID, id, patch)
	metrics.ObserveLedgerOp("edit", start, err)
	return t, err
}

func (s *LedgerService) editTransaction(ctx context.Context, ownerID, id string, patch core.TransactionPatch) (core.Transaction, error) {
	orig, err := s.loadTransaction(ctx, ownerID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	updated, err := patch.Apply(orig)
	if err != nil {
		return core.Transaction{}, err
	}
	updated.UpdatedAt = s.now()

	if !core.AffectsBalance(orig, updated) {
		if err := s.txs.UpdateTransaction(ctx, updated); err != nil {
			return core.Transaction{}, &core.StoreError{Op: "update transaction", Err: err}
		}
		s.invalidateReports(ownerID)
		s.publish(ctx, ports.EventTransactionUpdated, updated)
		return updated, nil
	}

	sameAccount := orig.AccountID == updated.AccountID
	if err := s.checkEditFunds(ctx, ownerID, orig, updated, sameAccount); err != nil {
		return core.Transaction{}, err
	}

	var adjs []core.BalanceAdjustment
	switch {
	case sameAccount && !updated.IsCash():
		net := core.SignedDelta(updated).Sub(core.SignedDelta(orig))
		adjs = append(adjs, core.BalanceAdjustment{Step: core.StepBalanceApply, AccountID: updated.AccountID, Delta: net})
	case !sameAccount:
		if !orig.IsCash() {
			exists, err := s.accountExists(ctx, orig.AccountID)
			if err != nil {
				return core.Transaction{}, err
			}
			if exists {
				adjs = append(adjs, core.BalanceAdjustment{Step: core.StepBalanceReverse, AccountID: orig.AccountID, Delta: core.SignedDelta(orig).Neg()})
			} else {
				slog.WarnContext(ctx, "Original account is gone, skipping reversal",
					"transaction_id", id, "account_id", orig.AccountID)
			}
		}
		if !updated.IsCash() {
			adjs = append(adjs, core.BalanceAdjustment{Step: core.StepBalanceApply, AccountID: updated.AccountID, Delta: core.SignedDelta(updated)})
		}
	}

	if err := s.txs.UpdateTransaction(ctx, updated); err != nil {
		return core.Transaction{}, &core.StoreError{Op: "update transaction", Err: err}
	}
	s.invalidateReports(ownerID)
	err = s.adjust(ctx, "edit", id, []core.Step{core.StepTransactionUpdate}, adjs)
	s.publish(ctx, ports.EventTransactionUpdated, updated)
	if err != nil {
		return updated, err
	}

	slog.InfoContext(ctx, "Transaction edited",
		"id", id, "from_account", orig.AccountRef(), "to_account", updated.AccountRef(),
		"old_amount", core.FormatAmount(core.SignedDelta(orig)), "new_amount", core.FormatAmount(core.SignedDelta(updated)))
	return updated, nil
}

// checkEditFunds validates the target account exists and, if its kind is
// checked, that it can carry the updated expense once the original effect is
// removed.
func (s *LedgerService) checkEditFunds(ctx context.Context, ownerID string, orig, updated core.Transaction, sameAccount bool) error {
	if updated.IsCash() {
		if !s.needsFundsCheck(core.Cash, updated) {
			return nil
		}
		available, err := s.cashBalance(ctx, ownerID)
		if err != nil {
			return err
		}
		if sameAccount {
			available = available.Sub(core.SignedDelta(orig))
		}
		return checkFunds(core.CashRef, available, updated)
	}

	target, err := s.loadAccount(ctx, ownerID, updated.AccountID)
	if err != nil {
		return err
	}
	if !s.needsFundsCheck(target.Kind, updated) {
		return nil
	}
	available := target.Balance
	if sameAccount {
		available = available.Sub(core.SignedDelta(orig))
	}
	return checkFunds(target.ID, available, updated)
}

// DeleteTransaction removes the owner's transaction and reverses its effect.
func (s *LedgerService) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	start := time.Now()
	err := s.deleteTransaction(ctx, ownerID, id)
	metrics.ObserveLedgerOp("delete", start, err)
	return err
}

func (s *LedgerService) deleteTransaction(ctx context.Context, ownerID, id string) error {
	t, err := s.loadTransaction(ctx, ownerID, id)
	if err != nil {
		return err
	}

	var adjs []core.BalanceAdjustment
	if !t.IsCash() {
		exists, err := s.accountExists(ctx, t.AccountID)
		if err != nil {
			return err
		}
		if exists {
			adjs = append(adjs, core.BalanceAdjustment{Step: core.StepBalanceReverse, AccountID: t.AccountID, Delta: core.SignedDelta(t).Neg()})
		} else {
			slog.WarnContext(ctx, "Account is gone, deleting orphaned transaction without reversal",
				"transaction_id", id, "account_id", t.AccountID)
		}
	}

	if err := s.txs.DeleteTransaction(ctx, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return &core.NotFoundError{Entity: "transaction", ID: id}
		}
		return &core.StoreError{Op: "delete transaction", Err: err}
	}
	s.invalidateReports(ownerID)
	err = s.adjust(ctx, "delete", id, []core.Step{core.StepTransactionDelete}, adjs)
	s.publish(ctx, ports.EventTransactionDeleted, t)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id, "account", t.AccountRef())
	return nil
}

// BulkDeleteFailure is one id that could not be deleted.
type BulkDeleteFailure struct {
	ID  string
	Err error
}

// BulkDeleteResult summarizes DeleteTransactions.
type BulkDeleteResult struct {
	Deleted int
	Failed  []BulkDeleteFailure
}

// DeleteTransactions deletes every id once, in input order, and keeps going
// when an id fails. Only context cancellation stops the batch early.
func (s *LedgerService) DeleteTransactions(ctx context.Context, ownerID string, ids []string) (BulkDeleteResult, error) {
	var res BulkDeleteResult
	seen := make(map[string]struct{}, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := s.DeleteTransaction(ctx, ownerID, id); err != nil {
			res.Failed = append(res.Failed, BulkDeleteFailure{ID: id, Err: err})
			continue
		}
		res.Deleted++
	}
	if len(res.Failed) > 0 {
		slog.WarnContext(ctx, "Bulk delete finished with failures",
			"deleted", res.Deleted, "failed", len(res.Failed))
	}
	return res, nil
}

// DuplicateTransaction creates an independent copy of the owner's
// transaction dated now. Funds are checked against the current balance.
func (s *LedgerService) DuplicateTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	start := time.Now()
	t, err := s.duplicateTransaction(ctx, ownerID, id)
	metrics.ObserveLedgerOp("duplicate", start, err)
	return t, err
}

func (s *LedgerService) duplicateTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	orig, err := s.loadTransaction(ctx, ownerID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	return s.createTransaction(ctx, ownerID, core.TransactionInput{
		Kind:        orig.Kind,
		Amount:      orig.Amount,
		Description: orig.Description,
		Category:    orig.Category,
		Date:        s.now(),
		Account:     orig.AccountRef(),
	})
}

// SetOpeningBalance replaces the opening-balance entry of an account, or of
// cash when accountRef is a cash ref. A zero amount only removes the existing
// entries and returns a zero Transaction. A negative amount is recorded as an
// expense entry.
func (s *LedgerService) SetOpeningBalance(ctx context.Context, ownerID, accountRef string, amount decimal.Decimal) (core.Transaction, error) {
	start := time.Now()
	t, err := s.setOpeningBalance(ctx, ownerID, accountRef, amount)
	metrics.ObserveLedgerOp("opening_balance", start, err)
	return t, err
}

func (s *LedgerService) setOpeningBalance(ctx context.Context, ownerID, accountRef string, amount decimal.Decimal) (core.Transaction, error) {
	if strings.TrimSpace(accountRef) == "" {
		return core.Transaction{}, &core.ValidationError{Field: "account", Reason: "select an account or cash"}
	}
	filterRef := core.CashRef
	if id := core.NormalizeAccountRef(accountRef); id != "" {
		if _, err := s.loadAccount(ctx, ownerID, id); err != nil {
			return core.Transaction{}, err
		}
		filterRef = id
	}

	existing, err := s.txs.ListTransactions(ctx, ownerID, core.Filter{Account: filterRef, OpeningBalanceOnly: true})
	if err != nil {
		return core.Transaction{}, &core.StoreError{Op: "list opening balances", Err: err}
	}
	for _, t := range existing {
		if err := s.deleteTransaction(ctx, ownerID, t.ID); err != nil {
			return core.Transaction{}, err
		}
	}

	amount = core.RoundAmount(amount)
	if amount.IsZero() {
		return core.Transaction{}, nil
	}
	kind := core.Income
	if amount.IsNegative() {
		kind = core.Expense
		amount = amount.Abs()
	}
	return s.createTransaction(ctx, ownerID, core.TransactionInput{
		Kind:             kind,
		Amount:           amount,
		Description:      "Opening balance",
		Category:         core.OpeningBalanceCategory,
		Date:             s.now(),
		Account:          filterRef,
		IsOpeningBalance: true,
	})
}
