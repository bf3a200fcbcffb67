package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrPartialFailure    = errors.New("partial failure")
	ErrStore             = errors.New("store error")
)

// ValidationError reports malformed input. Nothing was written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports a missing record, or one owned by someone else.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InsufficientFundsError reports an expense larger than the available balance.
type InsufficientFundsError struct {
	AccountID string
	Balance   decimal.Decimal
	Requested decimal.Decimal
}

// Shortfall is the amount missing to cover the request.
func (e *InsufficientFundsError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Balance)
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds on account %q: balance %s, requested %s, shortfall %s",
		e.AccountID, e.Balance.StringFixed(2), e.Requested.StringFixed(2), e.Shortfall().StringFixed(2))
}

func (e *InsufficientFundsError) Is(target error) bool { return target == ErrInsufficientFunds }

// Step names one write of a multi-step ledger operation.
type Step string

const (
	StepTransactionCreate Step = "transaction_create"
	StepTransactionUpdate Step = "transaction_update"
	StepTransactionDelete Step = "transaction_delete"
	StepBalanceReverse    Step = "balance_reverse"
	StepBalanceApply      Step = "balance_apply"
)

// BalanceAdjustment is a pending delta for one account.
type BalanceAdjustment struct {
	Step      Step
	AccountID string
	Delta     decimal.Decimal
}

// PartialFailureError reports a multi-step write that stopped halfway. The
// transaction record step is always done first, so Pending lists exactly the
// balance adjustments still owed. Applying them completes the operation.
type PartialFailureError struct {
	Op            string
	TransactionID string
	Completed     []Step
	Failed        Step
	Pending       []BalanceAdjustment
	Err           error
}

func (e *PartialFailureError) Error() string {
	done := make([]string, len(e.Completed))
	for i, s := range e.Completed {
		done[i] = string(s)
	}
	return fmt.Sprintf("%s transaction %q partially applied (completed: %s, failed: %s): %v",
		e.Op, e.TransactionID, strings.Join(done, ","), e.Failed, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

func (e *PartialFailureError) Is(target error) bool { return target == ErrPartialFailure }

// StoreError wraps a transport or permission failure from a collaborator.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }
