package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionKind = "income"
	Expense TransactionKind = "expense"

	Debit  AccountKind = "debit"
	Credit AccountKind = "credit"
	// Cash is only the display kind of the derived cash account.
	Cash AccountKind = "cash"
)

const (
	// CashRef selects the cash pseudo-account in inputs and filters.
	CashRef = "cash"
	// legacyCashLabel is the label older clients send for cash.
	legacyCashLabel = "efectivo"

	UncategorizedCategory  = "Uncategorized"
	OpeningBalanceCategory = "Opening Balance"
	CashAccountName        = "Cash"

	maxDescriptionLen = 200
)

type (
	TransactionKind string
	AccountKind     string

	Account struct {
		ID             string
		OwnerID        string
		Name           string
		Institution    string
		MaskedNumber   string
		Kind           AccountKind
		Balance        decimal.Decimal
		InitialBalance decimal.Decimal
		CreditLimit    *decimal.Decimal
		CreatedAt      time.Time
		UpdatedAt      time.Time
	}

	Transaction struct {
		ID               string
		OwnerID          string
		Kind             TransactionKind
		Amount           decimal.Decimal
		Description      string
		Category         string
		Date             time.Time
		AccountID        string // empty means cash
		IsOpeningBalance bool
		CreatedAt        time.Time
		UpdatedAt        time.Time
	}
)

func (k TransactionKind) Valid() bool {
	return k == Income || k == Expense
}

func (k AccountKind) Valid() bool {
	return k == Debit || k == Credit
}

// IsCash reports whether the transaction belongs to the cash pseudo-account.
func (t Transaction) IsCash() bool {
	return t.AccountID == ""
}

// AccountRef returns the account id, or CashRef for cash transactions.
func (t Transaction) AccountRef() string {
	if t.IsCash() {
		return CashRef
	}
	return t.AccountID
}

// CategoryOrDefault returns the category, falling back to UncategorizedCategory.
func (t Transaction) CategoryOrDefault() string {
	if c := strings.TrimSpace(t.Category); c != "" {
		return c
	}
	return UncategorizedCategory
}

// SignedDelta is the effect of t on its account balance: +amount for income,
// -amount for expense.
func SignedDelta(t Transaction) decimal.Decimal {
	if t.Kind == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// IsCashRef reports whether ref names the cash pseudo-account.
func IsCashRef(ref string) bool {
	ref = strings.TrimSpace(ref)
	return strings.EqualFold(ref, CashRef) || strings.EqualFold(ref, legacyCashLabel)
}

// NormalizeAccountRef maps cash refs to the stored empty account id.
func NormalizeAccountRef(ref string) string {
	if IsCashRef(ref) {
		return ""
	}
	return strings.TrimSpace(ref)
}

func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return &ValidationError{Field: "kind", Reason: "must be income or expense"}
	}
	if !t.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	desc := strings.TrimSpace(t.Description)
	if desc == "" {
		return &ValidationError{Field: "description", Reason: "is required"}
	}
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		return &ValidationError{Field: "description", Reason: "too long (max 200 characters)"}
	}
	if t.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "is required"}
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if !a.Kind.Valid() {
		return &ValidationError{Field: "kind", Reason: "must be debit or credit"}
	}
	if a.CreditLimit != nil {
		if a.Kind != Credit {
			return &ValidationError{Field: "credit_limit", Reason: "only allowed on credit accounts"}
		}
		if a.CreditLimit.IsNegative() {
			return &ValidationError{Field: "credit_limit", Reason: "must not be negative"}
		}
	}
	return nil
}

// TransactionInput is the caller-supplied data for a new transaction.
type TransactionInput struct {
	Kind        TransactionKind
	Amount      decimal.Decimal
	Description string
	Category    string
	Date        time.Time
	// Account is an account id, or CashRef. Empty means no selection.
	Account          string
	IsOpeningBalance bool
}

// Build rounds the amount to cents, validates, and returns the transaction
// to persist.
func (in TransactionInput) Build(ownerID string) (Transaction, error) {
	if strings.TrimSpace(ownerID) == "" {
		return Transaction{}, &ValidationError{Field: "owner_id", Reason: "is required"}
	}
	if strings.TrimSpace(in.Account) == "" {
		return Transaction{}, &ValidationError{Field: "account", Reason: "select an account or cash"}
	}
	t := Transaction{
		OwnerID:          ownerID,
		Kind:             in.Kind,
		Amount:           RoundAmount(in.Amount),
		Description:      strings.TrimSpace(in.Description),
		Category:         strings.TrimSpace(in.Category),
		Date:             in.Date,
		AccountID:        NormalizeAccountRef(in.Account),
		IsOpeningBalance: in.IsOpeningBalance,
	}
	if err := t.Validate(); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

// TransactionPatch holds optional field changes for an edit.
type TransactionPatch struct {
	Kind        *TransactionKind
	Amount      *decimal.Decimal
	Description *string
	Category    *string
	Date        *time.Time
	Account     *string
}

// Apply returns a copy of t with the patch applied. The result is validated.
func (p TransactionPatch) Apply(t Transaction) (Transaction, error) {
	out := t
	if p.Kind != nil {
		out.Kind = *p.Kind
	}
	if p.Amount != nil {
		out.Amount = RoundAmount(*p.Amount)
	}
	if p.Description != nil {
		out.Description = strings.TrimSpace(*p.Description)
	}
	if p.Category != nil {
		out.Category = strings.TrimSpace(*p.Category)
	}
	if p.Date != nil {
		out.Date = *p.Date
	}
	if p.Account != nil {
		if strings.TrimSpace(*p.Account) == "" {
			return Transaction{}, &ValidationError{Field: "account", Reason: "select an account or cash"}
		}
		out.AccountID = NormalizeAccountRef(*p.Account)
	}
	if err := out.Validate(); err != nil {
		return Transaction{}, err
	}
	return out, nil
}

// AffectsBalance reports whether moving from before to after changes any
// account balance.
func AffectsBalance(before, after Transaction) bool {
	return before.AccountID != after.AccountID ||
		before.Kind != after.Kind ||
		!before.Amount.Equal(after.Amount)
}

// Filter narrows a transaction listing. The zero value matches everything.
type Filter struct {
	Kind TransactionKind
	// Account is an account id or CashRef; empty matches any account.
	Account  string
	Category string
	From     time.Time // inclusive
	To       time.Time // exclusive
	// OpeningBalanceOnly keeps only opening-balance entries.
	OpeningBalanceOnly bool
	// ExcludeOpeningBalances drops opening-balance entries.
	ExcludeOpeningBalances bool
}

// Match reports whether t satisfies every set criterion of f.
func (f Filter) Match(t Transaction) bool {
	if f.Kind != "" && t.Kind != f.Kind {
		return false
	}
	if f.Account != "" && t.AccountID != NormalizeAccountRef(f.Account) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(t.CategoryOrDefault(), f.Category) {
		return false
	}
	if !f.From.IsZero() && t.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !t.Date.Before(f.To) {
		return false
	}
	if f.OpeningBalanceOnly && !t.IsOpeningBalance {
		return false
	}
	if f.ExcludeOpeningBalances && t.IsOpeningBalance {
		return false
	}
	return true
}

// CashAccount builds the derived cash account from the owner's cash
// transactions. Non-cash transactions in txs are ignored.
func CashAccount(ownerID string, txs []Transaction) Account {
	balance := decimal.Zero
	for _, t := range txs {
		if t.IsCash() {
			balance = balance.Add(SignedDelta(t))
		}
	}
	return Account{
		OwnerID: ownerID,
		Name:    CashAccountName,
		Kind:    Cash,
		Balance: balance,
	}
}
