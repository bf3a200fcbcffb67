package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSignedDelta(t *testing.T) {
	in := Transaction{Kind: Income, Amount: dec("12.50")}
	if got := SignedDelta(in); !got.Equal(dec("12.50")) {
		t.Fatalf("income delta = %s", got)
	}
	out := Transaction{Kind: Expense, Amount: dec("12.50")}
	if got := SignedDelta(out); !got.Equal(dec("-12.50")) {
		t.Fatalf("expense delta = %s", got)
	}
}

func TestCashRefs(t *testing.T) {
	for _, ref := range []string{"cash", "CASH", " Efectivo ", "efectivo"} {
		if !IsCashRef(ref) {
			t.Fatalf("%q should be cash", ref)
		}
		if NormalizeAccountRef(ref) != "" {
			t.Fatalf("%q should normalize to empty id", ref)
		}
	}
	if IsCashRef("acc-1") {
		t.Fatalf("acc-1 is not cash")
	}
	if got := NormalizeAccountRef(" acc-1 "); got != "acc-1" {
		t.Fatalf("normalize = %q", got)
	}
}

func TestTransactionInputBuild(t *testing.T) {
	good := TransactionInput{
		Kind:        Expense,
		Amount:      dec("10"),
		Description: " groceries ",
		Date:        time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Account:     "Efectivo",
	}
	tx, err := good.Build("u1")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if !tx.IsCash() || tx.Description != "groceries" || tx.OwnerID != "u1" {
		t.Fatalf("unexpected transaction %+v", tx)
	}

	cases := []struct {
		name  string
		mut   func(*TransactionInput)
		field string
	}{
		{"negative amount", func(in *TransactionInput) { in.Amount = dec("-5") }, "amount"},
		{"zero amount", func(in *TransactionInput) { in.Amount = decimal.Zero }, "amount"},
		{"amount rounds to zero", func(in *TransactionInput) { in.Amount = dec("0.004") }, "amount"},
		{"empty description", func(in *TransactionInput) { in.Description = "  " }, "description"},
		{"long description", func(in *TransactionInput) { in.Description = strings.Repeat("x", 201) }, "description"},
		{"missing date", func(in *TransactionInput) { in.Date = time.Time{} }, "date"},
		{"missing account", func(in *TransactionInput) { in.Account = "" }, "account"},
		{"bad kind", func(in *TransactionInput) { in.Kind = "transfer" }, "kind"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := good
			tc.mut(&in)
			_, err := in.Build("u1")
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tc.field {
				t.Fatalf("field = %q, want %q", ve.Field, tc.field)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected errors.Is ErrValidation")
			}
		})
	}
}

func TestTransactionPatchApply(t *testing.T) {
	base := Transaction{
		ID: "t1", OwnerID: "u1", Kind: Expense, Amount: dec("10"),
		Description: "lunch", Date: time.Now(), AccountID: "a1",
	}

	cat := "Food"
	out, err := TransactionPatch{Category: &cat}.Apply(base)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if AffectsBalance(base, out) {
		t.Fatalf("category change should not affect balance")
	}

	cash := "cash"
	out, err = TransactionPatch{Account: &cash}.Apply(base)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !out.IsCash() || !AffectsBalance(base, out) {
		t.Fatalf("moving to cash should affect balance: %+v", out)
	}

	zero := decimal.Zero
	if _, err := (TransactionPatch{Amount: &zero}).Apply(base); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	empty := ""
	if _, err := (TransactionPatch{Account: &empty}).Apply(base); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for empty account, got %v", err)
	}

	tiny := dec("0.001")
	if _, err := (TransactionPatch{Amount: &tiny}).Apply(base); !errors.Is(err, ErrValidation) {
		t.Fatalf("sub-cent amount should be rejected, got %v", err)
	}
	half := dec("12.345")
	out, err = TransactionPatch{Amount: &half}.Apply(base)
	if err != nil || !out.Amount.Equal(dec("12.35")) {
		t.Fatalf("amount = %s, err %v; want 12.35", out.Amount, err)
	}
}

func TestBuildRoundsAmount(t *testing.T) {
	in := TransactionInput{Kind: Income, Amount: dec("0.005"), Description: "interest", Date: time.Now(), Account: CashRef}
	tx, err := in.Build("u1")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !tx.Amount.Equal(dec("0.01")) {
		t.Fatalf("amount = %s, want 0.01", tx.Amount)
	}
}

func TestDescriptionLimitCountsCharacters(t *testing.T) {
	in := TransactionInput{Kind: Expense, Amount: dec("1"), Date: time.Now(), Account: CashRef}
	in.Description = strings.Repeat("ñ", 200)
	if _, err := in.Build("u1"); err != nil {
		t.Fatalf("200 accented characters should fit: %v", err)
	}
	in.Description = strings.Repeat("é", 201)
	if _, err := in.Build("u1"); !errors.Is(err, ErrValidation) {
		t.Fatalf("201 characters should be rejected, got %v", err)
	}
}

func TestAccountValidate(t *testing.T) {
	limit := dec("500")
	good := Account{Name: "Visa", Kind: Credit, CreditLimit: &limit}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []Account{
		{Name: "", Kind: Debit},
		{Name: "x", Kind: Cash},
		{Name: "x", Kind: Debit, CreditLimit: &limit},
	}
	for i, a := range bads {
		if err := a.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestFilterMatch(t *testing.T) {
	march := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	tx := Transaction{Kind: Expense, Amount: dec("1"), Date: march, AccountID: ""}

	if !(Filter{}).Match(tx) {
		t.Fatalf("zero filter must match")
	}
	if !(Filter{Account: "cash", Category: "uncategorized"}).Match(tx) {
		t.Fatalf("cash + default category should match")
	}
	if (Filter{Kind: Income}).Match(tx) {
		t.Fatalf("kind mismatch should not match")
	}
	if (Filter{To: march}).Match(tx) {
		t.Fatalf("To is exclusive")
	}
	if !(Filter{From: march}).Match(tx) {
		t.Fatalf("From is inclusive")
	}
	if (Filter{OpeningBalanceOnly: true}).Match(tx) {
		t.Fatalf("not an opening balance")
	}
	tx.IsOpeningBalance = true
	if (Filter{ExcludeOpeningBalances: true}).Match(tx) {
		t.Fatalf("opening balance should be excluded")
	}
}

func TestCashAccount(t *testing.T) {
	txs := []Transaction{
		{Kind: Income, Amount: dec("100"), IsOpeningBalance: true},
		{Kind: Expense, Amount: dec("30")},
		{Kind: Expense, Amount: dec("999"), AccountID: "bank"},
	}
	acc := CashAccount("u1", txs)
	if acc.Kind != Cash || acc.ID != "" {
		t.Fatalf("unexpected cash account %+v", acc)
	}
	if !acc.Balance.Equal(dec("70")) {
		t.Fatalf("cash balance = %s, want 70", acc.Balance)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	funds := &InsufficientFundsError{AccountID: "a", Balance: dec("30"), Requested: dec("50")}
	if !funds.Shortfall().Equal(dec("20")) {
		t.Fatalf("shortfall = %s", funds.Shortfall())
	}
	if !errors.Is(funds, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds")
	}

	storeErr := &StoreError{Op: "update balance", Err: errors.New("boom")}
	pfe := &PartialFailureError{Op: "create", TransactionID: "t1", Completed: []Step{StepTransactionCreate}, Failed: StepBalanceApply, Err: storeErr}
	if !errors.Is(pfe, ErrPartialFailure) || !errors.Is(pfe, ErrStore) {
		t.Fatalf("partial failure should match both sentinels")
	}
	if !strings.Contains(pfe.Error(), "transaction_create") {
		t.Fatalf("error should list completed steps: %s", pfe.Error())
	}
	if !errors.Is(&NotFoundError{Entity: "account", ID: "x"}, ErrNotFound) {
		t.Fatalf("expected ErrNotFound")
	}
}
