// Package storetest holds the behavior every ports.Store implementation must
// share. Store packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/ports"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Run exercises newStore against the store contract. newStore must return an
// empty store; it is called once per subtest.
func Run(t *testing.T, newStore func(t *testing.T) ports.Store) {
	t.Run("AccountRoundTrip", func(t *testing.T) { testAccountRoundTrip(t, newStore(t)) })
	t.Run("AccountNotFound", func(t *testing.T) { testAccountNotFound(t, newStore(t)) })
	t.Run("UpdateAccountKeepsBalance", func(t *testing.T) { testUpdateAccountKeepsBalance(t, newStore(t)) })
	t.Run("TransactionRoundTrip", func(t *testing.T) { testTransactionRoundTrip(t, newStore(t)) })
	t.Run("TransactionNotFound", func(t *testing.T) { testTransactionNotFound(t, newStore(t)) })
	t.Run("ListFilters", func(t *testing.T) { testListFilters(t, newStore(t)) })
	t.Run("AdjustBalance", func(t *testing.T) { testAdjustBalance(t, newStore(t)) })
}

var (
	day1 = time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	day2 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
)

func testAccountRoundTrip(t *testing.T, s ports.Store) {
	ctx := context.Background()
	limit := dec("1500.00")
	in := core.Account{
		OwnerID: "u1", Name: "Visa", Institution: "Bank", MaskedNumber: "**** 4242",
		Kind: core.Credit, Balance: dec("-12.34"), InitialBalance: dec("0"), CreditLimit: &limit,
		CreatedAt: day1, UpdatedAt: day1,
	}
	created, err := s.CreateAccount(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("store must assign an id")
	}
	got, err := s.GetAccount(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Visa" || got.Kind != core.Credit || !got.Balance.Equal(dec("-12.34")) ||
		got.CreditLimit == nil || !got.CreditLimit.Equal(limit) || !got.CreatedAt.Equal(day1) {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	if _, err := s.CreateAccount(ctx, core.Account{OwnerID: "u1", Name: "Another", Kind: core.Debit, CreatedAt: day1, UpdatedAt: day1}); err != nil {
		t.Fatalf("create second: %v", err)
	}
	if _, err := s.CreateAccount(ctx, core.Account{OwnerID: "u2", Name: "Foreign", Kind: core.Debit, CreatedAt: day1, UpdatedAt: day1}); err != nil {
		t.Fatalf("create foreign: %v", err)
	}
	list, err := s.ListAccounts(ctx, "u1")
	if err != nil || len(list) != 2 || list[0].Name != "Another" {
		t.Fatalf("list = %+v, %v", list, err)
	}

	if err := s.DeleteAccount(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetAccount(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func testAccountNotFound(t *testing.T, s ports.Store) {
	ctx := context.Background()
	if _, err := s.GetAccount(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get: %v", err)
	}
	if err := s.UpdateBalance(ctx, "nope", dec("1")); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("update balance: %v", err)
	}
	if err := s.UpdateAccount(ctx, core.Account{ID: "nope", Name: "x", Kind: core.Debit}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("update account: %v", err)
	}
	if err := s.DeleteAccount(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("delete: %v", err)
	}
}

func testUpdateAccountKeepsBalance(t *testing.T, s ports.Store) {
	ctx := context.Background()
	a, err := s.CreateAccount(ctx, core.Account{OwnerID: "u1", Name: "Main", Kind: core.Debit, Balance: dec("10"), InitialBalance: dec("10"), CreatedAt: day1, UpdatedAt: day1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.UpdateBalance(ctx, a.ID, dec("42.50")); err != nil {
		t.Fatalf("update balance: %v", err)
	}
	a.Name = "Renamed"
	a.Balance = dec("999")
	a.UpdatedAt = day2
	if err := s.UpdateAccount(ctx, a); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := s.GetAccount(ctx, a.ID)
	if got.Name != "Renamed" || !got.Balance.Equal(dec("42.50")) || !got.InitialBalance.Equal(dec("10")) {
		t.Fatalf("metadata update must not touch balances: %+v", got)
	}
}

func testTransactionRoundTrip(t *testing.T, s ports.Store) {
	ctx := context.Background()
	in := core.Transaction{
		OwnerID: "u1", Kind: core.Expense, Amount: dec("19.99"), Description: "Books",
		Category: "Education", Date: day1, AccountID: "acc-1", IsOpeningBalance: true,
		CreatedAt: day1, UpdatedAt: day1,
	}
	created, err := s.CreateTransaction(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := s.GetTransaction(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AccountID != "acc-1" || !got.Amount.Equal(dec("19.99")) || !got.IsOpeningBalance ||
		!got.Date.Equal(day1) || got.Category != "Education" {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	got.AccountID = ""
	got.IsOpeningBalance = false
	got.Amount = dec("5")
	got.UpdatedAt = day2
	if err := s.UpdateTransaction(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	again, _ := s.GetTransaction(ctx, created.ID)
	if !again.IsCash() || again.IsOpeningBalance || !again.Amount.Equal(dec("5")) {
		t.Fatalf("update mismatch: %+v", again)
	}

	if err := s.DeleteTransaction(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteTransaction(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func testTransactionNotFound(t *testing.T, s ports.Store) {
	ctx := context.Background()
	if _, err := s.GetTransaction(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get: %v", err)
	}
	if err := s.UpdateTransaction(ctx, core.Transaction{ID: "nope", Kind: core.Income, Amount: dec("1"), Description: "x", Date: day1}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("update: %v", err)
	}
}

func testListFilters(t *testing.T, s ports.Store) {
	ctx := context.Background()
	seed := []core.Transaction{
		{OwnerID: "u1", Kind: core.Income, Amount: dec("100"), Description: "salary", Category: "Salary", Date: day1, AccountID: "acc-1"},
		{OwnerID: "u1", Kind: core.Expense, Amount: dec("20"), Description: "food", Category: "Food", Date: day2, AccountID: "acc-1"},
		{OwnerID: "u1", Kind: core.Expense, Amount: dec("5"), Description: "coffee", Date: day2},
		{OwnerID: "u1", Kind: core.Income, Amount: dec("50"), Description: "opening", Category: core.OpeningBalanceCategory, Date: day1, IsOpeningBalance: true},
		{OwnerID: "u2", Kind: core.Expense, Amount: dec("1"), Description: "foreign", Date: day2},
	}
	for _, tx := range seed {
		tx.CreatedAt, tx.UpdatedAt = tx.Date, tx.Date
		if _, err := s.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	cases := []struct {
		name string
		f    core.Filter
		want int
	}{
		{"all", core.Filter{}, 4},
		{"kind", core.Filter{Kind: core.Expense}, 2},
		{"account", core.Filter{Account: "acc-1"}, 2},
		{"cash", core.Filter{Account: core.CashRef}, 2},
		{"category fallback", core.Filter{Category: "uncategorized"}, 1},
		{"from inclusive", core.Filter{From: day2}, 2},
		{"to exclusive", core.Filter{To: day2}, 2},
		{"opening only", core.Filter{OpeningBalanceOnly: true}, 1},
		{"exclude opening", core.Filter{ExcludeOpeningBalances: true}, 3},
		{"combined", core.Filter{Kind: core.Expense, Account: "cash", From: day1}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.ListTransactions(ctx, "u1", tc.f)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(got) != tc.want {
				t.Fatalf("got %d transactions, want %d", len(got), tc.want)
			}
			for i := 1; i < len(got); i++ {
				if got[i].Date.After(got[i-1].Date) {
					t.Fatalf("transactions must be ordered newest first")
				}
			}
		})
	}
}

func testAdjustBalance(t *testing.T, s ports.Store) {
	adj, ok := s.(ports.BalanceAdjuster)
	if !ok {
		t.Skip("store has no atomic balance adjustment")
	}
	ctx := context.Background()
	a, err := s.CreateAccount(ctx, core.Account{OwnerID: "u1", Name: "Main", Kind: core.Debit, Balance: dec("10.10"), InitialBalance: dec("10.10"), CreatedAt: day1, UpdatedAt: day1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	nb, err := adj.AdjustBalance(ctx, a.ID, dec("-0.20"))
	if err != nil || !nb.Equal(dec("9.90")) {
		t.Fatalf("adjust: %s, %v", nb, err)
	}
	got, _ := s.GetAccount(ctx, a.ID)
	if !got.Balance.Equal(dec("9.90")) {
		t.Fatalf("stored balance = %s", got.Balance)
	}
	if _, err := adj.AdjustBalance(ctx, "nope", dec("1")); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("adjust missing: %v", err)
	}
}
