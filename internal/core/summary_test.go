package core

import (
	"testing"
	"time"
)

func TestAggregateTotalsAndCategories(t *testing.T) {
	txs := []Transaction{
		{Kind: Income, Amount: dec("100"), Category: "Salary"},
		{Kind: Expense, Amount: dec("40"), Category: "Food"},
		{Kind: Expense, Amount: dec("10")},
	}
	a := Aggregate(txs, Filter{})
	if a.Count != 3 {
		t.Fatalf("count = %d", a.Count)
	}
	if !a.TotalIncome.Equal(dec("100")) || !a.TotalExpense.Equal(dec("50")) || !a.Balance.Equal(dec("50")) {
		t.Fatalf("totals = %s/%s/%s", a.TotalIncome, a.TotalExpense, a.Balance)
	}
	exp := a.ByCategory(Expense)
	if !exp["Food"].Equal(dec("40")) || !exp[UncategorizedCategory].Equal(dec("10")) {
		t.Fatalf("expense by category = %v", exp)
	}
	sorted := a.SortedByCategory(Expense)
	if len(sorted) != 2 || sorted[0].Name != "Food" {
		t.Fatalf("sorted = %+v", sorted)
	}
	if inc := a.ByCategory(Income); !inc["Salary"].Equal(dec("100")) {
		t.Fatalf("income by category = %v", inc)
	}
}

func TestAggregateEmptyAndFiltered(t *testing.T) {
	a := Aggregate(nil, Filter{})
	if a.Count != 0 || !a.Balance.IsZero() {
		t.Fatalf("empty aggregate = %+v", a)
	}

	txs := []Transaction{
		{Kind: Income, Amount: dec("500"), IsOpeningBalance: true},
		{Kind: Expense, Amount: dec("20")},
	}
	a = Aggregate(txs, Filter{ExcludeOpeningBalances: true})
	if a.Count != 1 || !a.Balance.Equal(dec("-20")) {
		t.Fatalf("filtered aggregate = %+v", a)
	}
}

func TestMonthlySeries(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	txs := []Transaction{
		{Kind: Income, Amount: dec("100"), Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{Kind: Expense, Amount: dec("30"), Date: time.Date(2025, 1, 31, 23, 0, 0, 0, time.UTC)},
		{Kind: Expense, Amount: dec("5"), Date: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)},
	}
	series := MonthlySeries(txs, 3, now)
	if len(series) != 3 {
		t.Fatalf("len = %d", len(series))
	}
	if series[0].Month != time.January || series[2].Month != time.March {
		t.Fatalf("unexpected months %+v", series)
	}
	if !series[0].Expense.Equal(dec("30")) {
		t.Fatalf("january expense = %s", series[0].Expense)
	}
	if !series[1].Income.IsZero() || !series[1].Expense.IsZero() {
		t.Fatalf("february should be empty")
	}
	if !series[2].Net().Equal(dec("100")) {
		t.Fatalf("march net = %s", series[2].Net())
	}
	if MonthlySeries(txs, 0, now) != nil {
		t.Fatalf("zero months should be nil")
	}
}

func TestMonthlySeriesCrossesYear(t *testing.T) {
	now := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	series := MonthlySeries(nil, 2, now)
	if series[0].Year != 2024 || series[0].Month != time.December {
		t.Fatalf("first month = %d-%d", series[0].Year, series[0].Month)
	}
}
