package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// MonthTotals is the income and expense of one calendar month.
type MonthTotals struct {
	Year    int
	Month   time.Month
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// Net is income minus expense for the month.
func (m MonthTotals) Net() decimal.Decimal {
	return m.Income.Sub(m.Expense)
}

// Aggregates summarizes a transaction set.
type Aggregates struct {
	Count        int
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Balance      decimal.Decimal

	income  map[string]decimal.Decimal
	expense map[string]decimal.Decimal
}

// Aggregate sums the transactions matching f. It has no side effects.
func Aggregate(txs []Transaction, f Filter) Aggregates {
	a := Aggregates{
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		income:       make(map[string]decimal.Decimal),
		expense:      make(map[string]decimal.Decimal),
	}
	for _, t := range txs {
		if !f.Match(t) {
			continue
		}
		a.Count++
		cat := t.CategoryOrDefault()
		switch t.Kind {
		case Income:
			a.TotalIncome = a.TotalIncome.Add(t.Amount)
			a.income[cat] = a.income[cat].Add(t.Amount)
		case Expense:
			a.TotalExpense = a.TotalExpense.Add(t.Amount)
			a.expense[cat] = a.expense[cat].Add(t.Amount)
		}
	}
	a.Balance = a.TotalIncome.Sub(a.TotalExpense)
	return a
}

// ByCategory maps each category of the given kind to its summed amount.
// Transactions without a category are grouped under UncategorizedCategory.
func (a Aggregates) ByCategory(kind TransactionKind) map[string]decimal.Decimal {
	src := a.income
	if kind == Expense {
		src = a.expense
	}
	out := make(map[string]decimal.Decimal, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// SortedByCategory returns ByCategory(kind) ordered by amount descending,
// then name.
func (a Aggregates) SortedByCategory(kind TransactionKind) []CategoryAmount {
	m := a.ByCategory(kind)
	out := make([]CategoryAmount, 0, len(m))
	for name, amount := range m {
		out = append(out, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// MonthlySeries returns the last monthCount calendar months ending with the
// month of now, oldest first. Months without transactions are present with
// zero totals. Transaction dates are bucketed in now's location.
func MonthlySeries(txs []Transaction, monthCount int, now time.Time) []MonthTotals {
	if monthCount <= 0 {
		return nil
	}
	loc := now.Location()
	y, m, _ := now.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, loc).AddDate(0, -(monthCount - 1), 0)

	series := make([]MonthTotals, monthCount)
	index := make(map[int]int, monthCount)
	for i := range series {
		start := first.AddDate(0, i, 0)
		series[i] = MonthTotals{
			Year:    start.Year(),
			Month:   start.Month(),
			Income:  decimal.Zero,
			Expense: decimal.Zero,
		}
		index[monthKey(start.Year(), start.Month())] = i
	}

	for _, t := range txs {
		d := t.Date.In(loc)
		i, ok := index[monthKey(d.Year(), d.Month())]
		if !ok {
			continue
		}
		switch t.Kind {
		case Income:
			series[i].Income = series[i].Income.Add(t.Amount)
		case Expense:
			series[i].Expense = series[i].Expense.Add(t.Amount)
		}
	}
	return series
}

func monthKey(year int, month time.Month) int {
	return year*12 + int(month) - 1
}
