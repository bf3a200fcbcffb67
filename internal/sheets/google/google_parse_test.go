package google

import (
	"testing"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/sheets"

	"github.com/shopspring/decimal"
)

func TestRowValuesParseRow(t *testing.T) {
	in := sheets.Row{
		ID: "tx-1", Date: time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), Kind: core.Income,
		Description: "Salary", Category: "Work", Account: "acc-1",
		Amount: decimal.RequireFromString("1234.5"), Opening: true, Version: 1738281600000000000,
	}
	got, err := parseRow(toStrings(rowValues(in)))
	if err != nil {
		t.Fatalf("parseRow: %v", err)
	}
	if got.ID != in.ID || !got.Date.Equal(in.Date) || got.Kind != in.Kind || !got.Amount.Equal(in.Amount) ||
		!got.Opening || got.Version != in.Version || got.Account != "acc-1" {
		t.Fatalf("got %+v", got)
	}
}

func TestParseRowRejects(t *testing.T) {
	tests := []struct {
		name string
		cols []string
	}{
		{"short", []string{"a", "2025-01-01"}},
		{"header", sheets.Header},
		{"bad date", []string{"a", "31/01/2025", "income", "d", "c", "cash", "1", "", "1"}},
		{"bad amount", []string{"a", "2025-01-31", "income", "d", "c", "cash", "abc", "", "1"}},
		{"bad version", []string{"a", "2025-01-31", "income", "d", "c", "cash", "1", "", "1.7E+18"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseRow(tt.cols); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseAmountDecimalComma(t *testing.T) {
	d, err := parseAmount(" 12,34 ")
	if err != nil || !d.Equal(decimal.RequireFromString("12.34")) {
		t.Fatalf("got %s, %v", d, err)
	}
}

func TestBuildIndex(t *testing.T) {
	values := [][]any{
		headerValues(),
		{"a", "2025-01-01", "income", "x", "c", "cash", "1.00", "", "3"},
		{},
		{"b", "2025-01-01", "income", "x", "c", "cash", "1.00", ""},
	}
	idx := buildIndex(values)
	if len(idx) != 2 {
		t.Fatalf("idx = %+v", idx)
	}
	if idx["a"].number != 2 || idx["a"].version != 3 {
		t.Errorf("a = %+v", idx["a"])
	}
	if idx["b"].number != 4 || idx["b"].version != 0 {
		t.Errorf("b = %+v", idx["b"])
	}
}

func TestBuildTombstonesKeepsHighestVersion(t *testing.T) {
	got := buildTombstones([][]any{
		{"a", "5"},
		{"a", "3"},
		{"b", "not-a-number"},
		{"", "9"},
		{"c"},
		{"a", "7"},
	})
	if len(got) != 1 || got["a"] != 7 {
		t.Fatalf("tombstones = %v", got)
	}
}
