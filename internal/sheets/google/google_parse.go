package google

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/sheets"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

func headerValues() []any {
	out := make([]any, len(sheets.Header))
	for i, h := range sheets.Header {
		out[i] = h
	}
	return out
}

// rowValues renders r in Header order. Everything is written as text so the
// sheet does not reformat amounts or versions.
func rowValues(r sheets.Row) []any {
	opening := ""
	if r.Opening {
		opening = "yes"
	}
	return []any{
		r.ID,
		r.Date.UTC().Format(dateLayout),
		string(r.Kind),
		r.Description,
		r.Category,
		r.Account,
		r.Amount.StringFixed(2),
		opening,
		strconv.FormatInt(r.Version, 10),
	}
}

func parseRow(cols []string) (sheets.Row, error) {
	if len(cols) < len(sheets.Header) {
		return sheets.Row{}, fmt.Errorf("expected %d columns, got %d", len(sheets.Header), len(cols))
	}
	if strings.EqualFold(cols[0], sheets.Header[0]) {
		return sheets.Row{}, errors.New("header row")
	}
	date, err := time.Parse(dateLayout, cols[1])
	if err != nil {
		return sheets.Row{}, fmt.Errorf("parse date %q: %w", cols[1], err)
	}
	amount, err := parseAmount(cols[6])
	if err != nil {
		return sheets.Row{}, err
	}
	version, err := strconv.ParseInt(cols[8], 10, 64)
	if err != nil {
		return sheets.Row{}, fmt.Errorf("parse version %q: %w", cols[8], err)
	}
	return sheets.Row{
		ID:          cols[0],
		Date:        date,
		Kind:        core.TransactionKind(cols[2]),
		Description: cols[3],
		Category:    cols[4],
		Account:     cols[5],
		Amount:      amount,
		Opening:     strings.EqualFold(cols[7], "yes"),
		Version:     version,
	}, nil
}

// parseAmount accepts a decimal comma, as hand-edited sheets often have.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

// buildIndex maps the id in column A to its 1-based row number and version.
// Rows with an unreadable version index as version 0 so any update wins.
func buildIndex(values [][]any) map[string]indexedRow {
	idx := make(map[string]indexedRow, len(values))
	for i, v := range values {
		cols := toStrings(v)
		if len(cols) == 0 || cols[0] == "" || (i == 0 && strings.EqualFold(cols[0], sheets.Header[0])) {
			continue
		}
		var version int64
		if len(cols) > 8 {
			version, _ = strconv.ParseInt(cols[8], 10, 64)
		}
		idx[cols[0]] = indexedRow{number: i + 1, version: version}
	}
	return idx
}

// buildTombstones maps deleted ids to the highest version recorded for each.
func buildTombstones(values [][]any) map[string]int64 {
	out := make(map[string]int64, len(values))
	for _, v := range values {
		cols := toStrings(v)
		if len(cols) < 2 || cols[0] == "" {
			continue
		}
		version, err := strconv.ParseInt(cols[1], 10, 64)
		if err != nil {
			continue
		}
		if version > out[cols[0]] {
			out[cols[0]] = version
		}
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
