// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finanzas/internal/core"
)

const (
	maxBodyBytes = 1 << 20
	dateLayout   = "2006-01-02"
	maxMonths    = 36
)

// errBadRequest marks malformed requests, as opposed to invalid ledger input.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// decodeJSON reads exactly one JSON object into dst. Unknown fields and
// trailing data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return badRequest("request body larger than %d bytes", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		default:
			return badRequest("malformed JSON: %v", err)
		}
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON object")
	}
	return nil
}

// jsonAmount accepts an amount written as a JSON string or number and keeps
// its literal text, so no float rounding happens before decimal parsing.
type jsonAmount string

func (a *jsonAmount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = jsonAmount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a string or number")
	}
	*a = jsonAmount(n.String())
	return nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &core.ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	return t, nil
}

// ParseFilter builds a transaction filter from query parameters: kind,
// account, category, from, to (YYYY-MM-DD, to exclusive) and opening
// (only|exclude).
func ParseFilter(q url.Values) (core.Filter, error) {
	f := core.Filter{
		Kind:     core.TransactionKind(strings.ToLower(strings.TrimSpace(q.Get("kind")))),
		Account:  sanitizeInput(q.Get("account")),
		Category: sanitizeInput(q.Get("category")),
	}
	if f.Kind != "" && !f.Kind.Valid() {
		return core.Filter{}, &core.ValidationError{Field: "kind", Reason: "must be income or expense"}
	}
	for _, p := range []struct {
		key string
		dst *time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		if v := strings.TrimSpace(q.Get(p.key)); v != "" {
			t, err := parseDate(v)
			if err != nil {
				return core.Filter{}, &core.ValidationError{Field: p.key, Reason: "must be YYYY-MM-DD"}
			}
			*p.dst = t
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return core.Filter{}, &core.ValidationError{Field: "to", Reason: "must be after from"}
	}
	switch strings.ToLower(strings.TrimSpace(q.Get("opening"))) {
	case "":
	case "only":
		f.OpeningBalanceOnly = true
	case "exclude":
		f.ExcludeOpeningBalances = true
	default:
		return core.Filter{}, &core.ValidationError{Field: "opening", Reason: "must be only or exclude"}
	}
	return f, nil
}

// parseMonths reads the months query parameter; zero means the default.
func parseMonths(q url.Values) (int, error) {
	v := strings.TrimSpace(q.Get("months"))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > maxMonths {
		return 0, &core.ValidationError{Field: "months", Reason: fmt.Sprintf("must be between 1 and %d", maxMonths)}
	}
	return n, nil
}

func parseBool(q url.Values, key string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(q.Get(key)))
	return b
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func sanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := sanitizeInput(*s)
	return &v
}
