package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"finanzas/internal/core"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    core.Filter
		wantErr string
	}{
		{name: "empty", query: "", want: core.Filter{}},
		{
			name:  "all fields",
			query: "kind=Expense&account=cash&category=Food&from=2025-01-01&to=2025-02-01&opening=exclude",
			want: core.Filter{
				Kind: core.Expense, Account: "cash", Category: "Food",
				From:                   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
				To:                     time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
				ExcludeOpeningBalances: true,
			},
		},
		{name: "opening only", query: "opening=only", want: core.Filter{OpeningBalanceOnly: true}},
		{name: "bad kind", query: "kind=transfer", wantErr: "kind"},
		{name: "bad from", query: "from=yesterday", wantErr: "from"},
		{name: "inverted range", query: "from=2025-02-01&to=2025-01-01", wantErr: "to"},
		{name: "bad opening", query: "opening=maybe", wantErr: "opening"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, err := ParseFilter(q)
			if tt.wantErr != "" {
				var ve *core.ValidationError
				if !errors.As(err, &ve) || ve.Field != tt.wantErr {
					t.Fatalf("err = %v, want validation error on %s", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFilter: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseMonths(t *testing.T) {
	for in, want := range map[string]int{"": 0, "6": 6, "36": 36} {
		got, err := parseMonths(url.Values{"months": {in}})
		if err != nil || got != want {
			t.Errorf("parseMonths(%q) = %d, %v", in, got, err)
		}
	}
	for _, in := range []string{"0", "37", "x"} {
		if _, err := parseMonths(url.Values{"months": {in}}); err == nil {
			t.Errorf("parseMonths(%q) should fail", in)
		}
	}
}

func TestJSONAmount(t *testing.T) {
	var v struct {
		A jsonAmount `json:"a"`
		B jsonAmount `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":"12,50","b":0.1}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A != "12,50" || v.B != "0.1" {
		t.Fatalf("got %+v", v)
	}
	if err := json.Unmarshal([]byte(`{"a":true}`), &v); err == nil {
		t.Fatal("expected error for boolean amount")
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{"valid", `{"ids":["a"]}`, true},
		{"empty", ``, false},
		{"unknown field", `{"ids":[],"x":1}`, false},
		{"two objects", `{"ids":[]} {"ids":[]}`, false},
		{"too large", `{"ids":["` + strings.Repeat("a", maxBodyBytes) + `"]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst bulkDeleteRequest
			err := decodeJSON(httptest.NewRecorder(), r, &dst)
			if (err == nil) != tt.ok {
				t.Fatalf("err = %v", err)
			}
			if err != nil && !errors.Is(err, errBadRequest) {
				t.Errorf("decode errors must be bad requests: %v", err)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  Rent\x00\x07 March\t "); got != "Rent March" {
		t.Errorf("got %q", got)
	}
}
