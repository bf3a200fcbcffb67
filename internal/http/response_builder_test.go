package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"finanzas/internal/core"

	"github.com/shopspring/decimal"
)

func TestJSONResponseBuilder(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/x").
		Body(map[string]int{"n": 1}).
		Write(w)

	if w.Code != http.StatusCreated || w.Header().Get("Location") != "/x" {
		t.Fatalf("code=%d headers=%v", w.Code, w.Header())
	}
	if w.Header().Get("Content-Type") != "application/json" || w.Body.String() != "{\"n\":1}\n" {
		t.Fatalf("body = %q", w.Body.String())
	}

	w = httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 || w.Header().Get("Content-Type") != "" {
		t.Fatalf("no content response = %d %q", w.Code, w.Body.String())
	}
}

func TestLedgerErrorResponse(t *testing.T) {
	storeErr := &core.StoreError{Op: "adjust balance", Err: errors.New("disk full")}
	partial := &core.PartialFailureError{
		Op:            "delete",
		TransactionID: "tx-1",
		Completed:     []core.Step{core.StepTransactionDelete},
		Failed:        core.StepBalanceReverse,
		Pending:       []core.BalanceAdjustment{{Step: core.StepBalanceReverse, AccountID: "acc-1", Delta: decimal.NewFromInt(30)}},
		Err:           storeErr,
	}

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"bad request", badRequest("nope"), http.StatusBadRequest, "bad_request"},
		{"validation", &core.ValidationError{Field: "amount", Reason: "must be greater than zero"}, http.StatusUnprocessableEntity, "validation_error"},
		{"not found", fmt.Errorf("load: %w", &core.NotFoundError{Entity: "account", ID: "a"}), http.StatusNotFound, "not_found"},
		{"insufficient funds", &core.InsufficientFundsError{AccountID: "a", Balance: decimal.NewFromInt(5), Requested: decimal.NewFromInt(8)}, http.StatusConflict, "insufficient_funds"},
		{"partial failure wins over store", partial, http.StatusInternalServerError, "partial_failure"},
		{"store", storeErr, http.StatusServiceUnavailable, "store_unavailable"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			LedgerErrorResponse(tt.err).Write(w)
			if w.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d", w.Code, tt.wantCode)
			}
			var body ErrorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != tt.wantErr {
				t.Errorf("error = %q, want %q", body.Error, tt.wantErr)
			}
		})
	}
}

func TestLedgerErrorResponse_PartialFailureDetails(t *testing.T) {
	pfe := &core.PartialFailureError{
		Op: "edit", TransactionID: "tx-9",
		Completed: []core.Step{core.StepTransactionUpdate, core.StepBalanceReverse},
		Failed:    core.StepBalanceApply,
		Pending:   []core.BalanceAdjustment{{Step: core.StepBalanceApply, AccountID: "acc-2", Delta: decimal.RequireFromString("-12.5")}},
		Err:       errors.New("timeout"),
	}
	w := httptest.NewRecorder()
	LedgerErrorResponse(pfe).Write(w)

	var body struct {
		Details partialFailureDetails `json:"details"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	d := body.Details
	if d.TransactionID != "tx-9" || d.Failed != core.StepBalanceApply || len(d.Completed) != 2 {
		t.Fatalf("details = %+v", d)
	}
	if len(d.Pending) != 1 || d.Pending[0].Delta != "-12.50" || d.Pending[0].AccountID != "acc-2" {
		t.Fatalf("pending = %+v", d.Pending)
	}
}
