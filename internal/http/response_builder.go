// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses
// and maps ledger errors onto status codes.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"finanzas/internal/core"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body. A nil payload sends no body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.payload == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.payload); err != nil {
		slog.Error("Encode response failed", "error", err)
	}
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse creates an error response with a machine-readable code.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(ErrorBody{Error: code, Message: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "bad_request", message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, "not_found", message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal_error", message)
}

type insufficientFundsDetails struct {
	AccountID string `json:"account_id"`
	Balance   string `json:"balance"`
	Requested string `json:"requested"`
	Shortfall string `json:"shortfall"`
}

type pendingAdjustment struct {
	Step      core.Step `json:"step"`
	AccountID string    `json:"account_id"`
	Delta     string    `json:"delta"`
}

type partialFailureDetails struct {
	Operation     string              `json:"operation"`
	TransactionID string              `json:"transaction_id"`
	Completed     []core.Step         `json:"completed"`
	Failed        core.Step           `json:"failed"`
	Pending       []pendingAdjustment `json:"pending"`
}

// LedgerErrorResponse maps an error returned by the ledger service onto a
// response. A partial failure is checked first: it wraps the store error
// that interrupted it.
func LedgerErrorResponse(err error) *JSONResponseBuilder {
	var (
		pfe *core.PartialFailureError
		ve  *core.ValidationError
		nfe *core.NotFoundError
		ife *core.InsufficientFundsError
	)
	switch {
	case errors.Is(err, errBadRequest):
		return BadRequestError(err.Error())
	case errors.As(err, &pfe):
		details := partialFailureDetails{
			Operation:     pfe.Op,
			TransactionID: pfe.TransactionID,
			Completed:     pfe.Completed,
			Failed:        pfe.Failed,
			Pending:       make([]pendingAdjustment, len(pfe.Pending)),
		}
		for i, p := range pfe.Pending {
			details.Pending[i] = pendingAdjustment{Step: p.Step, AccountID: p.AccountID, Delta: core.FormatAmount(p.Delta)}
		}
		return NewJSONResponse().Status(http.StatusInternalServerError).Body(ErrorBody{
			Error:   "partial_failure",
			Message: "the transaction was recorded but account balances were not fully updated",
			Details: details,
		})
	case errors.As(err, &ve):
		return NewJSONResponse().Status(http.StatusUnprocessableEntity).Body(ErrorBody{
			Error: "validation_error", Message: ve.Error(), Field: ve.Field,
		})
	case errors.As(err, &nfe):
		return NotFoundError(nfe.Error())
	case errors.As(err, &ife):
		return NewJSONResponse().Status(http.StatusConflict).Body(ErrorBody{
			Error:   "insufficient_funds",
			Message: ife.Error(),
			Details: insufficientFundsDetails{
				AccountID: ife.AccountID,
				Balance:   core.FormatAmount(ife.Balance),
				Requested: core.FormatAmount(ife.Requested),
				Shortfall: core.FormatAmount(ife.Shortfall()),
			},
		})
	case errors.Is(err, core.ErrStore):
		return ErrorResponse(http.StatusServiceUnavailable, "store_unavailable", "storage is temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorResponse(http.StatusGatewayTimeout, "timeout", "the request timed out")
	default:
		return InternalServerError("unexpected error")
	}
}
