package http

import (
	"fmt"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/services"

	"github.com/shopspring/decimal"
)

// Amounts travel as strings with two decimals.

type accountRequest struct {
	Name           string      `json:"name"`
	Institution    string      `json:"institution"`
	MaskedNumber   string      `json:"masked_number"`
	Kind           string      `json:"kind"`
	InitialBalance jsonAmount  `json:"initial_balance"`
	CreditLimit    *jsonAmount `json:"credit_limit"`
}

func (req accountRequest) input() (services.AccountInput, error) {
	in := services.AccountInput{
		Name:         sanitizeInput(req.Name),
		Institution:  sanitizeInput(req.Institution),
		MaskedNumber: sanitizeInput(req.MaskedNumber),
		Kind:         core.AccountKind(sanitizeInput(req.Kind)),
	}
	if req.InitialBalance != "" {
		d, err := core.ParseSignedAmount(string(req.InitialBalance))
		if err != nil {
			return services.AccountInput{}, &core.ValidationError{Field: "initial_balance", Reason: "not a number"}
		}
		in.InitialBalance = d
	}
	limit, err := optionalLimit(req.CreditLimit)
	if err != nil {
		return services.AccountInput{}, err
	}
	in.CreditLimit = limit
	return in, nil
}

type accountPatchRequest struct {
	Name         *string     `json:"name"`
	Institution  *string     `json:"institution"`
	MaskedNumber *string     `json:"masked_number"`
	CreditLimit  *jsonAmount `json:"credit_limit"`
}

func (req accountPatchRequest) patch() (services.AccountPatch, error) {
	limit, err := optionalLimit(req.CreditLimit)
	if err != nil {
		return services.AccountPatch{}, err
	}
	return services.AccountPatch{
		Name:         sanitizePtr(req.Name),
		Institution:  sanitizePtr(req.Institution),
		MaskedNumber: sanitizePtr(req.MaskedNumber),
		CreditLimit:  limit,
	}, nil
}

func optionalLimit(a *jsonAmount) (*decimal.Decimal, error) {
	if a == nil {
		return nil, nil
	}
	d, err := core.ParseSignedAmount(string(*a))
	if err != nil {
		return nil, &core.ValidationError{Field: "credit_limit", Reason: "not a number"}
	}
	return &d, nil
}

type accountResponse struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Institution    string     `json:"institution,omitempty"`
	MaskedNumber   string     `json:"masked_number,omitempty"`
	Kind           string     `json:"kind"`
	Balance        string     `json:"balance"`
	InitialBalance string     `json:"initial_balance"`
	CreditLimit    *string    `json:"credit_limit,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

func newAccountResponse(a core.Account) accountResponse {
	resp := accountResponse{
		ID:             a.ID,
		Name:           a.Name,
		Institution:    a.Institution,
		MaskedNumber:   a.MaskedNumber,
		Kind:           string(a.Kind),
		Balance:        core.FormatAmount(a.Balance),
		InitialBalance: core.FormatAmount(a.InitialBalance),
		CreatedAt:      timePtr(a.CreatedAt),
		UpdatedAt:      timePtr(a.UpdatedAt),
	}
	if a.Kind == core.Cash {
		resp.ID = core.CashRef
	}
	if a.CreditLimit != nil {
		s := core.FormatAmount(*a.CreditLimit)
		resp.CreditLimit = &s
	}
	return resp
}

type transactionRequest struct {
	Kind        string     `json:"kind"`
	Amount      jsonAmount `json:"amount"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Date        string     `json:"date"`
	Account     string     `json:"account"`
}

func (req transactionRequest) input() (core.TransactionInput, error) {
	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		return core.TransactionInput{}, err
	}
	in := core.TransactionInput{
		Kind:        core.TransactionKind(sanitizeInput(req.Kind)),
		Amount:      amount,
		Description: sanitizeInput(req.Description),
		Category:    sanitizeInput(req.Category),
		Account:     sanitizeInput(req.Account),
	}
	if req.Date != "" {
		if in.Date, err = parseDate(req.Date); err != nil {
			return core.TransactionInput{}, err
		}
	}
	return in, nil
}

type transactionPatchRequest struct {
	Kind        *string     `json:"kind"`
	Amount      *jsonAmount `json:"amount"`
	Description *string     `json:"description"`
	Category    *string     `json:"category"`
	Date        *string     `json:"date"`
	Account     *string     `json:"account"`
}

func (req transactionPatchRequest) patch() (core.TransactionPatch, error) {
	p := core.TransactionPatch{
		Description: sanitizePtr(req.Description),
		Category:    sanitizePtr(req.Category),
		Account:     sanitizePtr(req.Account),
	}
	if req.Kind != nil {
		k := core.TransactionKind(sanitizeInput(*req.Kind))
		p.Kind = &k
	}
	if req.Amount != nil {
		d, err := core.ParseAmount(string(*req.Amount))
		if err != nil {
			return core.TransactionPatch{}, err
		}
		p.Amount = &d
	}
	if req.Date != nil {
		t, err := parseDate(*req.Date)
		if err != nil {
			return core.TransactionPatch{}, err
		}
		p.Date = &t
	}
	return p, nil
}

type transactionResponse struct {
	ID               string     `json:"id"`
	Kind             string     `json:"kind"`
	Amount           string     `json:"amount"`
	Description      string     `json:"description"`
	Category         string     `json:"category"`
	Date             string     `json:"date"`
	Account          string     `json:"account"`
	IsOpeningBalance bool       `json:"is_opening_balance"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

func newTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:               t.ID,
		Kind:             string(t.Kind),
		Amount:           core.FormatAmount(t.Amount),
		Description:      t.Description,
		Category:         t.CategoryOrDefault(),
		Date:             t.Date.Format(dateLayout),
		Account:          t.AccountRef(),
		IsOpeningBalance: t.IsOpeningBalance,
		CreatedAt:        timePtr(t.CreatedAt),
		UpdatedAt:        timePtr(t.UpdatedAt),
	}
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

type bulkDeleteFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type bulkDeleteResponse struct {
	Deleted int                 `json:"deleted"`
	Failed  []bulkDeleteFailure `json:"failed"`
}

func newBulkDeleteResponse(res services.BulkDeleteResult) bulkDeleteResponse {
	resp := bulkDeleteResponse{Deleted: res.Deleted, Failed: make([]bulkDeleteFailure, 0, len(res.Failed))}
	for _, f := range res.Failed {
		resp.Failed = append(resp.Failed, bulkDeleteFailure{ID: f.ID, Error: f.Err.Error()})
	}
	return resp
}

type openingBalanceRequest struct {
	Amount jsonAmount `json:"amount"`
}

type openingBalanceResponse struct {
	Account     string               `json:"account"`
	Transaction *transactionResponse `json:"transaction"`
}

type reconcileRequest struct {
	Fix bool `json:"fix"`
}

type reconcileResponse struct {
	AccountID string `json:"account_id"`
	Stored    string `json:"stored"`
	Expected  string `json:"expected"`
	Drift     string `json:"drift"`
	Fixed     bool   `json:"fixed"`
}

func newReconcileResponse(r services.Reconciliation) reconcileResponse {
	return reconcileResponse{
		AccountID: r.AccountID,
		Stored:    core.FormatAmount(r.Stored),
		Expected:  core.FormatAmount(r.Expected),
		Drift:     core.FormatAmount(r.Drift),
		Fixed:     r.Fixed,
	}
}

type categoryAmount struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

type monthResponse struct {
	Month   string `json:"month"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Net     string `json:"net"`
}

type summaryResponse struct {
	Count        int               `json:"count"`
	TotalIncome  string            `json:"total_income"`
	TotalExpense string            `json:"total_expense"`
	Balance      string            `json:"balance"`
	Income       []categoryAmount  `json:"income_by_category"`
	Expense      []categoryAmount  `json:"expense_by_category"`
	Monthly      []monthResponse   `json:"monthly"`
	Accounts     []accountResponse `json:"accounts"`
	GeneratedAt  time.Time         `json:"generated_at"`
}

func newSummaryResponse(r services.Report, accounts []core.Account) summaryResponse {
	resp := summaryResponse{
		Count:        r.Totals.Count,
		TotalIncome:  core.FormatAmount(r.Totals.TotalIncome),
		TotalExpense: core.FormatAmount(r.Totals.TotalExpense),
		Balance:      core.FormatAmount(r.Totals.Balance),
		Income:       categoryAmounts(r.Income),
		Expense:      categoryAmounts(r.Expense),
		Monthly:      make([]monthResponse, len(r.Monthly)),
		Accounts:     make([]accountResponse, len(accounts)),
		GeneratedAt:  r.GeneratedAt,
	}
	for i, m := range r.Monthly {
		resp.Monthly[i] = monthResponse{
			Month:   fmt.Sprintf("%04d-%02d", m.Year, int(m.Month)),
			Income:  core.FormatAmount(m.Income),
			Expense: core.FormatAmount(m.Expense),
			Net:     core.FormatAmount(m.Net()),
		}
	}
	for i, a := range accounts {
		resp.Accounts[i] = newAccountResponse(a)
	}
	return resp
}

func categoryAmounts(in []core.CategoryAmount) []categoryAmount {
	out := make([]categoryAmount, len(in))
	for i, c := range in {
		out[i] = categoryAmount{Name: c.Name, Amount: core.FormatAmount(c.Amount)}
	}
	return out
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
