package http

import (
	"net/http"

	"finanzas/internal/core"
	"finanzas/internal/log"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accs, err := s.ledger.ListAccounts(r.Context(), ownerOf(r), parseBool(r.URL.Query(), "include_cash"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]accountResponse, len(accs))
	for i, a := range accs {
		out[i] = newAccountResponse(a)
	}
	NewJSONResponse().Body(map[string]any{"accounts": out}).Write(w)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.ledger.CreateAccount(r.Context(), ownerOf(r), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/v1/accounts/"+a.ID).
		Body(newAccountResponse(a)).
		Write(w)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := s.ledger.GetAccount(r.Context(), ownerOf(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Body(newAccountResponse(a)).Write(w)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if core.IsCashRef(id) {
		s.fail(w, r, errCashImmutable)
		return
	}
	var req accountPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.ledger.UpdateAccount(r.Context(), ownerOf(r), id, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Body(newAccountResponse(a)).Write(w)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if core.IsCashRef(id) {
		s.fail(w, r, errCashImmutable)
		return
	}
	if err := s.ledger.DeleteAccount(r.Context(), ownerOf(r), id); err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

var errCashImmutable = &core.ValidationError{Field: "account", Reason: "the cash account is derived and cannot be modified"}

func (s *Server) handleOpeningBalance(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("id")
	var req openingBalanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	amount, err := core.ParseSignedAmount(string(req.Amount))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := s.ledger.SetOpeningBalance(r.Context(), ownerOf(r), ref, amount)
	s.logOp(r, log.OpOpeningBalance, t.ID, err)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := openingBalanceResponse{Account: ref}
	if t.ID != "" {
		tr := newTransactionResponse(t)
		resp.Account = tr.Account
		resp.Transaction = &tr
	}
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	if parseBool(r.URL.Query(), "fix") {
		req.Fix = true
	}
	res, err := s.ledger.ReconcileAccount(r.Context(), ownerOf(r), r.PathValue("id"), req.Fix)
	s.logOp(r, log.OpReconcile, "", err)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Body(newReconcileResponse(res)).Write(w)
}
