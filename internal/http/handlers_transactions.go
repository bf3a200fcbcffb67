package http

import (
	"net/http"

	"finanzas/internal/core"
	"finanzas/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	txs, err := s.ledger.ListTransactions(r.Context(), ownerOf(r), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]transactionResponse, len(txs))
	for i, t := range txs {
		out[i] = newTransactionResponse(t)
	}
	NewJSONResponse().Body(map[string]any{"transactions": out, "count": len(out)}).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := s.ledger.CreateTransaction(r.Context(), ownerOf(r), in)
	s.logOp(r, log.OpCreate, t.ID, err)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeCreated(w, t)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.ledger.GetTransaction(r.Context(), ownerOf(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Body(newTransactionResponse(t)).Write(w)
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req transactionPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := s.ledger.EditTransaction(r.Context(), ownerOf(r), id, patch)
	s.logOp(r, log.OpUpdate, id, err)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Body(newTransactionResponse(t)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.ledger.DeleteTransaction(r.Context(), ownerOf(r), id)
	s.logOp(r, log.OpDelete, id, err)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if len(req.IDs) == 0 {
		s.fail(w, r, &core.ValidationError{Field: "ids", Reason: "at least one id is required"})
		return
	}
	res, err := s.ledger.DeleteTransactions(r.Context(), ownerOf(r), req.IDs)
	s.logOp(r, log.OpBulkDelete, "", err)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Body(newBulkDeleteResponse(res)).Write(w)
}

func (s *Server) handleDuplicateTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.ledger.DuplicateTransaction(r.Context(), ownerOf(r), r.PathValue("id"))
	s.logOp(r, log.OpDuplicate, t.ID, err)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeCreated(w, t)
}

func writeCreated(w http.ResponseWriter, t core.Transaction) {
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/v1/transactions/"+t.ID).
		Body(newTransactionResponse(t)).
		Write(w)
}
