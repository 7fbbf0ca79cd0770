package http

import (
	"net/http"
	"strconv"

	"budget/internal/log"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	b, ok := s.requireBudget(w, r, log.OpCreate)
	if !ok {
		return
	}

	var req transactionRequest
	if err := decodeJSON(r, w, &req, false); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	tx, err := req.toTransaction(b.ID)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	saved, err := s.ledger.CreateTransaction(r.Context(), tx)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	category := ""
	if saved.CategoryID != nil {
		category = strconv.FormatInt(*saved.CategoryID, 10)
	}
	s.structured.LogTransactionCreated(r.Context(), saved.BudgetID, saved.ID, saved.Amount, category)

	Created(toTransactionResponse(saved)).Write(w)
}

// handleListTransactions lists the budget's transactions, optionally for one month.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	b, ok := s.requireBudget(w, r, log.OpList)
	if !ok {
		return
	}
	month, err := ParseWindow(r.URL.Query())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}

	views, err := s.ledger.ListTransactions(r.Context(), b.ID, month)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	NewResponse().JSON(toTransactionViews(views)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	b, ok := s.requireBudget(w, r, log.OpDelete)
	if !ok {
		return
	}
	txID, err := pathID(r, "txID")
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), b.ID, txID); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	NoContent().Write(w)
}
