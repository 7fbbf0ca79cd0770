package http

import (
	"net/http"

	"budget/internal/log"
)

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(r, w, &req, false); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	b, err := s.ledger.CreateBudget(r.Context(), sanitizeInput(req.Name))
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	Created(toBudgetResponse(b)).Write(w)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.ledger.ListBudgets(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetResponse(b))
	}
	NewResponse().JSON(out).Write(w)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	b, ok := s.requireBudget(w, r, log.OpRead)
	if !ok {
		return
	}
	NewResponse().JSON(toBudgetResponse(b)).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	b, ok := s.requireBudget(w, r, log.OpCreate)
	if !ok {
		return
	}
	var req nameRequest
	if err := decodeJSON(r, w, &req, false); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	c, err := s.ledger.CreateCategory(r.Context(), b.ID, sanitizeInput(req.Name))
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	Created(toCategoryResponse(c)).Write(w)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	b, ok := s.requireBudget(w, r, log.OpList)
	if !ok {
		return
	}
	cats, err := s.ledger.ListCategories(r.Context(), b.ID)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, toCategoryResponse(c))
	}
	NewResponse().JSON(out).Write(w)
}

// handleDeleteCategory removes the category; its transactions stay with no category.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	b, ok := s.requireBudget(w, r, log.OpDelete)
	if !ok {
		return
	}
	categoryID, err := pathID(r, "categoryID")
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.ledger.DeleteCategory(r.Context(), b.ID, categoryID); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	NoContent().Write(w)
}
