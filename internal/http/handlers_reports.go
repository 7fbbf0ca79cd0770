package http

import (
	"bytes"
	"context"
	"net/http"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/reporting"
)

// reportContext validates the budget and window and returns a context bounded
// by the report timeout. ok is false when a response was already written.
func (s *Server) reportContext(w http.ResponseWriter, r *http.Request, op string) (ctx context.Context, cancel context.CancelFunc, b core.Budget, month *core.Month, ok bool) {
	b, ok = s.requireBudget(w, r, op)
	if !ok {
		return nil, nil, core.Budget{}, nil, false
	}
	month, err := ParseWindow(r.URL.Query())
	if err != nil {
		writeError(w, r, op, err)
		return nil, nil, core.Budget{}, nil, false
	}
	ctx, cancel = context.WithTimeout(r.Context(), s.reportTimeout)
	return ctx, cancel, b, month, true
}

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, b, month, ok := s.reportContext(w, r, log.OpReport)
	if !ok {
		return
	}
	defer cancel()

	k, err := s.engine.MonthlyKPIs(ctx, b.ID, month)
	if err != nil {
		writeError(w, r, log.OpReport, err)
		return
	}
	NewResponse().JSON(toKPIsResponse(k)).Write(w)
}

func (s *Server) handleCategoryReport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, b, month, ok := s.reportContext(w, r, log.OpReport)
	if !ok {
		return
	}
	defer cancel()

	totals, err := s.engine.MonthlyByCategory(ctx, b.ID, month)
	if err != nil {
		writeError(w, r, log.OpReport, err)
		return
	}
	NewResponse().JSON(toCategoriesReport(totals)).Write(w)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, b, month, ok := s.reportContext(w, r, log.OpReport)
	if !ok {
		return
	}
	defer cancel()

	top, err := ParseTop(r.URL.Query(), s.topN)
	if err != nil {
		writeError(w, r, log.OpReport, err)
		return
	}

	recs, err := s.engine.Recommendations(ctx, b.ID, top, month)
	if err != nil {
		writeError(w, r, log.OpReport, err)
		return
	}
	NewResponse().JSON(toRecommendations(recs)).Write(w)
}

// handleWhatIf projects net under hypothetical deltas. Nothing is stored.
func (s *Server) handleWhatIf(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, b, month, ok := s.reportContext(w, r, log.OpWhatIf)
	if !ok {
		return
	}
	defer cancel()

	var req whatIfRequest
	if err := decodeJSON(r, w, &req, true); err != nil {
		writeError(w, r, log.OpWhatIf, err)
		return
	}

	p, err := s.engine.WhatIf(ctx, b.ID, req.Changes, month)
	if err != nil {
		writeError(w, r, log.OpWhatIf, err)
		return
	}
	NewResponse().JSON(toWhatIfResponse(p)).Write(w)
}

// handleCSV renders the KPI block and category breakdown as an attachment.
func (s *Server) handleCSV(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, b, month, ok := s.reportContext(w, r, log.OpExport)
	if !ok {
		return
	}
	defer cancel()

	k, err := s.engine.MonthlyKPIs(ctx, b.ID, month)
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	breakdown, err := s.engine.MonthlyByCategory(ctx, b.ID, month)
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}

	var buf bytes.Buffer
	if err := reporting.WriteSummaryCSV(&buf, b.Name, k, breakdown); err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	NewResponse().CSV(reporting.SummaryFilename(b.ID), buf.Bytes()).Write(w)
}
