// Package reporting computes budget summaries from a transaction snapshot.
//
// Every Engine method performs a single query through ports.TransactionLister
// and hands the result to a pure function (SummarizeKPIs, BreakdownByCategory,
// Recommend, Project), so the arithmetic can be exercised without storage.
// All money is exact decimal; nothing here ever goes through float64.
package reporting

import (
	"context"
	"fmt"

	"budget/internal/core"
	"budget/internal/ports"
)

// DefaultTopN is the number of recommendations returned when the caller has no preference.
const DefaultTopN = 3

type Engine struct {
	lister ports.TransactionLister
}

func NewEngine(lister ports.TransactionLister) *Engine {
	return &Engine{lister: lister}
}

// MonthlyKPIs returns income, expense and net for the budget, restricted to
// month when it is non-nil.
func (e *Engine) MonthlyKPIs(ctx context.Context, budgetID int64, month *core.Month) (KPIs, error) {
	txs, err := e.snapshot(ctx, budgetID, month)
	if err != nil {
		return KPIs{}, err
	}
	return SummarizeKPIs(txs, month), nil
}

// MonthlyByCategory returns absolute expense totals per category, sorted by name.
func (e *Engine) MonthlyByCategory(ctx context.Context, budgetID int64, month *core.Month) ([]CategoryTotal, error) {
	txs, err := e.snapshot(ctx, budgetID, month)
	if err != nil {
		return nil, err
	}
	return BreakdownByCategory(txs), nil
}

// Recommendations suggests a 5% cut for each of the topN highest-spend categories.
func (e *Engine) Recommendations(ctx context.Context, budgetID int64, topN int, month *core.Month) ([]Recommendation, error) {
	breakdown, err := e.MonthlyByCategory(ctx, budgetID, month)
	if err != nil {
		return nil, err
	}
	return Recommend(breakdown, topN), nil
}

// WhatIf projects net after applying changes. It never writes.
func (e *Engine) WhatIf(ctx context.Context, budgetID int64, changes []Change, month *core.Month) (Projection, error) {
	base, err := e.MonthlyKPIs(ctx, budgetID, month)
	if err != nil {
		return Projection{}, err
	}
	return Project(base, changes), nil
}

func (e *Engine) snapshot(ctx context.Context, budgetID int64, month *core.Month) ([]core.TransactionView, error) {
	txs, err := e.lister.ListTransactions(ctx, budgetID, month)
	if err != nil {
		return nil, fmt.Errorf("list transactions for budget %d: %w", budgetID, err)
	}
	return txs, nil
}
