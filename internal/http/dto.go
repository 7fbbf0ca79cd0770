package http

import (
	"encoding/json"
	"strconv"
	"time"

	"budget/internal/core"
	"budget/internal/reporting"

	"github.com/shopspring/decimal"
)

// Amounts leave the API as JSON numbers written from their decimal text, so
// no value ever passes through float64.

func fixed(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

// exact keeps every digit of a summed delta but pads to two decimals when
// that loses nothing.
func exact(d decimal.Decimal) json.Number {
	if d.Equal(d.Round(2)) {
		return fixed(d)
	}
	return json.Number(d.String())
}

type budgetResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

func toBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{ID: b.ID, Name: b.Name, CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339)}
}

type categoryResponse struct {
	ID       int64  `json:"id"`
	BudgetID int64  `json:"budget_id"`
	Name     string `json:"name"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{ID: c.ID, BudgetID: c.BudgetID, Name: c.Name}
}

type transactionResponse struct {
	ID          int64       `json:"id"`
	BudgetID    int64       `json:"budget_id"`
	CategoryID  *int64      `json:"category_id"`
	Date        core.Date   `json:"date"`
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		BudgetID:    t.BudgetID,
		CategoryID:  t.CategoryID,
		Date:        t.Date,
		Description: t.Description,
		Amount:      fixed(t.Amount),
	}
}

type transactionViewResponse struct {
	ID          int64       `json:"id"`
	Date        core.Date   `json:"date"`
	Description string      `json:"description"`
	Category    *string     `json:"category"`
	Amount      json.Number `json:"amount"`
}

func toTransactionViews(views []core.TransactionView) []transactionViewResponse {
	out := make([]transactionViewResponse, 0, len(views))
	for _, v := range views {
		var category *string
		if v.Category != "" {
			name := v.Category
			category = &name
		}
		out = append(out, transactionViewResponse{
			ID:          v.ID,
			Date:        v.Date,
			Description: v.Description,
			Category:    category,
			Amount:      fixed(v.Amount),
		})
	}
	return out
}

type kpisResponse struct {
	Start   *string     `json:"start"`
	End     *string     `json:"end"`
	Income  json.Number `json:"income"`
	Expense json.Number `json:"expense"`
	Net     json.Number `json:"net"`
}

func toKPIsResponse(k reporting.KPIs) kpisResponse {
	resp := kpisResponse{
		Income:  fixed(k.Income),
		Expense: fixed(k.Expense),
		Net:     fixed(k.Net),
	}
	if k.Start != nil {
		s := k.Start.String()
		resp.Start = &s
	}
	if k.End != nil {
		e := k.End.String()
		resp.End = &e
	}
	return resp
}

type categoryTotalResponse struct {
	Category string      `json:"category"`
	Total    json.Number `json:"total"`
}

type categoriesReportResponse struct {
	Categories []categoryTotalResponse `json:"categories"`
}

func toCategoriesReport(totals []reporting.CategoryTotal) categoriesReportResponse {
	out := make([]categoryTotalResponse, 0, len(totals))
	for _, ct := range totals {
		out = append(out, categoryTotalResponse{Category: ct.Category, Total: fixed(ct.Total)})
	}
	return categoriesReportResponse{Categories: out}
}

type recommendationResponse struct {
	Category        string      `json:"category"`
	Spend           json.Number `json:"spend"`
	Suggestion      string      `json:"suggestion"`
	EstimatedImpact json.Number `json:"estimated_impact"`
}

type recommendationsResponse struct {
	Recommendations []recommendationResponse `json:"recommendations"`
}

func toRecommendations(recs []reporting.Recommendation) recommendationsResponse {
	out := make([]recommendationResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, recommendationResponse{
			Category:        r.Category,
			Spend:           fixed(r.Spend),
			Suggestion:      r.Suggestion,
			EstimatedImpact: fixed(r.EstimatedImpact),
		})
	}
	return recommendationsResponse{Recommendations: out}
}

type whatIfResponse struct {
	Base         kpisResponse `json:"base"`
	Delta        json.Number  `json:"delta"`
	ProjectedNet json.Number  `json:"projected_net"`
}

func toWhatIfResponse(p reporting.Projection) whatIfResponse {
	return whatIfResponse{
		Base:         toKPIsResponse(p.Base),
		Delta:        exact(p.Delta),
		ProjectedNet: exact(p.ProjectedNet),
	}
}

type nameRequest struct {
	Name string `json:"name"`
}

type transactionRequest struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      json.RawMessage `json:"amount"`
	CategoryID  *int64          `json:"category_id"`
}

// toTransaction validates the request shape. Domain rules are enforced by
// core.Transaction.Validate in storage.
func (req transactionRequest) toTransaction(budgetID int64) (core.Transaction, error) {
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := parseAmountJSON(req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		BudgetID:    budgetID,
		CategoryID:  req.CategoryID,
		Date:        date,
		Description: sanitizeInput(req.Description),
		Amount:      amount,
	}, nil
}

// parseAmountJSON accepts "-12.50" or -12.5.
func parseAmountJSON(raw json.RawMessage) (decimal.Decimal, error) {
	if len(raw) == 0 {
		return core.ParseAmount("")
	}
	if raw[0] == '"' {
		s, err := strconv.Unquote(string(raw))
		if err != nil {
			return core.ParseAmount(string(raw))
		}
		return core.ParseAmount(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return core.ParseAmount(string(raw))
	}
	return core.ParseAmount(n.String())
}

type whatIfRequest struct {
	Changes []reporting.Change `json:"changes"`
}
