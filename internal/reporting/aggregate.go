package reporting

import (
	"fmt"
	"sort"

	"budget/internal/core"

	"github.com/shopspring/decimal"
)

// SummarizeKPIs folds a transaction snapshot into income, expense and net.
func SummarizeKPIs(txs []core.TransactionView, month *core.Month) KPIs {
	k := KPIs{
		Income:  decimal.Zero,
		Expense: decimal.Zero,
	}
	for _, tx := range txs {
		switch tx.Amount.Sign() {
		case 1:
			k.Income = k.Income.Add(tx.Amount)
		case -1:
			k.Expense = k.Expense.Add(tx.Amount)
		}
	}
	k.Net = k.Income.Add(k.Expense)
	if month != nil {
		start, end := month.Bounds()
		k.Start, k.End = &start, &end
	}
	return k
}

// BreakdownByCategory totals expenses per category label, ordered by label.
func BreakdownByCategory(txs []core.TransactionView) []CategoryTotal {
	sums := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if !tx.IsExpense() {
			continue
		}
		label := tx.Label()
		sums[label] = sums[label].Add(tx.Amount)
	}

	out := make([]CategoryTotal, 0, len(sums))
	for label, sum := range sums {
		out = append(out, CategoryTotal{Category: label, Total: sum.Abs().Round(2)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// Recommend picks the topN highest-spend categories and suggests a 5% cut for each.
// Ties keep the breakdown order.
func Recommend(breakdown []CategoryTotal, topN int) []Recommendation {
	if topN <= 0 || len(breakdown) == 0 {
		return []Recommendation{}
	}
	ranked := make([]CategoryTotal, len(breakdown))
	copy(ranked, breakdown)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Total.GreaterThan(ranked[j].Total) })
	if topN < len(ranked) {
		ranked = ranked[:topN]
	}

	out := make([]Recommendation, 0, len(ranked))
	for _, ct := range ranked {
		c := core.FivePercentCut(ct.Total)
		out = append(out, Recommendation{
			Category:        ct.Category,
			Spend:           ct.Total,
			Suggestion:      Suggestion(ct.Category, c),
			EstimatedImpact: c.Neg(),
		})
	}
	return out
}

// Suggestion renders the recommendation text for a category and a cut amount.
func Suggestion(category string, cut decimal.Decimal) string {
	return fmt.Sprintf("Reduce %s by about $%s (~5%%) next month to improve net.", category, cut.StringFixed(2))
}

// Project applies the summed deltas of changes to base.Net.
func Project(base KPIs, changes []Change) Projection {
	delta := decimal.Zero
	for _, c := range changes {
		delta = delta.Add(c.Delta)
	}
	return Projection{
		Base:         base,
		Delta:        delta,
		ProjectedNet: base.Net.Add(delta),
	}
}
