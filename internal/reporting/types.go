package reporting

import (
	"encoding/json"
	"fmt"

	"budget/internal/core"

	"github.com/shopspring/decimal"
)

// KPIs summarizes income and expense for a scope. Start and End are set only
// when the scope is a single month. Expense is negative or zero.
type KPIs struct {
	Start   *core.Date
	End     *core.Date
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
}

// CategoryTotal is the absolute expense total of one category.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

type Recommendation struct {
	Category        string
	Spend           decimal.Decimal
	Suggestion      string
	EstimatedImpact decimal.Decimal
}

// Change is a hypothetical adjustment to net. Category is informational only.
type Change struct {
	Category string
	Delta    decimal.Decimal
}

type Projection struct {
	Base         KPIs
	Delta        decimal.Decimal
	ProjectedNet decimal.Decimal
}

// UnmarshalJSON accepts delta as a JSON number or numeric string and treats a
// missing delta as zero.
func (c *Change) UnmarshalJSON(b []byte) error {
	var raw struct {
		Category *string        `json:"category"`
		Delta    json.RawMessage `json:"delta"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode change: %w", err)
	}
	delta, err := core.DeltaFromJSON(raw.Delta)
	if err != nil {
		return err
	}
	c.Category = ""
	if raw.Category != nil {
		c.Category = *raw.Category
	}
	c.Delta = delta
	return nil
}
