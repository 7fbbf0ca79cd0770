package memory

import (
	"context"
	"errors"
	"testing"

	"budget/internal/core"

	"github.com/shopspring/decimal"
)

func TestExporter_Append(t *testing.T) {
	e := New()
	ctx := context.Background()
	rec := core.ExportRecord{
		Transaction: core.Transaction{ID: 1, Date: core.NewDate(2024, 1, 5), Description: "Rent", Amount: decimal.NewFromInt(-900)},
		BudgetName:  "Home",
	}

	ref, err := e.AppendTransaction(ctx, rec)
	if err != nil {
		t.Fatalf("AppendTransaction: %v", err)
	}
	if ref != "memory!A2:E2" {
		t.Errorf("ref = %q", ref)
	}
	ref, _ = e.AppendTransaction(ctx, rec)
	if ref != "memory!A3:E3" {
		t.Errorf("second ref = %q", ref)
	}

	rows := e.Rows()
	rows[0].BudgetName = "mutated"
	if e.Rows()[0].BudgetName != "Home" {
		t.Error("Rows must return a copy")
	}
}

func TestExporter_FailWith(t *testing.T) {
	e := New()
	boom := errors.New("quota exceeded")
	e.FailWith(boom)

	if _, err := e.AppendTransaction(context.Background(), core.ExportRecord{}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if len(e.Rows()) != 0 {
		t.Error("failed append must not store a row")
	}

	e.FailWith(nil)
	if _, err := e.AppendTransaction(context.Background(), core.ExportRecord{}); err != nil {
		t.Fatalf("err = %v after reset", err)
	}
}
