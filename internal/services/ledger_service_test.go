package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"budget/internal/core"
	"budget/internal/storage/memory"

	"github.com/shopspring/decimal"
)

type recordingPublisher struct {
	mu    sync.Mutex
	ids   []int64
	fails bool
}

func (p *recordingPublisher) PublishTransactionSync(_ context.Context, id, _ int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fails {
		return errors.New("circuit breaker is open")
	}
	p.ids = append(p.ids, id)
	return nil
}

type recordingInvalidator struct{ budgets []int64 }

func (r *recordingInvalidator) Invalidate(budgetID int64) { r.budgets = append(r.budgets, budgetID) }

type countingObserver struct{ created int }

func (c *countingObserver) TransactionCreated() { c.created++ }

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func newTx(budgetID int64, amount string) core.Transaction {
	return core.Transaction{
		BudgetID:    budgetID,
		Date:        core.NewDate(2024, 1, 10),
		Description: "Groceries",
		Amount:      decimal.RequireFromString(amount),
	}
}

func TestLedgerService_CreateTransaction(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		publisher     *recordingPublisher
		wantPublished int
	}{
		{name: "publishes after save", publisher: &recordingPublisher{}, wantPublished: 1},
		{name: "publish failure is not fatal", publisher: &recordingPublisher{fails: true}, wantPublished: 0},
		{name: "no publisher configured", publisher: nil, wantPublished: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			inv := &recordingInvalidator{}
			obs := &countingObserver{}
			opts := []Option{WithInvalidator(inv), WithObserver(obs)}
			if tt.publisher != nil {
				opts = append(opts, WithPublisher(tt.publisher))
			}
			svc := NewLedgerService(store, opts...)

			b, err := svc.CreateBudget(ctx, "Home")
			if err != nil {
				t.Fatalf("CreateBudget: %v", err)
			}
			saved, err := svc.CreateTransaction(ctx, newTx(b.ID, "-42.50"))
			if err != nil {
				t.Fatalf("CreateTransaction: %v", err)
			}
			if saved.ID == 0 {
				t.Fatal("expected an id to be assigned")
			}
			if tt.publisher != nil && len(tt.publisher.ids) != tt.wantPublished {
				t.Errorf("published %d messages, want %d", len(tt.publisher.ids), tt.wantPublished)
			}
			if len(inv.budgets) != 1 || inv.budgets[0] != b.ID {
				t.Errorf("invalidated %v, want [%d]", inv.budgets, b.ID)
			}
			if obs.created != 1 {
				t.Errorf("observer saw %d creations", obs.created)
			}
		})
	}
}

func TestLedgerService_CreateTransactionValidation(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	inv := &recordingInvalidator{}
	svc := NewLedgerService(memory.New(), WithPublisher(pub), WithInvalidator(inv))

	b, _ := svc.CreateBudget(ctx, "Home")
	_, err := svc.CreateTransaction(ctx, newTx(b.ID, "0"))
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
	if !IsClientError(err) {
		t.Error("invalid amount should be a client error")
	}
	if len(pub.ids) != 0 || len(inv.budgets) != 0 {
		t.Error("a rejected write must not publish or invalidate")
	}

	_, err = svc.CreateTransaction(ctx, newTx(999, "10"))
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if IsClientError(err) {
		t.Error("not found is not a validation error")
	}
}

func TestLedgerService_DeletesInvalidate(t *testing.T) {
	ctx := context.Background()
	inv := &recordingInvalidator{}
	svc := NewLedgerService(memory.New(), WithInvalidator(inv))

	b, _ := svc.CreateBudget(ctx, "Home")
	c, _ := svc.CreateCategory(ctx, b.ID, "Food")
	tx := newTx(b.ID, "-5")
	tx.CategoryID = &c.ID
	saved, _ := svc.CreateTransaction(ctx, tx)

	if err := svc.DeleteCategory(ctx, b.ID, c.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	if err := svc.DeleteTransaction(ctx, b.ID, saved.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if len(inv.budgets) != 3 {
		t.Errorf("invalidations = %d, want 3", len(inv.budgets))
	}
	if err := svc.DeleteTransaction(ctx, b.ID, saved.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestLedgerService_Close(t *testing.T) {
	t.Run("no closers", func(t *testing.T) {
		if err := NewLedgerService(memory.New()).Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	})

	t.Run("joins failures", func(t *testing.T) {
		errA, errB := errors.New("a"), errors.New("b")
		calls := 0
		svc := NewLedgerService(memory.New(), WithClosers(
			closerFunc(func() error { calls++; return errA }),
			closerFunc(func() error { calls++; return nil }),
			closerFunc(func() error { calls++; return errB }),
		))
		err := svc.Close()
		if !errors.Is(err, errA) || !errors.Is(err, errB) {
			t.Fatalf("Close err = %v", err)
		}
		if calls != 3 {
			t.Errorf("closers called %d times", calls)
		}
	})
}
