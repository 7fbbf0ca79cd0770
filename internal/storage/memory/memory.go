// Package memory keeps a whole ledger in process memory. It backs the
// default "memory" data backend and doubles as a test fixture.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"budget/internal/core"
	"budget/internal/ports"
)

var (
	_ ports.Ledger    = (*Store)(nil)
	_ ports.SyncStore = (*Store)(nil)
)

type syncState struct {
	status string
	ref    string
	reason string
}

type Store struct {
	mu           sync.Mutex
	nextID       int64
	budgets      map[int64]core.Budget
	categories   map[int64]core.Category
	transactions map[int64]core.Transaction
	sync         map[int64]*syncState
}

func New() *Store {
	return &Store{
		budgets:      make(map[int64]core.Budget),
		categories:   make(map[int64]core.Category),
		transactions: make(map[int64]core.Transaction),
		sync:         make(map[int64]*syncState),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) CreateBudget(_ context.Context, name string) (core.Budget, error) {
	b := core.Budget{Name: strings.TrimSpace(name)}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.id()
	b.CreatedAt = time.Now().UTC().Truncate(time.Second)
	s.budgets[b.ID] = b
	return b, nil
}

func (s *Store) GetBudget(_ context.Context, id int64) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok {
		return core.Budget{}, fmt.Errorf("budget %d: %w", id, core.ErrNotFound)
	}
	return b, nil
}

func (s *Store) ListBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Budget, 0, len(s.budgets))
	for _, b := range s.budgets {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, budgetID int64, name string) (core.Category, error) {
	c := core.Category{BudgetID: budgetID, Name: strings.TrimSpace(name)}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[budgetID]; !ok {
		return core.Category{}, fmt.Errorf("budget %d: %w", budgetID, core.ErrNotFound)
	}
	c.ID = s.id()
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) ListCategories(_ context.Context, budgetID int64) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Category{}
	for _, c := range s.categories {
		if c.BudgetID == budgetID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) DeleteCategory(_ context.Context, budgetID, categoryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[categoryID]
	if !ok || c.BudgetID != budgetID {
		return fmt.Errorf("category %d: %w", categoryID, core.ErrNotFound)
	}
	delete(s.categories, categoryID)
	for id, tx := range s.transactions {
		if tx.CategoryID != nil && *tx.CategoryID == categoryID {
			tx.CategoryID = nil
			s.transactions[id] = tx
		}
	}
	return nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	t.Description = strings.TrimSpace(t.Description)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[t.BudgetID]; !ok {
		return core.Transaction{}, fmt.Errorf("budget %d: %w", t.BudgetID, core.ErrNotFound)
	}
	if t.CategoryID != nil {
		c, ok := s.categories[*t.CategoryID]
		if !ok || c.BudgetID != t.BudgetID {
			return core.Transaction{}, fmt.Errorf("category %d: %w", *t.CategoryID, core.ErrNotFound)
		}
		id := *t.CategoryID
		t.CategoryID = &id
	}
	t.ID = s.id()
	s.transactions[t.ID] = t
	s.sync[t.ID] = &syncState{status: core.SyncPending}
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, budgetID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok || tx.BudgetID != budgetID {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	delete(s.transactions, id)
	delete(s.sync, id)
	return nil
}

// ListTransactions implements ports.TransactionLister.
func (s *Store) ListTransactions(_ context.Context, budgetID int64, month *core.Month) ([]core.TransactionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.TransactionView{}
	for _, tx := range s.transactions {
		if tx.BudgetID != budgetID {
			continue
		}
		if month != nil && !month.Contains(tx.Date) {
			continue
		}
		v := core.TransactionView{
			ID:          tx.ID,
			Date:        tx.Date,
			Description: tx.Description,
			Amount:      tx.Amount,
		}
		if tx.CategoryID != nil {
			v.Category = s.categories[*tx.CategoryID].Name
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) PendingSync(_ context.Context, limit int) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for id, st := range s.sync {
		if st.status == core.SyncPending {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *Store) GetExportRecord(_ context.Context, transactionID int64) (core.ExportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[transactionID]
	if !ok {
		return core.ExportRecord{}, fmt.Errorf("transaction %d: %w", transactionID, core.ErrNotFound)
	}
	rec := core.ExportRecord{Transaction: tx, BudgetName: s.budgets[tx.BudgetID].Name}
	if tx.CategoryID != nil {
		rec.CategoryName = s.categories[*tx.CategoryID].Name
	}
	return rec, nil
}

func (s *Store) MarkSynced(_ context.Context, transactionID int64, rowRef string) error {
	return s.setSync(transactionID, syncState{status: core.SyncSynced, ref: rowRef})
}

func (s *Store) MarkSyncError(_ context.Context, transactionID int64, reason string) error {
	return s.setSync(transactionID, syncState{status: core.SyncError, reason: reason})
}

// SyncStatus returns the sync state of one transaction.
func (s *Store) SyncStatus(_ context.Context, transactionID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sync[transactionID]
	if !ok {
		return "", fmt.Errorf("transaction %d: %w", transactionID, core.ErrNotFound)
	}
	return st.status, nil
}

func (s *Store) setSync(id int64, st syncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sync[id]; !ok {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	s.sync[id] = &st
	return nil
}
