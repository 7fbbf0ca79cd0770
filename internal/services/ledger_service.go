package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"budget/internal/core"
	"budget/internal/ports"
)

// newTransactionVersion is the version carried by the first sync message of a transaction.
const newTransactionVersion = 1

// Invalidator is notified after every write that can change a budget's reports.
type Invalidator interface {
	Invalidate(budgetID int64)
}

// WriteObserver is told about successful writes. *metrics.Metrics satisfies it.
type WriteObserver interface {
	TransactionCreated()
}

// LedgerService orchestrates writes across storage, the sync queue and the
// report cache. Local storage is authoritative: publishing is best effort.
type LedgerService struct {
	ledger      ports.Ledger
	publisher   ports.SyncPublisher
	invalidator Invalidator
	observer    WriteObserver
	closers     []io.Closer
}

var _ ports.Ledger = (*LedgerService)(nil)

type Option func(*LedgerService)

func WithPublisher(p ports.SyncPublisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func WithInvalidator(i Invalidator) Option {
	return func(s *LedgerService) { s.invalidator = i }
}

func WithObserver(o WriteObserver) Option {
	return func(s *LedgerService) { s.observer = o }
}

// WithClosers registers resources released by Close, in order.
func WithClosers(c ...io.Closer) Option {
	return func(s *LedgerService) { s.closers = append(s.closers, c...) }
}

func NewLedgerService(ledger ports.Ledger, opts ...Option) *LedgerService {
	s := &LedgerService{ledger: ledger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LedgerService) CreateBudget(ctx context.Context, name string) (core.Budget, error) {
	b, err := s.ledger.CreateBudget(ctx, name)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	return b, nil
}

func (s *LedgerService) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	return s.ledger.GetBudget(ctx, id)
}

func (s *LedgerService) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	return s.ledger.ListBudgets(ctx)
}

func (s *LedgerService) CreateCategory(ctx context.Context, budgetID int64, name string) (core.Category, error) {
	c, err := s.ledger.CreateCategory(ctx, budgetID, name)
	if err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	return c, nil
}

func (s *LedgerService) ListCategories(ctx context.Context, budgetID int64) ([]core.Category, error) {
	return s.ledger.ListCategories(ctx, budgetID)
}

func (s *LedgerService) DeleteCategory(ctx context.Context, budgetID, categoryID int64) error {
	if err := s.ledger.DeleteCategory(ctx, budgetID, categoryID); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.invalidate(budgetID)
	return nil
}

// CreateTransaction saves the transaction locally, then announces it for sync.
func (s *LedgerService) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	saved, err := s.ledger.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.invalidate(saved.BudgetID)
	if s.observer != nil {
		s.observer.TransactionCreated()
	}

	if err := s.publishSyncMessage(ctx, saved.ID, newTransactionVersion); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", saved.ID, "error", err)
		// The pending sweep in the worker picks it up later.
	}
	return saved, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, budgetID, id int64) error {
	if err := s.ledger.DeleteTransaction(ctx, budgetID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.invalidate(budgetID)
	return nil
}

// ListTransactions always reads storage directly; reports go through CachedLister.
func (s *LedgerService) ListTransactions(ctx context.Context, budgetID int64, month *core.Month) ([]core.TransactionView, error) {
	return s.ledger.ListTransactions(ctx, budgetID, month)
}

func (s *LedgerService) publishSyncMessage(ctx context.Context, id, version int64) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Sync publisher not configured, skipping sync message", "id", id)
		return nil
	}
	return s.publisher.PublishTransactionSync(ctx, id, version)
}

func (s *LedgerService) invalidate(budgetID int64) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(budgetID)
	}
}

// Close releases registered resources and reports every failure.
func (s *LedgerService) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// IsClientError reports whether err was caused by invalid caller input.
func IsClientError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidDate, core.ErrInvalidMonth, core.ErrInvalidYear,
		core.ErrInvalidAmount, core.ErrInvalidDelta, core.ErrEmptyName,
		core.ErrNameTooLong, core.ErrEmptyDescription, core.ErrDescriptionTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
