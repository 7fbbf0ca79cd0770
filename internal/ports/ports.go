// Package ports declares the interfaces between the domain and its adapters.
package ports

import (
	"context"

	"budget/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionLister is the only capability the reporting engine needs.
	TransactionLister interface {
		// ListTransactions returns the budget's transactions ordered by date and id,
		// restricted to month when it is non-nil. An unknown budget yields an
		// empty slice.
		ListTransactions(ctx context.Context, budgetID int64, month *core.Month) ([]core.TransactionView, error)
	}

	BudgetStore interface {
		CreateBudget(ctx context.Context, name string) (core.Budget, error)
		// GetBudget returns core.ErrNotFound for unknown ids.
		GetBudget(ctx context.Context, id int64) (core.Budget, error)
		ListBudgets(ctx context.Context) ([]core.Budget, error)
	}

	CategoryStore interface {
		CreateCategory(ctx context.Context, budgetID int64, name string) (core.Category, error)
		ListCategories(ctx context.Context, budgetID int64) ([]core.Category, error)
		// DeleteCategory detaches the category from its transactions before removing it.
		DeleteCategory(ctx context.Context, budgetID, categoryID int64) error
	}

	TransactionStore interface {
		TransactionLister
		CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, budgetID, id int64) error
	}

	// Ledger is the full storage surface used by the HTTP server.
	Ledger interface {
		BudgetStore
		CategoryStore
		TransactionStore
	}

	// SyncStore tracks which transactions still have to reach the external ledger.
	SyncStore interface {
		PendingSync(ctx context.Context, limit int) ([]int64, error)
		GetExportRecord(ctx context.Context, transactionID int64) (core.ExportRecord, error)
		MarkSynced(ctx context.Context, transactionID int64, rowRef string) error
		MarkSyncError(ctx context.Context, transactionID int64, reason string) error
		// SyncStatus returns one of the core.Sync* states.
		SyncStatus(ctx context.Context, transactionID int64) (string, error)
	}

	// SyncPublisher announces a stored transaction to the sync worker.
	SyncPublisher interface {
		PublishTransactionSync(ctx context.Context, id, version int64) error
	}

	// LedgerExporter writes one transaction to an external ledger.
	LedgerExporter interface {
		AppendTransaction(ctx context.Context, rec core.ExportRecord) (rowRef string, err error)
	}
)
