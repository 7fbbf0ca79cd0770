package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/ports"
)

// Sync results reported to the observer.
const (
	ResultOK       = "ok"
	ResultSkipped  = "skipped"
	ResultRetry    = "retry"
	ResultRejected = "rejected"
)

// SyncObserver counts processed messages. *metrics.Metrics satisfies it.
type SyncObserver interface {
	SyncMessage(result string)
}

// SyncWorker copies stored transactions to the external ledger.
type SyncWorker struct {
	store     ports.SyncStore
	exporter  ports.LedgerExporter
	observer  SyncObserver
	batchSize int
}

func NewSyncWorker(store ports.SyncStore, exporter ports.LedgerExporter, observer SyncObserver, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &SyncWorker{
		store:     store,
		exporter:  exporter,
		observer:  observer,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single transaction sync message from AMQP.
// Messages for deleted transactions are rejected; export failures are
// returned so the message is requeued.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version,
		"message_id", msg.MessageID)

	result, err := w.syncTransaction(ctx, msg.ID)
	w.observe(result)
	if err != nil && result == ResultRejected {
		return fmt.Errorf("%w: %v", amqp.ErrReject, err)
	}
	return err
}

// ProcessPending syncs one batch of transactions still marked pending. It is
// the backstop for lost messages.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	_, _, err := w.processPending(ctx, w.batchSize)
	return err
}

// StartupSyncCheck drains a larger batch of pending transactions at startup
// to recover from worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, failed, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if synced+failed == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Startup sync completed",
		"total", synced+failed,
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (synced, failed int, err error) {
	ids, err := w.store.PendingSync(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(ids) == 0 {
		return 0, 0, nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return synced, failed, err
		}
		result, err := w.syncTransaction(ctx, id)
		w.observe(result)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction", "id", id, "error", err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

func (w *SyncWorker) syncTransaction(ctx context.Context, id int64) (string, error) {
	status, err := w.store.SyncStatus(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return ResultRejected, err
	}
	if err != nil {
		return ResultRetry, fmt.Errorf("get sync status: %w", err)
	}
	if status == core.SyncSynced {
		// Redelivered message.
		return ResultSkipped, nil
	}

	rec, err := w.store.GetExportRecord(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return ResultRejected, err
	}
	if err != nil {
		return ResultRetry, fmt.Errorf("get transaction from storage: %w", err)
	}

	ref, err := w.exporter.AppendTransaction(ctx, rec)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, id, err.Error()); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return ResultRetry, fmt.Errorf("append to ledger: %w", err)
	}

	if err := w.store.MarkSynced(ctx, id, ref); err != nil {
		// The row exists remotely; a failed mark only risks a duplicate later.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Successfully synced transaction",
		"id", id,
		"budget_id", rec.Transaction.BudgetID,
		"row_ref", ref,
		"amount", rec.Transaction.Amount.StringFixed(2))
	return ResultOK, nil
}

func (w *SyncWorker) observe(result string) {
	if w.observer != nil {
		w.observer.SyncMessage(result)
	}
}
