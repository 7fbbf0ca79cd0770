package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"budget/internal/core"
	"budget/internal/ports"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

var (
	_ ports.Ledger    = (*SQLiteRepository)(nil)
	_ ports.SyncStore = (*SQLiteRepository)(nil)
)

const timestampLayout = "2006-01-02T15:04:05Z"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Ping checks that the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Budgets

func (r *SQLiteRepository) CreateBudget(ctx context.Context, name string) (core.Budget, error) {
	b := core.Budget{Name: strings.TrimSpace(name)}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	b.CreatedAt = time.Now().UTC().Truncate(time.Second)

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO budgets (name, created_at) VALUES (?, ?)",
		b.Name, b.CreatedAt.Format(timestampLayout))
	if err != nil {
		return core.Budget{}, fmt.Errorf("insert budget: %w", err)
	}
	if b.ID, err = res.LastInsertId(); err != nil {
		return core.Budget{}, fmt.Errorf("budget id: %w", err)
	}

	slog.InfoContext(ctx, "Budget saved to SQLite", "id", b.ID, "name", b.Name)
	return b, nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	var (
		b       core.Budget
		created string
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM budgets WHERE id = ?", id).
		Scan(&b.ID, &b.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %d: %w", id, err)
	}
	b.CreatedAt = parseTimestamp(created)
	return b, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, created_at FROM budgets ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	out := []core.Budget{}
	for rows.Next() {
		var (
			b       core.Budget
			created string
		)
		if err := rows.Scan(&b.ID, &b.Name, &created); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.CreatedAt = parseTimestamp(created)
		out = append(out, b)
	}
	return out, rows.Err()
}

// Categories

func (r *SQLiteRepository) CreateCategory(ctx context.Context, budgetID int64, name string) (core.Category, error) {
	c := core.Category{BudgetID: budgetID, Name: strings.TrimSpace(name)}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if _, err := r.GetBudget(ctx, budgetID); err != nil {
		return core.Category{}, err
	}

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO categories (budget_id, name) VALUES (?, ?)", budgetID, c.Name)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return core.Category{}, fmt.Errorf("category id: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, budgetID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, budget_id, name FROM categories WHERE budget_id = ? ORDER BY name, id", budgetID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.BudgetID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCategory removes the category and leaves its transactions uncategorized.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, budgetID, categoryID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"DELETE FROM categories WHERE id = ? AND budget_id = ?", categoryID, budgetID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("category %d: %w", categoryID, core.ErrNotFound)
	}
	// ON DELETE SET NULL covers this too, but only while foreign keys are enabled.
	if _, err := tx.ExecContext(ctx,
		"UPDATE transactions SET category_id = NULL WHERE category_id = ?", categoryID); err != nil {
		return fmt.Errorf("detach category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Transactions

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.Description = strings.TrimSpace(t.Description)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if _, err := r.GetBudget(ctx, t.BudgetID); err != nil {
		return core.Transaction{}, err
	}
	if t.CategoryID != nil {
		var n int
		err := r.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM categories WHERE id = ? AND budget_id = ?", *t.CategoryID, t.BudgetID).Scan(&n)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("check category: %w", err)
		}
		if n == 0 {
			return core.Transaction{}, fmt.Errorf("category %d: %w", *t.CategoryID, core.ErrNotFound)
		}
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (budget_id, category_id, date, description, amount)
		 VALUES (?, ?, ?, ?, ?)`,
		t.BudgetID, nullableID(t.CategoryID), t.Date.String(), t.Description, t.Amount.StringFixed(2))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"budget_id", t.BudgetID,
		"date", t.Date.String(),
		"amount", t.Amount.StringFixed(2))

	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, budgetID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM transactions WHERE id = ? AND budget_id = ?", id, budgetID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// ListTransactions implements ports.TransactionLister.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, budgetID int64, month *core.Month) ([]core.TransactionView, error) {
	query := `SELECT t.id, t.date, t.description, COALESCE(c.name, ''), t.amount
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.budget_id = ?`
	args := []any{budgetID}
	if month != nil {
		first, last := month.Bounds()
		query += " AND t.date BETWEEN ? AND ?"
		args = append(args, first.String(), last.String())
	}
	query += " ORDER BY t.date, t.id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := []core.TransactionView{}
	for rows.Next() {
		var (
			v            core.TransactionView
			date, amount string
		)
		if err := rows.Scan(&v.ID, &date, &v.Description, &v.Category, &amount); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if v.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", v.ID, err)
		}
		if v.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("transaction %d amount %q: %w", v.ID, amount, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// Sync bookkeeping

// PendingSync returns up to limit transaction ids that were never exported.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM transactions WHERE sync_status = 'pending' ORDER BY id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query pending sync: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLiteRepository) GetExportRecord(ctx context.Context, transactionID int64) (core.ExportRecord, error) {
	var (
		rec          core.ExportRecord
		categoryID   sql.NullInt64
		date, amount string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT t.id, t.budget_id, t.category_id, t.date, t.description, t.amount, b.name, COALESCE(c.name, '')
		 FROM transactions t
		 JOIN budgets b ON b.id = t.budget_id
		 LEFT JOIN categories c ON c.id = t.category_id
		 WHERE t.id = ?`, transactionID).
		Scan(&rec.Transaction.ID, &rec.Transaction.BudgetID, &categoryID, &date,
			&rec.Transaction.Description, &amount, &rec.BudgetName, &rec.CategoryName)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExportRecord{}, fmt.Errorf("transaction %d: %w", transactionID, core.ErrNotFound)
	}
	if err != nil {
		return core.ExportRecord{}, fmt.Errorf("get transaction %d: %w", transactionID, err)
	}
	if categoryID.Valid {
		id := categoryID.Int64
		rec.Transaction.CategoryID = &id
	}
	if rec.Transaction.Date, err = core.ParseDate(date); err != nil {
		return core.ExportRecord{}, err
	}
	if rec.Transaction.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.ExportRecord{}, fmt.Errorf("transaction %d amount %q: %w", transactionID, amount, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, transactionID int64, rowRef string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'synced', sheets_ref = ?, sync_error = NULL, synced_at = ?
		 WHERE id = ?`,
		rowRef, time.Now().UTC().Format(timestampLayout), transactionID)
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, transactionID int64, reason string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET sync_status = 'error', sync_error = ? WHERE id = ?",
		reason, transactionID)
	if err != nil {
		return fmt.Errorf("mark sync error: %w", err)
	}
	return nil
}

// SyncStatus returns the sync state of one transaction.
func (r *SQLiteRepository) SyncStatus(ctx context.Context, transactionID int64) (string, error) {
	var status string
	err := r.db.QueryRowContext(ctx,
		"SELECT sync_status FROM transactions WHERE id = ?", transactionID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("transaction %d: %w", transactionID, core.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get sync status: %w", err)
	}
	return status, nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
