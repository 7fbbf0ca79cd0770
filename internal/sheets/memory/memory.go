// Package memory is a LedgerExporter that keeps rows in process memory. The
// worker uses it when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"budget/internal/core"
	"budget/internal/ports"
)

type Exporter struct {
	mu   sync.Mutex
	rows []core.ExportRecord
	fail error
}

var _ ports.LedgerExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

// AppendTransaction stores the record and returns a synthetic row reference.
func (e *Exporter) AppendTransaction(_ context.Context, rec core.ExportRecord) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail != nil {
		return "", e.fail
	}
	e.rows = append(e.rows, rec)
	// Row 1 is the header.
	row := len(e.rows) + 1
	return fmt.Sprintf("memory!A%d:E%d", row, row), nil
}

// Rows returns a copy of the exported records in append order.
func (e *Exporter) Rows() []core.ExportRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]core.ExportRecord, len(e.rows))
	copy(out, e.rows)
	return out
}

// FailWith makes subsequent appends return err; nil restores normal operation.
func (e *Exporter) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail = err
}
