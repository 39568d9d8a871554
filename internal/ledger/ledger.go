// Package ledger reads and writes the externally owned purchase sheet.
// The sheet is the household's own bookkeeping; the pipeline only ever
// fills the id and ids columns and never touches anything else.
package ledger

import (
	"context"

	"github.com/jdboer/grocery-cli/internal/model"
)

// Column names the pipeline is allowed to write.
const (
	ColumnID  = "id"
	ColumnIDs = "ids"
)

// Update sets one writable cell of a data row.
type Update struct {
	RowIndex int    // zero-based data row, header excluded
	Column   string // ColumnID or ColumnIDs
	Value    string
}

// Ledger is a purchase sheet backend.
type Ledger interface {
	// Rows returns every data row in sheet order.
	Rows(ctx context.Context) ([]model.PurchaseRow, error)
	// Apply writes a set of cell updates in one round trip.
	Apply(ctx context.Context, updates []Update) error
}
