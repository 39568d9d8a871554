package ledger

import (
	"context"

	"github.com/jdboer/grocery-cli/internal/model"
)

// Fake is an in-memory Ledger for tests and dry runs.
type Fake struct {
	Data     []model.PurchaseRow
	Applied  []Update
	RowsErr  error
	ApplyErr error
}

// NewFake creates a Fake holding the given rows. Row indices are
// assigned from position.
func NewFake(rows ...model.PurchaseRow) *Fake {
	for i := range rows {
		rows[i].Index = i
	}
	return &Fake{Data: rows}
}

func (f *Fake) Rows(_ context.Context) ([]model.PurchaseRow, error) {
	if f.RowsErr != nil {
		return nil, f.RowsErr
	}
	out := make([]model.PurchaseRow, len(f.Data))
	copy(out, f.Data)
	return out, nil
}

// Apply records the updates and mirrors them into Data so a later Rows
// call observes them.
func (f *Fake) Apply(_ context.Context, updates []Update) error {
	if f.ApplyErr != nil {
		return f.ApplyErr
	}
	f.Applied = append(f.Applied, updates...)
	for _, u := range updates {
		if u.RowIndex < 0 || u.RowIndex >= len(f.Data) {
			continue
		}
		switch u.Column {
		case ColumnID:
			f.Data[u.RowIndex].ID = u.Value
		case ColumnIDs:
			f.Data[u.RowIndex].IDs = u.Value
		}
	}
	return nil
}
