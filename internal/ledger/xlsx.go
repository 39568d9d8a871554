package ledger

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/jdboer/grocery-cli/internal/model"
)

// XLSXLedger keeps the purchase sheet in a local workbook. Same column
// contract as the Sheets backend; Apply rewrites the file in place.
type XLSXLedger struct {
	path string
	tab  string

	file   *xlsx.File
	sheet  *xlsx.Sheet
	layout columnLayout
	loaded bool
}

// NewXLSX creates an XLSX backend over an existing workbook.
func NewXLSX(path, tab string) *XLSXLedger {
	return &XLSXLedger{path: path, tab: tab}
}

func (l *XLSXLedger) open() error {
	f, err := xlsx.OpenFile(l.path)
	if err != nil {
		return eris.Wrap(err, "ledger: open workbook")
	}

	sheet, ok := f.Sheet[l.tab]
	if !ok {
		if l.tab == "" && len(f.Sheets) > 0 {
			sheet = f.Sheets[0]
		} else {
			return eris.Errorf("ledger: sheet %q not found", l.tab)
		}
	}
	if len(sheet.Rows) == 0 {
		return eris.New("ledger: sheet tab is empty")
	}

	header := make([]string, len(sheet.Rows[0].Cells))
	for i, c := range sheet.Rows[0].Cells {
		header[i] = c.String()
	}
	layout, err := resolveColumns(header)
	if err != nil {
		return err
	}

	l.file = f
	l.sheet = sheet
	l.layout = layout
	l.loaded = true
	return nil
}

// Rows reads every data row from the workbook.
func (l *XLSXLedger) Rows(_ context.Context) ([]model.PurchaseRow, error) {
	if err := l.open(); err != nil {
		return nil, err
	}

	rows := make([]model.PurchaseRow, 0, len(l.sheet.Rows)-1)
	for i, row := range l.sheet.Rows[1:] {
		cells := make([]string, len(row.Cells))
		for j, c := range row.Cells {
			cells[j] = c.String()
		}
		rows = append(rows, model.PurchaseRow{
			Index:           i,
			ProductOriginal: strings.TrimSpace(cell(cells, l.layout.product)),
			Store:           strings.TrimSpace(cell(cells, l.layout.store)),
			ID:              strings.TrimSpace(cell(cells, l.layout.id)),
			IDs:             strings.TrimSpace(cell(cells, l.layout.ids)),
		})
	}
	return rows, nil
}

// Apply writes the updates into the workbook and saves it.
func (l *XLSXLedger) Apply(_ context.Context, updates []Update) error {
	if len(updates) == 0 {
		return nil
	}
	if !l.loaded {
		return eris.New("ledger: Apply before Rows, column layout unknown")
	}

	for _, u := range updates {
		var col int
		switch u.Column {
		case ColumnID:
			col = l.layout.id
		case ColumnIDs:
			col = l.layout.ids
		default:
			return eris.Errorf("ledger: column %q is not writable", u.Column)
		}
		l.sheet.Cell(u.RowIndex+1, col).SetString(u.Value)
	}

	if err := l.file.Save(l.path); err != nil {
		return eris.Wrap(err, "ledger: save workbook")
	}
	return nil
}
