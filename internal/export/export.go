// Package export writes and reads the date-stamped CSV files the
// pipeline stages exchange.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/jdboer/grocery-cli/internal/model"
)

// Base names for the per-run export files.
const (
	BaseAHFull    = "ah_full_export"
	BaseAHSummary = "ah_summary"
	BaseLidl      = "lidl_offers"
)

// Exporter resolves file names inside the configured export directory.
type Exporter struct {
	dir string
}

func New(dir string) *Exporter {
	if dir == "" {
		dir = "."
	}
	return &Exporter{dir: dir}
}

// Path returns the export file name for a base and day,
// e.g. ah_full_export_20260210.csv.
func (e *Exporter) Path(base string, day time.Time) string {
	return filepath.Join(e.dir, fmt.Sprintf("%s_%s.csv", base, day.Format("20060102")))
}

// TranslatedPath returns the name of the enriched variant,
// e.g. ah_full_export_20260210_translated.csv.
func (e *Exporter) TranslatedPath(base string, day time.Time) string {
	return filepath.Join(e.dir, fmt.Sprintf("%s_%s_translated.csv", base, day.Format("20060102")))
}

// WriteProducts encodes the records to path. An empty slice still
// produces the header row.
func (e *Exporter) WriteProducts(path string, records []model.ProductRecord) error {
	if records == nil {
		records = []model.ProductRecord{}
	}
	b, err := csvutil.Marshal(records)
	if err != nil {
		return eris.Wrap(err, "export: marshal products")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}

// ReadProducts decodes a products export written by WriteProducts.
func (e *Exporter) ReadProducts(path string) ([]model.ProductRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: read %s", path)
	}
	var records []model.ProductRecord
	if err := csvutil.Unmarshal(b, &records); err != nil {
		return nil, eris.Wrapf(err, "export: decode %s", path)
	}
	return records, nil
}

// WriteSummary encodes the per-aisle item counts to path.
func (e *Exporter) WriteSummary(path string, rows []model.CategorySummary) error {
	if rows == nil {
		rows = []model.CategorySummary{}
	}
	b, err := csvutil.Marshal(rows)
	if err != nil {
		return eris.Wrap(err, "export: marshal summary")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}

// ReadSummary decodes a summary export written by WriteSummary.
func (e *Exporter) ReadSummary(path string) ([]model.CategorySummary, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: read %s", path)
	}
	var rows []model.CategorySummary
	if err := csvutil.Unmarshal(b, &rows); err != nil {
		return nil, eris.Wrapf(err, "export: decode %s", path)
	}
	return rows, nil
}
