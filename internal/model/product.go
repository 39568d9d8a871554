// Package model defines the core domain types shared across the pipeline:
// scraped catalog records, translation memory entries, and purchase ledger rows.
package model

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ProductRecord is one flattened catalog entry from a retailer listing.
// ID is the retailer-issued product key; Lidl offers carry no stable ID
// across weeks, so for that retailer the field is empty.
type ProductRecord struct {
	ID              string          `csv:"id" json:"id"`
	Title           string          `csv:"title" json:"title"`
	TitleEN         string          `csv:"title_eng,omitempty" json:"title_eng,omitempty"`
	Aisle           string          `csv:"scraped_aisle" json:"scraped_aisle"`
	AisleEN         string          `csv:"aisle_eng,omitempty" json:"aisle_eng,omitempty"`
	AllAisles       string          `csv:"all_aisles,omitempty" json:"all_aisles,omitempty"`
	Category        string          `csv:"category_specific" json:"category_specific"`
	Price           decimal.Decimal `csv:"final_price" json:"final_price"`
	WasPrice        decimal.Decimal `csv:"original_price" json:"original_price"`
	DiscountPercent int             `csv:"discount_percent" json:"discount_percent"`
	Discount        string          `csv:"discount" json:"discount"`
	DealType        string          `csv:"deal_type,omitempty" json:"deal_type,omitempty"`
	Unit            string          `csv:"unit" json:"unit"`
	Nutriscore      string          `csv:"nutriscore,omitempty" json:"nutriscore,omitempty"`
	URL             string          `csv:"url" json:"url"`
	ScrapedAt       string          `csv:"scraped_at" json:"scraped_at"`
}

// CategorySummary counts how many products a scrape found per aisle.
type CategorySummary struct {
	Aisle   string `csv:"scraped_aisle" json:"scraped_aisle"`
	AisleEN string `csv:"aisle_eng,omitempty" json:"aisle_eng,omitempty"`
	Items   int    `csv:"items_found" json:"items_found"`
}

// TranslationEntry is one row of the persisted translation memory.
type TranslationEntry struct {
	ID           string `csv:"id"`
	DutchTitle   string `csv:"dutch_title"`
	EnglishTitle string `csv:"english_title"`
}

// PurchaseRow is one row of the externally owned purchase ledger.
// Index is the zero-based data-row position (header excluded), used to
// address the row when writing back. Only ID and IDs are ever written.
type PurchaseRow struct {
	Index           int
	ProductOriginal string
	Store           string
	ID              string
	IDs             string
}

// Resolution states for a ledger row after a mapping run.
const (
	ResolvedByHistory = "history"
	ResolvedByFuzzy   = "fuzzy"
	ResolvedNoMatch   = "no_match"
)

// NoMatchMarker is written to the ids column when no candidate clears
// the acceptance threshold.
const NoMatchMarker = "No match found"

// AisleSeparator joins multiple aisle memberships in AllAisles.
const AisleSeparator = "; "

// MergeSnapshots collapses records that share an identifier into a single
// row per product. The first occurrence wins for all fields except
// AllAisles, which becomes the sorted, de-duplicated list of every aisle
// the product appeared under. Records without an ID pass through untouched.
func MergeSnapshots(records []ProductRecord) []ProductRecord {
	aisles := make(map[string]map[string]struct{})
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		set, ok := aisles[r.ID]
		if !ok {
			set = make(map[string]struct{})
			aisles[r.ID] = set
		}
		if r.Aisle != "" {
			set[r.Aisle] = struct{}{}
		}
	}

	seen := make(map[string]struct{})
	merged := make([]ProductRecord, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			merged = append(merged, r)
			continue
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		r.AllAisles = joinSorted(aisles[r.ID])
		merged = append(merged, r)
	}
	return merged
}

func joinSorted(set map[string]struct{}) string {
	if len(set) == 0 {
		return ""
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, AisleSeparator)
}

// DiscountPercent computes the rounded percentage spread between the
// reference price and the current price. A zero or equal reference
// yields zero.
func DiscountPercent(now, was decimal.Decimal) int {
	if was.IsZero() || was.Equal(now) {
		return 0
	}
	pct := was.Sub(now).Div(was).Mul(decimal.NewFromInt(100))
	return int(pct.Round(0).IntPart())
}

// NormalizeWasPrice applies the export price policy: an absent reference
// price defaults to the current price so the discount spread is zero.
func NormalizeWasPrice(now, was decimal.Decimal) decimal.Decimal {
	if was.IsZero() {
		return now
	}
	return was
}
