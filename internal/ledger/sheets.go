package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2/google"

	"github.com/jdboer/grocery-cli/internal/model"
)

const sheetsScope = "https://www.googleapis.com/auth/spreadsheets"

// SheetsLedger talks to the Google Sheets values API with a service
// account. Column positions are discovered from the header row on every
// read; missing id/ids columns are appended after the existing ones.
type SheetsLedger struct {
	baseURL       string
	spreadsheetID string
	tab           string
	http          *http.Client

	// column layout from the last Rows call
	idCol  int
	idsCol int
}

// SheetsOption configures the Sheets backend.
type SheetsOption func(*SheetsLedger)

// WithBaseURL sets a custom API base URL (for testing).
func WithBaseURL(url string) SheetsOption {
	return func(l *SheetsLedger) {
		l.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client, bypassing service account
// auth (for testing).
func WithHTTPClient(hc *http.Client) SheetsOption {
	return func(l *SheetsLedger) {
		l.http = hc
	}
}

// NewSheets creates a Sheets backend from a service account key file.
func NewSheets(ctx context.Context, credentialsFile, spreadsheetID, tab string, opts ...SheetsOption) (*SheetsLedger, error) {
	l := &SheetsLedger{
		baseURL:       "https://sheets.googleapis.com",
		spreadsheetID: spreadsheetID,
		tab:           tab,
		idCol:         -1,
		idsCol:        -1,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.http == nil {
		key, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, eris.Wrap(err, "ledger: read service account key")
		}
		cfg, err := google.JWTConfigFromJSON(key, sheetsScope)
		if err != nil {
			return nil, eris.Wrap(err, "ledger: parse service account key")
		}
		l.http = cfg.Client(ctx)
		l.http.Timeout = 30 * time.Second
	}

	return l, nil
}

type valuesResponse struct {
	Values [][]string `json:"values"`
}

// Rows fetches the tab and maps it onto purchase rows using the header.
func (l *SheetsLedger) Rows(ctx context.Context) ([]model.PurchaseRow, error) {
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s",
		l.baseURL, url.PathEscape(l.spreadsheetID), url.PathEscape(l.tab))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: create values request")
	}

	body, err := l.do(req)
	if err != nil {
		return nil, err
	}

	var parsed valuesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "ledger: decode values response")
	}
	if len(parsed.Values) == 0 {
		return nil, eris.New("ledger: sheet tab is empty")
	}

	header := parsed.Values[0]
	layout, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}
	l.idCol = layout.id
	l.idsCol = layout.ids

	rows := make([]model.PurchaseRow, 0, len(parsed.Values)-1)
	for i, raw := range parsed.Values[1:] {
		rows = append(rows, model.PurchaseRow{
			Index:           i,
			ProductOriginal: strings.TrimSpace(cell(raw, layout.product)),
			Store:           strings.TrimSpace(cell(raw, layout.store)),
			ID:              strings.TrimSpace(cell(raw, layout.id)),
			IDs:             strings.TrimSpace(cell(raw, layout.ids)),
		})
	}
	return rows, nil
}

// Apply writes the updates with a single values:batchUpdate call.
func (l *SheetsLedger) Apply(ctx context.Context, updates []Update) error {
	if len(updates) == 0 {
		return nil
	}
	if l.idCol < 0 || l.idsCol < 0 {
		return eris.New("ledger: Apply before Rows, column layout unknown")
	}

	type valueRange struct {
		Range  string     `json:"range"`
		Values [][]string `json:"values"`
	}
	payload := struct {
		ValueInputOption string       `json:"valueInputOption"`
		Data             []valueRange `json:"data"`
	}{ValueInputOption: "RAW"}

	for _, u := range updates {
		col, err := l.columnIndex(u.Column)
		if err != nil {
			return err
		}
		// Data row 0 is sheet row 2.
		a1 := fmt.Sprintf("%s!%s%d", l.tab, columnLetter(col), u.RowIndex+2)
		payload.Data = append(payload.Data, valueRange{
			Range:  a1,
			Values: [][]string{{u.Value}},
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "ledger: encode batch update")
	}

	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values:batchUpdate",
		l.baseURL, url.PathEscape(l.spreadsheetID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "ledger: create batch update request")
	}
	req.Header.Set("Content-Type", "application/json")

	if _, err := l.do(req); err != nil {
		return err
	}
	return nil
}

func (l *SheetsLedger) columnIndex(name string) (int, error) {
	switch name {
	case ColumnID:
		return l.idCol, nil
	case ColumnIDs:
		return l.idsCol, nil
	}
	return 0, eris.Errorf("ledger: column %q is not writable", name)
}

func (l *SheetsLedger) do(req *http.Request) ([]byte, error) {
	resp, err := l.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("ledger: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// columnLayout holds zero-based header positions.
type columnLayout struct {
	product int
	store   int
	id      int
	ids     int
}

// resolveColumns locates the needed columns by header name. The id and
// ids columns may be absent; they are then assigned the next free
// positions, which a write will materialize.
func resolveColumns(header []string) (columnLayout, error) {
	layout := columnLayout{product: -1, store: -1, id: -1, ids: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "product_original":
			layout.product = i
		case "store":
			layout.store = i
		case ColumnID:
			layout.id = i
		case ColumnIDs:
			layout.ids = i
		}
	}
	if layout.product < 0 || layout.store < 0 {
		return layout, eris.New("ledger: sheet is missing product_original or store column")
	}
	next := len(header)
	if layout.id < 0 {
		layout.id = next
		next++
	}
	if layout.ids < 0 {
		layout.ids = next
	}
	return layout, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// columnLetter converts a zero-based column index to A1 letters.
func columnLetter(i int) string {
	letters := ""
	for i >= 0 {
		letters = string(rune('A'+i%26)) + letters
		i = i/26 - 1
	}
	return letters
}
