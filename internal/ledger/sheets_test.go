package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sheetsTestLedger(t *testing.T, srvURL string) *SheetsLedger {
	t.Helper()
	l, err := NewSheets(context.Background(), "", "sheet-1", "Raw",
		WithBaseURL(srvURL),
		WithHTTPClient(http.DefaultClient),
	)
	require.NoError(t, err)
	return l
}

func TestSheetsRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/spreadsheets/sheet-1/values/Raw", r.URL.Path)
		fmt.Fprint(w, `{"values": [
			["date", "product_original", "store", "price", "id", "ids"],
			["2026-08-01", "Halfvolle melk", "Albert_Heijn", "1.19", "101", "101 (100%)"],
			["2026-08-02", "Bananen", "albert_heijn", "1.49", "", ""],
			["2026-08-02", "Zalm", "lidl", "5.49"]
		]}`)
	}))
	defer srv.Close()

	rows, err := sheetsTestLedger(t, srv.URL).Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 0, rows[0].Index)
	assert.Equal(t, "Halfvolle melk", rows[0].ProductOriginal)
	assert.Equal(t, "Albert_Heijn", rows[0].Store)
	assert.Equal(t, "101", rows[0].ID)
	assert.Equal(t, "101 (100%)", rows[0].IDs)

	// Short row pads out with empties
	assert.Equal(t, "Zalm", rows[2].ProductOriginal)
	assert.Empty(t, rows[2].ID)
	assert.Empty(t, rows[2].IDs)
}

func TestSheetsApply(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			fmt.Fprint(w, `{"values": [
				["product_original", "store", "id", "ids"],
				["Bananen", "albert_heijn", "", ""]
			]}`)
		case r.Method == http.MethodPost:
			assert.Equal(t, "/v4/spreadsheets/sheet-1/values:batchUpdate", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			fmt.Fprint(w, `{}`)
		}
	}))
	defer srv.Close()

	l := sheetsTestLedger(t, srv.URL)
	_, err := l.Rows(context.Background())
	require.NoError(t, err)

	err = l.Apply(context.Background(), []Update{
		{RowIndex: 0, Column: ColumnID, Value: "202"},
		{RowIndex: 0, Column: ColumnIDs, Value: "202 (91%)"},
	})
	require.NoError(t, err)

	assert.Equal(t, "RAW", gotBody["valueInputOption"])
	data := gotBody["data"].([]any)
	require.Len(t, data, 2)

	first := data[0].(map[string]any)
	assert.Equal(t, "Raw!C2", first["range"])
	assert.Equal(t, []any{[]any{"202"}}, first["values"].([]any))

	second := data[1].(map[string]any)
	assert.Equal(t, "Raw!D2", second["range"])
}

func TestSheetsApplyBeforeRows(t *testing.T) {
	l := sheetsTestLedger(t, "http://unused")
	err := l.Apply(context.Background(), []Update{{RowIndex: 0, Column: ColumnID, Value: "1"}})
	assert.Error(t, err)
}

func TestSheetsMissingWritableColumns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"values": [
			["product_original", "store"],
			["Bananen", "albert_heijn"]
		]}`)
	}))
	defer srv.Close()

	l := sheetsTestLedger(t, srv.URL)
	rows, err := l.Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// id and ids land in the next free columns C and D
	assert.Equal(t, 2, l.idCol)
	assert.Equal(t, 3, l.idsCol)
}

func TestSheetsMissingRequiredColumns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"values": [["datum", "prijs"], ["2026-08-01", "1.19"]]}`)
	}))
	defer srv.Close()

	_, err := sheetsTestLedger(t, srv.URL).Rows(context.Background())
	assert.Error(t, err)
}

func TestSheetsEmptyTab(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	_, err := sheetsTestLedger(t, srv.URL).Rows(context.Background())
	assert.Error(t, err)
}

func TestSheetsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := sheetsTestLedger(t, srv.URL).Rows(context.Background())
	assert.Error(t, err)
}

func TestColumnLetter(t *testing.T) {
	assert.Equal(t, "A", columnLetter(0))
	assert.Equal(t, "D", columnLetter(3))
	assert.Equal(t, "Z", columnLetter(25))
	assert.Equal(t, "AA", columnLetter(26))
	assert.Equal(t, "AB", columnLetter(27))
}
