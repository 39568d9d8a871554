package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdboer/grocery-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), "running", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FinishRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	stages := []model.StageInfo{
		{Name: "scrape-ah", Status: model.StageStatusOK, Items: 120},
		{Name: "translate", Status: model.StageStatusFailed, Error: "provider unavailable"},
	}
	stagesJSON, err := json.Marshal(stages)
	require.NoError(t, err)

	mock.ExpectExec(`UPDATE runs SET status = \$1, stages = \$2`).
		WithArgs("partial", stagesJSON, pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = s.FinishRun(context.Background(), "run-1", model.RunStatusPartial, stages)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FinishRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status = \$1, stages = \$2`).
		WithArgs("complete", pgxmock.AnyArg(), pgxmock.AnyArg(), "missing-run").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), "missing-run", model.RunStatusComplete, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	stagesJSON := []byte(`[{"name":"scrape-ah","status":"ok","items":42,"duration_ms":1500}]`)
	created := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, status, stages, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "status", "stages", "created_at", "updated_at"}).
			AddRow("run-1", model.RunStatusComplete, &stagesJSON, created, created))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.Len(t, run.Stages, 1)
	assert.Equal(t, "scrape-ah", run.Stages[0].Name)
	assert.Equal(t, 42, run.Stages[0].Items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, status, stages, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_FilterStatus(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	created := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, status, stages, created_at, updated_at FROM runs WHERE true AND status = \$1`).
		WithArgs("failed", 100).
		WillReturnRows(pgxmock.NewRows([]string{"id", "status", "stages", "created_at", "updated_at"}).
			AddRow("run-9", model.RunStatusFailed, (*[]byte)(nil), created, created))

	runs, err := s.ListRuns(context.Background(), RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-9", runs[0].ID)
	assert.Empty(t, runs[0].Stages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveSnapshots_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	records := []model.ProductRecord{
		{ID: "wi101", Title: "Halfvolle melk", Price: decimal.RequireFromString("1.19"), WasPrice: decimal.RequireFromString("1.19")},
		{Title: "Hollandse aardbeien", Price: decimal.RequireFromString("2.49"), WasPrice: decimal.RequireFromString("3.49")},
	}

	mock.ExpectExec(`ON CONFLICT`).
		WithArgs(pgxmock.AnyArg(), "run-1", "albert_heijn", "wi101", "Halfvolle melk",
			"", "", "1.19", "1.19", "", "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`ON CONFLICT`).
		WithArgs(pgxmock.AnyArg(), "run-1", "albert_heijn", "Hollandse aardbeien", "Hollandse aardbeien",
			"", "", "2.49", "3.49", "", "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	saved, err := s.SaveSnapshots(context.Background(), "run-1", "albert_heijn", records)
	require.NoError(t, err)
	assert.Equal(t, 2, saved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveSnapshots_SkipsEmptyKey(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	records := []model.ProductRecord{
		{Price: decimal.RequireFromString("0.99"), WasPrice: decimal.RequireFromString("0.99")},
	}

	saved, err := s.SaveSnapshots(context.Background(), "run-1", "lidl", records)
	require.NoError(t, err)
	assert.Zero(t, saved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PriceHistory(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT day, retailer, price, was_price FROM product_snapshots`).
		WithArgs("wi101").
		WillReturnRows(pgxmock.NewRows([]string{"day", "retailer", "price", "was_price"}).
			AddRow("2026-02-09", "albert_heijn", "1.29", "1.29").
			AddRow("2026-02-10", "albert_heijn", "1.19", "1.29"))

	points, err := s.PriceHistory(context.Background(), "wi101")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "2026-02-09", points[0].Day)
	assert.Equal(t, "1.19", points[1].Price)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Ping(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`SELECT 1`).WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
