// Package store persists pipeline runs and daily product snapshots so
// price history survives beyond the per-run CSV exports.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jdboer/grocery-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, stages []model.StageInfo) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Snapshots
	SaveSnapshots(ctx context.Context, runID, retailer string, records []model.ProductRecord) (int, error)
	PriceHistory(ctx context.Context, productKey string) ([]model.PricePoint, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Pool is the subset of pgxpool.Pool the postgres store uses. pgxmock
// satisfies it for tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// snapshotKey identifies a product across snapshots: the retailer id
// when there is one, the title otherwise.
func snapshotKey(r model.ProductRecord) string {
	if r.ID != "" {
		return r.ID
	}
	return r.Title
}
