package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/jdboer/grocery-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_run": `INSERT INTO runs (id, status, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
	"finish_run": `UPDATE runs SET status = $1, stages = $2, updated_at = $3 WHERE id = $4`,
	"get_run":    `SELECT id, status, stages, created_at, updated_at FROM runs WHERE id = $1`,
	"save_snapshot": `INSERT INTO product_snapshots (id, run_id, retailer, product_key, title, title_en, aisle, price, was_price, discount, unit, day)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	 ON CONFLICT (retailer, product_key, day) DO UPDATE SET
		run_id = $2, title = $5, title_en = $6, aisle = $7,
		price = $8, was_price = $9, discount = $10, unit = $11`,
	"price_history": `SELECT day, retailer, price, was_price FROM product_snapshots WHERE product_key = $1 ORDER BY day ASC`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	status     TEXT NOT NULL DEFAULT 'running',
	stages     JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS product_snapshots (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	retailer    TEXT NOT NULL,
	product_key TEXT NOT NULL,
	title       TEXT NOT NULL,
	title_en    TEXT,
	aisle       TEXT,
	price       TEXT NOT NULL,
	was_price   TEXT NOT NULL,
	discount    TEXT,
	unit        TEXT,
	day         TEXT NOT NULL,
	UNIQUE(retailer, product_key, day)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_snapshots_run_id ON product_snapshots(run_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_product_key ON product_snapshots(product_key);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, status, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		id, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, stages []model.StageInfo) error {
	stagesJSON, err := json.Marshal(stages)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal stages")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, stages = $2, updated_at = $3 WHERE id = $4`,
		string(status), stagesJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var r model.Run
	var stagesNull *[]byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, status, stages, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.Status, &stagesNull, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("run not found: %s", runID)
		}
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	if stagesNull != nil {
		if err := json.Unmarshal(*stagesNull, &r.Stages); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal stages")
		}
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, status, stages, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var stagesNull *[]byte

		if err := rows.Scan(&r.ID, &r.Status, &stagesNull, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if stagesNull != nil {
			if err := json.Unmarshal(*stagesNull, &r.Stages); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal stages")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) SaveSnapshots(ctx context.Context, runID, retailer string, records []model.ProductRecord) (int, error) {
	day := time.Now().UTC().Format("2006-01-02")
	saved := 0
	for _, r := range records {
		key := snapshotKey(r)
		if key == "" {
			continue
		}
		_, err := s.pool.Exec(ctx,
			`INSERT INTO product_snapshots (id, run_id, retailer, product_key, title, title_en, aisle, price, was_price, discount, unit, day)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			 ON CONFLICT (retailer, product_key, day) DO UPDATE SET
				run_id = $2, title = $5, title_en = $6, aisle = $7,
				price = $8, was_price = $9, discount = $10, unit = $11`,
			uuid.New().String(), runID, retailer, key, r.Title, r.TitleEN, r.Aisle,
			r.Price.String(), r.WasPrice.String(), r.Discount, r.Unit, day,
		)
		if err != nil {
			return saved, eris.Wrapf(err, "postgres: save snapshot %s", key)
		}
		saved++
	}
	return saved, nil
}

func (s *PostgresStore) PriceHistory(ctx context.Context, productKey string) ([]model.PricePoint, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT day, retailer, price, was_price FROM product_snapshots
		 WHERE product_key = $1 ORDER BY day ASC`,
		productKey,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: price history")
	}
	defer rows.Close()

	var points []model.PricePoint
	for rows.Next() {
		var p model.PricePoint
		if err := rows.Scan(&p.Day, &p.Retailer, &p.Price, &p.WasPrice); err != nil {
			return nil, eris.Wrap(err, "postgres: scan price point")
		}
		points = append(points, p)
	}
	return points, eris.Wrap(rows.Err(), "postgres: price history iterate")
}
