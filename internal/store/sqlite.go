package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/jdboer/grocery-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'running',
	stages     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS product_snapshots (
	id          TEXT PRIMARY KEY,
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

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, stages []model.StageInfo) error {
	stagesJSON, err := json.Marshal(stages)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stages")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, stages = ?, updated_at = ? WHERE id = ?`,
		string(status), string(stagesJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, stages, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, status, stages, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveSnapshots(ctx context.Context, runID, retailer string, records []model.ProductRecord) (int, error) {
	day := time.Now().UTC().Format("2006-01-02")
	saved := 0
	for _, r := range records {
		key := snapshotKey(r)
		if key == "" {
			continue
		}
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO product_snapshots (id, run_id, retailer, product_key, title, title_en, aisle, price, was_price, discount, unit, day)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(retailer, product_key, day) DO UPDATE SET
				run_id = excluded.run_id,
				title = excluded.title,
				title_en = excluded.title_en,
				aisle = excluded.aisle,
				price = excluded.price,
				was_price = excluded.was_price,
				discount = excluded.discount,
				unit = excluded.unit`,
			uuid.New().String(), runID, retailer, key, r.Title, r.TitleEN, r.Aisle,
			r.Price.String(), r.WasPrice.String(), r.Discount, r.Unit, day,
		)
		if err != nil {
			return saved, eris.Wrapf(err, "sqlite: save snapshot %s", key)
		}
		saved++
	}
	return saved, nil
}

func (s *SQLiteStore) PriceHistory(ctx context.Context, productKey string) ([]model.PricePoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day, retailer, price, was_price FROM product_snapshots
		 WHERE product_key = ? ORDER BY day ASC`,
		productKey,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: price history")
	}
	defer rows.Close()

	var points []model.PricePoint
	for rows.Next() {
		var p model.PricePoint
		if err := rows.Scan(&p.Day, &p.Retailer, &p.Price, &p.WasPrice); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan price point")
		}
		points = append(points, p)
	}
	return points, eris.Wrap(rows.Err(), "sqlite: price history iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var stagesJSON sql.NullString

	err := row.Scan(&r.ID, &r.Status, &stagesJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if stagesJSON.Valid && stagesJSON.String != "" {
		if err := json.Unmarshal([]byte(stagesJSON.String), &r.Stages); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal stages")
		}
	}
	return &r, nil
}
