package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"basketboard/domain/core"
	"basketboard/internal/dashboard"
	"basketboard/internal/errors"
)

// RunHistoryRepository persists analysis runs in PostgreSQL. The dashboard
// works without it; wiring happens only when DATABASE_URL is set.
type RunHistoryRepository struct {
	db *sqlx.DB
}

// Connect opens the database and ensures the schema exists.
func Connect(ctx context.Context, databaseURL string) (*RunHistoryRepository, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	repo := &RunHistoryRepository{db: db}
	if err := repo.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// NewRunHistoryRepository wraps an existing connection.
func NewRunHistoryRepository(db *sqlx.DB) *RunHistoryRepository {
	return &RunHistoryRepository{db: db}
}

func (r *RunHistoryRepository) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS analysis_runs (
			id         TEXT PRIMARY KEY,
			kind       TEXT NOT NULL,
			params     TEXT NOT NULL DEFAULT '{}',
			summary    TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return errors.Wrap(err, "failed to create analysis_runs table")
	}
	return nil
}

type runRow struct {
	ID        string    `db:"id"`
	Kind      string    `db:"kind"`
	Params    string    `db:"params"`
	Summary   string    `db:"summary"`
	CreatedAt time.Time `db:"created_at"`
}

// Record inserts one completed run.
func (r *RunHistoryRepository) Record(ctx context.Context, run dashboard.Run) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO analysis_runs (id, kind, params, summary, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, run.ID.String(), string(run.Kind), run.Params, run.Summary, run.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to record analysis run")
	}
	return nil
}

// Recent returns the newest runs, most recent first.
func (r *RunHistoryRepository) Recent(ctx context.Context, limit int) ([]dashboard.Run, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows []runRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, kind, params, summary, created_at
		FROM analysis_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list analysis runs")
	}

	runs := make([]dashboard.Run, len(rows))
	for i, row := range rows {
		runs[i] = dashboard.Run{
			ID:        core.RunID(row.ID),
			Kind:      dashboard.AnalysisKind(row.Kind),
			Params:    row.Params,
			Summary:   row.Summary,
			CreatedAt: row.CreatedAt,
		}
	}
	return runs, nil
}

// Close releases the underlying connection pool.
func (r *RunHistoryRepository) Close() error {
	return r.db.Close()
}
