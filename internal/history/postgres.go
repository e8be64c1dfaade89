package history

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema creates the run history table. total_amount is read back as a
// decimal through the pgx-shopspring-decimal codec registered on the pool.
const Schema = `
CREATE TABLE IF NOT EXISTS validation_runs (
	id           UUID PRIMARY KEY,
	run_id       TEXT NOT NULL,
	company      TEXT NOT NULL DEFAULT '',
	label        TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	xml_count    INTEGER NOT NULL,
	usable_count INTEGER NOT NULL,
	alert_count  INTEGER NOT NULL,
	error_count  INTEGER NOT NULL,
	total_amount NUMERIC(18,2) NOT NULL
)`

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRecorder keeps run summaries in PostgreSQL.
type PostgresRecorder struct {
	db querier
}

// NewPostgresRecorder wraps a pool.
func NewPostgresRecorder(db querier) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

// Migrate creates the table when missing.
func (r *PostgresRecorder) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate history: %w", err)
	}
	return nil
}

// Record implements Recorder.
func (r *PostgresRecorder) Record(ctx context.Context, s Summary) error {
	id, err := uuid.Parse(s.ID)
	if err != nil {
		id = uuid.New()
	}
	const insert = `
		INSERT INTO validation_runs
			(id, run_id, company, label, created_at, xml_count, usable_count, alert_count, error_count, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = r.db.Exec(ctx, insert, id, s.RunID, s.Company, s.Label, s.CreatedAt,
		s.XMLCount, s.UsableCount, s.AlertCount, s.ErrorCount, s.TotalAmount)
	if err != nil {
		return fmt.Errorf("insert run summary: %w", err)
	}
	return nil
}

// List implements Lister.
func (r *PostgresRecorder) List(ctx context.Context, limit int) ([]Summary, error) {
	query := `
		SELECT id, run_id, company, label, created_at, xml_count, usable_count, alert_count, error_count, total_amount
		FROM validation_runs ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list run summaries: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			s  Summary
			id uuid.UUID
		)
		if err := rows.Scan(&id, &s.RunID, &s.Company, &s.Label, &s.CreatedAt,
			&s.XMLCount, &s.UsableCount, &s.AlertCount, &s.ErrorCount, &s.TotalAmount); err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}
		s.ID = id.String()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run summaries: %w", err)
	}
	return out, nil
}
