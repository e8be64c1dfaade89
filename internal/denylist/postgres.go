package denylist

import (
	"context"
	"fmt"
	"time"

	"fjacquet/cfdi-sentinel/internal/database"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Ensure PostgresStore implements Writer.
var _ Writer = (*PostgresStore)(nil)

// Schema creates the denylist table.
const Schema = `
CREATE TABLE IF NOT EXISTS rfc_denylist (
	rfc           TEXT PRIMARY KEY,
	list          TEXT NOT NULL,
	situation     TEXT NOT NULL DEFAULT '',
	published_at  DATE,
	business_name TEXT NOT NULL DEFAULT '',
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// querier is the subset of *pgxpool.Pool the store uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PostgresStore keeps the denylist in PostgreSQL.
type PostgresStore struct {
	db querier
}

// NewPostgresStore wraps a pool.
func NewPostgresStore(db querier) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the table when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate denylist: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, rfc string) (Record, bool, error) {
	const query = `
		SELECT rfc, list, situation, published_at, business_name
		FROM rfc_denylist WHERE rfc = $1`
	var (
		r         Record
		list      string
		published *time.Time
	)
	err := s.db.QueryRow(ctx, query, NormalizeRFC(rfc)).Scan(&r.RFC, &list, &r.Situation, &published, &r.BusinessName)
	if err != nil {
		if database.IsNoRows(err) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("get denylist record: %w", err)
	}
	r.List = List(list)
	if published != nil {
		r.PublishedAt = *published
	}
	return r, true, nil
}

// Put upserts records in one batch.
func (s *PostgresStore) Put(ctx context.Context, records ...Record) error {
	if len(records) == 0 {
		return nil
	}
	const upsert = `
		INSERT INTO rfc_denylist (rfc, list, situation, published_at, business_name, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (rfc) DO UPDATE SET
			list = EXCLUDED.list,
			situation = EXCLUDED.situation,
			published_at = EXCLUDED.published_at,
			business_name = EXCLUDED.business_name,
			updated_at = now()`

	batch := &pgx.Batch{}
	for _, r := range records {
		var published *time.Time
		if !r.PublishedAt.IsZero() {
			p := r.PublishedAt
			published = &p
		}
		batch.Queue(upsert, NormalizeRFC(r.RFC), string(r.List), r.Situation, published, r.BusinessName)
	}

	br := s.db.SendBatch(ctx, batch)
	defer func() { _ = br.Close() }()
	for range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert denylist record: %w", err)
		}
	}
	return nil
}
