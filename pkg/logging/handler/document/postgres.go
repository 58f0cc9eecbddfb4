package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/buession/buession-logging-sub001/pkg/logging"
)

// PgxDB is the subset of *pgxpool.Pool used by PostgresIndex.
type PgxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresIndex stores documents in a JSONB table per collection. Collection
// names may be schema qualified ("audit.events").
type PostgresIndex struct {
	db PgxDB
}

// NewPostgresIndex wraps an already connected pool.
func NewPostgresIndex(db PgxDB) *PostgresIndex {
	return &PostgresIndex{db: db}
}

func (p *PostgresIndex) Exists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := p.db.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, identifier(name)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("lookup table: %w", err)
	}
	return exists, nil
}

func (p *PostgresIndex) Create(ctx context.Context, name string) error {
	table := identifier(name)
	indexName := pgx.Identifier{strings.ReplaceAll(name, ".", "_") + "_document_idx"}.Sanitize()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + table + ` (
			id          TEXT PRIMARY KEY,
			occurred_at TIMESTAMPTZ,
			document    JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ` + indexName + ` ON ` + table + ` USING GIN (document)`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

func (p *PostgresIndex) Save(ctx context.Context, name, id string, e *logging.Event) error {
	doc, err := e.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	var occurredAt any
	if t := e.OccurredAt(); !t.IsZero() {
		occurredAt = t
	}

	query := `INSERT INTO ` + identifier(name) + ` (id, occurred_at, document) VALUES ($1, $2, $3)`
	if _, err := p.db.Exec(ctx, query, id, occurredAt, doc); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func identifier(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}
