package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const remoteSchema = `
CREATE TABLE IF NOT EXISTS remote_documents (
    collection TEXT        NOT NULL,
    id         TEXT        NOT NULL,
    doc        JSONB       NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (collection, id)
);`

// PostgresRemote implements RemoteStore on PostgreSQL. Merge semantics use
// the JSONB concatenation operator, so field preservation happens inside the
// database in one statement.
type PostgresRemote struct {
	pool *pgxpool.Pool
}

// NewPostgresRemote constructs a PostgresRemote and ensures its table
// exists.
func NewPostgresRemote(ctx context.Context, pool *pgxpool.Pool) (*PostgresRemote, error) {
	if _, err := pool.Exec(ctx, remoteSchema); err != nil {
		return nil, fmt.Errorf("postgres remote: migrate: %w", wrapPgErr(err))
	}
	return &PostgresRemote{pool: pool}, nil
}

// GetAll returns every document in the collection.
func (p *PostgresRemote) GetAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	rows, err := p.pool.Query(ctx, `SELECT doc FROM remote_documents WHERE collection = $1`, collection)
	if err != nil {
		return nil, fmt.Errorf("postgres remote: get all %s: %w", collection, wrapPgErr(err))
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("postgres remote: scan %s: %w", collection, err)
		}
		docs = append(docs, json.RawMessage(doc))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres remote: get all %s: %w", collection, wrapPgErr(err))
	}
	return docs, nil
}

// Set upserts a document. With merge set, existing fields absent from doc
// are preserved via JSONB concatenation.
func (p *PostgresRemote) Set(ctx context.Context, collection, id string, doc map[string]any, merge bool) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("postgres remote: marshal %s/%s: %w", collection, id, err)
	}
	query := `
INSERT INTO remote_documents (collection, id, doc) VALUES ($1, $2, $3)
ON CONFLICT (collection, id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`
	if merge {
		query = `
INSERT INTO remote_documents (collection, id, doc) VALUES ($1, $2, $3)
ON CONFLICT (collection, id) DO UPDATE SET doc = remote_documents.doc || EXCLUDED.doc, updated_at = now()`
	}
	if _, err := p.pool.Exec(ctx, query, collection, id, data); err != nil {
		return fmt.Errorf("postgres remote: set %s/%s: %w", collection, id, wrapPgErr(err))
	}
	return nil
}

// Ping reports server reachability.
func (p *PostgresRemote) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// wrapPgErr surfaces the SQLSTATE code for server-side failures, which plain
// error strings omit.
func wrapPgErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s (SQLSTATE %s)", pgErr.Message, pgErr.Code)
	}
	return err
}
