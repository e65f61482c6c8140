package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Collection names used by the data layer. Every persisted record lives in
// exactly one collection and is addressed by its entity id.
const (
	CollectionProducts         = "products"
	CollectionSales            = "sales"
	CollectionInventoryChanges = "inventoryChanges"
	CollectionSettings         = "settings"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("store: record not found")

// schemaVersions tags each record with the serialization version of its
// collection so fields can be added additively later.
var schemaVersions = map[string]int{
	CollectionProducts:         1,
	CollectionSales:            1,
	CollectionInventoryChanges: 1,
	CollectionSettings:         1,
}

const schema = `
CREATE TABLE IF NOT EXISTS records (
    collection     TEXT    NOT NULL,
    id             TEXT    NOT NULL,
    schema_version INTEGER NOT NULL DEFAULT 1,
    doc            TEXT    NOT NULL,
    PRIMARY KEY (collection, id)
);`

// Store is the embedded local persistence layer. Records are flat JSON
// documents keyed by (collection, id). Reads and writes are atomic at the
// single-record granularity; there are no multi-record transactions.
type Store struct {
	db *sqlx.DB
}

// Open connects to the SQLite database at dsn and runs the idempotent
// migration. Safe to call once at startup before any other component
// touches the store.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	// modernc sqlite handles are not safe for concurrent writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put upserts v into the collection under id, overwriting any existing record.
func (s *Store) Put(ctx context.Context, collection, id string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: marshal %s/%s: %w", collection, id, err)
	}
	const query = `
INSERT INTO records (collection, id, schema_version, doc) VALUES (?, ?, ?, ?)
ON CONFLICT (collection, id) DO UPDATE SET doc = excluded.doc, schema_version = excluded.schema_version`
	if _, err := s.db.ExecContext(ctx, query, collection, id, schemaVersions[collection], string(doc)); err != nil {
		return fmt.Errorf("store: put %s/%s: %w", collection, id, err)
	}
	return nil
}

// Get loads the record id from collection into dest. Returns ErrNotFound
// when no such record exists.
func (s *Store) Get(ctx context.Context, collection, id string, dest any) error {
	var doc string
	err := s.db.GetContext(ctx, &doc, `SELECT doc FROM records WHERE collection = ? AND id = ?`, collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("store: get %s/%s: %w", collection, id, err)
	}
	if err := json.Unmarshal([]byte(doc), dest); err != nil {
		return fmt.Errorf("store: unmarshal %s/%s: %w", collection, id, err)
	}
	return nil
}

// GetAll returns the raw documents of every record in the collection.
// Iteration order is unspecified and must not be relied upon.
func (s *Store) GetAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	var rows []string
	if err := s.db.SelectContext(ctx, &rows, `SELECT doc FROM records WHERE collection = ?`, collection); err != nil {
		return nil, fmt.Errorf("store: get all %s: %w", collection, err)
	}
	docs := make([]json.RawMessage, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, json.RawMessage(row))
	}
	return docs, nil
}

// Count returns the number of records in the collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM records WHERE collection = ?`, collection); err != nil {
		return 0, fmt.Errorf("store: count %s: %w", collection, err)
	}
	return n, nil
}

type settingRecord struct {
	Value string `json:"value"`
}

// PutSetting stores a free-form string value in the settings collection.
func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	return s.Put(ctx, CollectionSettings, key, settingRecord{Value: value})
}

// GetSetting loads a free-form setting. Returns ErrNotFound when unset.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var rec settingRecord
	if err := s.Get(ctx, CollectionSettings, key, &rec); err != nil {
		return "", err
	}
	return rec.Value, nil
}
