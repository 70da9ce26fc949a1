// Package sqlitestore implements docstore.Store on an embedded SQLite file.
//
// Documents are stored as JSON text in a single table keyed by
// (collection, id). Each batch commit runs in one SQL transaction.
package sqlitestore

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/autoimport/internal/docstore"
	"github.com/oklog/ulid/v2"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	data TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY(collection, id)
);
`

const (
	upsertDocSQL = `
INSERT INTO documents (collection, id, data, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(collection, id) DO UPDATE SET data=excluded.data;
`
	deleteDocSQL = `DELETE FROM documents WHERE collection = ? AND id = ?`
	countDocsSQL = `SELECT COUNT(*) FROM documents WHERE collection = ?`
	listDocsSQL  = `SELECT id FROM documents WHERE collection = ? ORDER BY id`
)

// Store is a SQLite-backed document store.
type Store struct {
	db *sql.DB

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Open opens (or creates) the SQLite database at path with WAL mode enabled
// and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing database handle. Call Migrate before first use if
// the schema may be missing.
func New(db *sql.DB) *Store {
	return &Store{
		db:      db,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Migrate creates the documents table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Collection implements docstore.Store.
func (s *Store) Collection(name string) docstore.Collection {
	return &collection{store: s, name: name}
}

// NewBatch implements docstore.Store.
func (s *Store) NewBatch() docstore.Batch {
	return &batch{store: s}
}

func (s *Store) newID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return ulid.MustNew(ulid.Now(), s.entropy).String()
}

type collection struct {
	store *Store
	name  string
}

func (c *collection) Name() string { return c.name }

func (c *collection) NewDoc() docstore.DocRef {
	return docstore.DocRef{Collection: c.name, ID: c.store.newID()}
}

func (c *collection) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := c.store.db.QueryRowContext(ctx, countDocsSQL, c.name).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", c.name, err)
	}
	return n, nil
}

func (c *collection) DocumentRefs(ctx context.Context) ([]docstore.DocRef, error) {
	rows, err := c.store.db.QueryContext(ctx, listDocsSQL, c.name)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.name, err)
	}
	defer rows.Close()

	var refs []docstore.DocRef
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan document id: %w", err)
		}
		refs = append(refs, docstore.DocRef{Collection: c.name, ID: id})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return refs, nil
}

type batch struct {
	docstore.Ops
	store *Store
}

func (b *batch) Commit(ctx context.Context) error {
	if err := b.MarkCommitted(); err != nil {
		return err
	}

	tx, err := b.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for i, op := range b.List() {
		switch op.Kind {
		case docstore.OpSet:
			data, err := json.Marshal(op.Data)
			if err != nil {
				return fmt.Errorf("encode document %s: %w", op.Ref.ID, err)
			}
			if _, err := tx.ExecContext(ctx, upsertDocSQL, op.Ref.Collection, op.Ref.ID, string(data), now); err != nil {
				return fmt.Errorf("write %d (%s): %w", i, op.Ref.ID, err)
			}
		case docstore.OpDelete:
			if _, err := tx.ExecContext(ctx, deleteDocSQL, op.Ref.Collection, op.Ref.ID); err != nil {
				return fmt.Errorf("delete %d (%s): %w", i, op.Ref.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Get loads one document. It is used by tests and diagnostics; the import
// path never reads documents back.
func (s *Store) Get(ctx context.Context, ref docstore.DocRef) (map[string]any, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`,
		ref.Collection, ref.ID,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", ref.ID, err)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, false, fmt.Errorf("decode document %s: %w", ref.ID, err)
	}
	return doc, true, nil
}
