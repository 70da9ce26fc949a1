// Package pgstore implements docstore.Store on PostgreSQL.
//
// Documents live in a single jsonb table keyed by (collection, id). A batch
// commit opens one transaction and pipelines every queued write through a
// pgx.Batch, so a batch of 500 inserts costs one round trip.
package pgstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/JonMunkholm/autoimport/internal/docstore"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of *pgxpool.Pool the store needs.
type DBTX interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
)`

const (
	upsertDocSQL = `
INSERT INTO documents (collection, id, data)
VALUES ($1, $2, $3::jsonb)
ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data`
	deleteDocSQL = `DELETE FROM documents WHERE collection = $1 AND id = $2`
	countDocsSQL = `SELECT COUNT(*) FROM documents WHERE collection = $1`
	listDocsSQL  = `SELECT id FROM documents WHERE collection = $1 ORDER BY created_at, id`
)

// Store is a PostgreSQL-backed document store.
type Store struct {
	db    DBTX
	close func()
}

// New wraps a connection pool. closeFn, if non-nil, is called by Close;
// pass pool.Close to hand ownership of the pool to the store.
func New(db DBTX, closeFn func()) *Store {
	return &Store{db: db, close: closeFn}
}

// Migrate creates the documents table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Close implements docstore.Store.
func (s *Store) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}

// Collection implements docstore.Store.
func (s *Store) Collection(name string) docstore.Collection {
	return &collection{store: s, name: name}
}

// NewBatch implements docstore.Store.
func (s *Store) NewBatch() docstore.Batch {
	return &batch{store: s}
}

type collection struct {
	store *Store
	name  string
}

func (c *collection) Name() string { return c.name }

func (c *collection) NewDoc() docstore.DocRef {
	return docstore.DocRef{Collection: c.name, ID: uuid.New().String()}
}

func (c *collection) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := c.store.db.QueryRow(ctx, countDocsSQL, c.name).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", c.name, err)
	}
	return n, nil
}

func (c *collection) DocumentRefs(ctx context.Context) ([]docstore.DocRef, error) {
	rows, err := c.store.db.Query(ctx, listDocsSQL, c.name)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.name, err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan document ids: %w", err)
	}

	refs := make([]docstore.DocRef, len(ids))
	for i, id := range ids {
		refs[i] = docstore.DocRef{Collection: c.name, ID: id}
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

	ops := b.List()
	queued := &pgx.Batch{}
	for _, op := range ops {
		switch op.Kind {
		case docstore.OpSet:
			data, err := json.Marshal(op.Data)
			if err != nil {
				return fmt.Errorf("encode document %s: %w", op.Ref.ID, err)
			}
			queued.Queue(upsertDocSQL, op.Ref.Collection, op.Ref.ID, string(data))
		case docstore.OpDelete:
			queued.Queue(deleteDocSQL, op.Ref.Collection, op.Ref.ID)
		}
	}

	tx, err := b.store.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	results := tx.SendBatch(ctx, queued)
	for i := range ops {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("write %d (%s): %w", i, ops[i].Ref.ID, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
