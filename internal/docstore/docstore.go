// Package docstore defines the document store the importer writes to.
//
// A store is a set of named collections holding schemaless documents
// (map[string]any). Writes are grouped into batches; each batch commits
// atomically on its own, but nothing spans batches. Identity is assigned by
// the store through Collection.NewDoc, never by callers.
//
// Implementations live in subpackages:
//
//   - memstore: in-process maps, used by tests and STORE_DRIVER=memory
//   - sqlitestore: modernc.org/sqlite, one SQL transaction per batch
//   - pgstore: PostgreSQL via pgx, jsonb documents, one transaction per batch
package docstore

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a store that has been closed.
var ErrClosed = errors.New("store closed")

// Store is the entry point to a document database.
type Store interface {
	// Collection returns a handle to the named collection. Collections are
	// created implicitly on first write.
	Collection(name string) Collection

	// NewBatch starts an empty write batch.
	NewBatch() Batch

	Close() error
}

// Collection addresses a group of documents.
type Collection interface {
	Name() string

	// NewDoc allocates a reference with a fresh store-generated ID.
	// Nothing is written until the reference is used in a committed batch.
	NewDoc() DocRef

	// Count returns the number of documents currently in the collection.
	Count(ctx context.Context) (int64, error)

	// DocumentRefs lists references to every document in the collection.
	DocumentRefs(ctx context.Context) ([]DocRef, error)
}

// Batch accumulates writes and applies them in one atomic commit.
// A Batch must not be reused after Commit.
type Batch interface {
	Set(ref DocRef, data map[string]any)
	Delete(ref DocRef)

	// Len returns the number of queued writes.
	Len() int

	// Commit applies every queued write or none of them.
	Commit(ctx context.Context) error
}

// DocRef identifies a single document.
type DocRef struct {
	Collection string
	ID         string
}

// OpKind is the type of a queued batch write.
type OpKind int

const (
	OpSet OpKind = iota
	OpDelete
)

// Op is a single queued write. Backends share it so batch bookkeeping is
// identical across implementations.
type Op struct {
	Kind OpKind
	Ref  DocRef
	Data map[string]any
}

// Ops is an append-only list of queued writes, embedded by backend batches.
type Ops struct {
	list      []Op
	committed bool
}

// Set queues a create-or-replace of ref.
func (o *Ops) Set(ref DocRef, data map[string]any) {
	o.list = append(o.list, Op{Kind: OpSet, Ref: ref, Data: data})
}

// Delete queues removal of ref. Deleting a missing document is not an error.
func (o *Ops) Delete(ref DocRef) {
	o.list = append(o.list, Op{Kind: OpDelete, Ref: ref})
}

// Len returns the number of queued writes.
func (o *Ops) Len() int { return len(o.list) }

// List returns the queued writes in insertion order.
func (o *Ops) List() []Op { return o.list }

// MarkCommitted flags the batch as used. It returns ErrBatchCommitted when
// called twice.
func (o *Ops) MarkCommitted() error {
	if o.committed {
		return ErrBatchCommitted
	}
	o.committed = true
	return nil
}

// ErrBatchCommitted is returned when Commit is called on a used batch.
var ErrBatchCommitted = errors.New("batch already committed")
