// Package memstore is an in-memory implementation of docstore.Store.
package memstore

import (
	"context"
	"crypto/rand"
	"sort"
	"sync"

	"github.com/JonMunkholm/autoimport/internal/docstore"
	"github.com/oklog/ulid/v2"
)

// Store keeps every collection in process memory.
type Store struct {
	mu          sync.RWMutex
	closed      bool
	collections map[string]map[string]map[string]any

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy

	// CommitHook, when set, runs before each commit is applied. A non-nil
	// return aborts the commit with that error and leaves the store unchanged.
	CommitHook func(ops []docstore.Op) error
}

// New creates an empty store.
func New() *Store {
	return &Store{
		collections: make(map[string]map[string]map[string]any),
		entropy:     ulid.Monotonic(rand.Reader, 0),
	}
}

// Close implements docstore.Store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
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

// Get returns a copy of a stored document.
func (s *Store) Get(ref docstore.DocRef) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[ref.Collection][ref.ID]
	if !ok {
		return nil, false
	}
	return copyDoc(doc), true
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
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	if c.store.closed {
		return 0, docstore.ErrClosed
	}
	return int64(len(c.store.collections[c.name])), nil
}

func (c *collection) DocumentRefs(ctx context.Context) ([]docstore.DocRef, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	if c.store.closed {
		return nil, docstore.ErrClosed
	}

	docs := c.store.collections[c.name]
	refs := make([]docstore.DocRef, 0, len(docs))
	for id := range docs {
		refs = append(refs, docstore.DocRef{Collection: c.name, ID: id})
	}
	// ULIDs sort by creation time
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
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
	if err := ctx.Err(); err != nil {
		return err
	}

	s := b.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return docstore.ErrClosed
	}
	if s.CommitHook != nil {
		if err := s.CommitHook(b.List()); err != nil {
			return err
		}
	}

	for _, op := range b.List() {
		docs := s.collections[op.Ref.Collection]
		switch op.Kind {
		case docstore.OpSet:
			if docs == nil {
				docs = make(map[string]map[string]any)
				s.collections[op.Ref.Collection] = docs
			}
			docs[op.Ref.ID] = copyDoc(op.Data)
		case docstore.OpDelete:
			delete(docs, op.Ref.ID)
		}
	}
	return nil
}

func copyDoc(d map[string]any) map[string]any {
	out := make(map[string]any, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
