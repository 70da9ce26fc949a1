package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/autoimport/internal/docstore"
)

// DefaultBatchSize is the number of records per atomic write.
const DefaultBatchSize = 500

// Partition splits records into consecutive groups of at most size records.
// Order is preserved within and across groups; only the last group may be
// short.
func Partition(records []Record, size int) ([][]Record, error) {
	if size <= 0 {
		return nil, ErrInvalidBatchSize
	}

	n := len(records) / size
	if len(records)%size != 0 {
		n++
	}

	groups := make([][]Record, 0, n)
	for start := 0; start < len(records); {
		end := start + min(size, len(records)-start)
		groups = append(groups, records[start:end])
		start = end
	}
	return groups, nil
}

// BatchWriter writes records to one collection in fixed-size atomic batches.
type BatchWriter struct {
	store      docstore.Store
	collection docstore.Collection
	size       int
	logger     *slog.Logger

	// OnCommit, if set, is called after every successful batch commit.
	OnCommit func(BatchCommit)
}

// NewBatchWriter creates a writer for the named collection.
func NewBatchWriter(store docstore.Store, collection string, size int) (*BatchWriter, error) {
	if size <= 0 {
		return nil, ErrInvalidBatchSize
	}
	return &BatchWriter{
		store:      store,
		collection: store.Collection(collection),
		size:       size,
		logger:     slog.Default(),
	}, nil
}

// WithLogger returns a copy of w that logs through logger.
func (w *BatchWriter) WithLogger(logger *slog.Logger) *BatchWriter {
	c := *w
	c.logger = logger
	return &c
}

// Size returns the configured batch size.
func (w *BatchWriter) Size() int { return w.size }

// Write commits records in order, one batch at a time, and returns how many
// were committed. The first failed commit stops the write: earlier batches
// stay committed, later ones are never attempted, and the error is a
// *WriteError carrying the committed count.
func (w *BatchWriter) Write(ctx context.Context, records []Record) (int, error) {
	groups, err := Partition(records, w.size)
	if err != nil {
		return 0, err
	}

	committed := 0
	for i, group := range groups {
		batch := w.store.NewBatch()
		for _, rec := range group {
			batch.Set(w.collection.NewDoc(), rec)
		}

		if err := batch.Commit(ctx); err != nil {
			w.logger.Error("batch commit failed",
				"batch", i,
				"size", len(group),
				"committed", committed,
				"error", err,
			)
			return committed, &WriteError{Batch: i, Committed: committed, Err: err}
		}

		committed += len(group)
		w.logger.Debug("batch committed",
			"batch", i,
			"size", len(group),
			"committed", committed,
			"total", len(records),
		)
		if w.OnCommit != nil {
			w.OnCommit(BatchCommit{Index: i, Size: len(group), Committed: committed, Total: len(records)})
		}
	}

	return committed, nil
}

// DeleteAll removes every document in the collection, in batches of the
// writer's size, and returns how many were deleted.
func (w *BatchWriter) DeleteAll(ctx context.Context) (int, error) {
	refs, err := w.collection.DocumentRefs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", w.collection.Name(), err)
	}

	deleted := 0
	for i, start := 0, 0; start < len(refs); i++ {
		end := start + min(w.size, len(refs)-start)
		chunk := refs[start:end]
		start = end

		batch := w.store.NewBatch()
		for _, ref := range chunk {
			batch.Delete(ref)
		}
		if err := batch.Commit(ctx); err != nil {
			return deleted, &WriteError{Batch: i, Committed: deleted, Err: err}
		}
		deleted += len(chunk)
	}

	w.logger.Info("collection cleared", "collection", w.collection.Name(), "deleted", deleted)
	return deleted, nil
}
