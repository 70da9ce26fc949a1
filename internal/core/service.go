package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/autoimport/internal/docstore"
	"github.com/JonMunkholm/autoimport/internal/logging"
	"github.com/google/uuid"
)

// DefaultCollection is the collection imports write to.
const DefaultCollection = "cars"

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	Collection    string
	BatchSize     int
	Fields        FieldSet
	MaxConcurrent int
	MaxWait       time.Duration
}

// Service runs imports against a document store.
type Service struct {
	store   docstore.Store
	opts    Options
	limiter *ImportLimiter
}

// NewService creates a Service writing to store.
func NewService(store docstore.Store, opts Options) (*Service, error) {
	if store == nil {
		return nil, errors.New("core: nil store")
	}
	if opts.BatchSize < 0 {
		return nil, fmt.Errorf("batch size %d: %w", opts.BatchSize, ErrInvalidBatchSize)
	}
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Fields == nil {
		opts.Fields = DefaultFieldSet()
	}

	return &Service{
		store:   store,
		opts:    opts,
		limiter: NewImportLimiter(opts.MaxConcurrent, opts.MaxWait),
	}, nil
}

// Collection returns the name of the target collection.
func (s *Service) Collection() string { return s.opts.Collection }

// BatchSize returns the default batch size.
func (s *Service) BatchSize() int { return s.opts.BatchSize }

// Fields returns the numeric field set used for casting.
func (s *Service) Fields() FieldSet { return s.opts.Fields }

// Import loads, parses and writes one CSV file, strictly in that order.
//
// The returned result is never nil. On failure it carries the committed
// count and the error is the failing stage's own error. When req.Transient
// is set the source file is removed before Import returns, whatever the
// outcome.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	start := time.Now()

	fileName := req.FileName
	if fileName == "" {
		fileName = filepath.Base(req.Path)
	}

	run := &importRun{
		progress: ImportProgress{
			ImportID: uuid.NewString(),
			FileName: fileName,
			Phase:    PhaseIdle,
		},
		notify: req.OnProgress,
	}
	run.logger = logging.ForImport(ctx, run.progress.ImportID, fileName).
		With(requestAttrs(ctx)...)

	if req.Transient {
		defer removeTransient(run, req.Path)
	}

	err := s.run(ctx, run, req)
	if err != nil {
		run.setPhase(PhaseFailed)
		run.logger.Error("import failed",
			"parsed", run.progress.Parsed,
			"committed", run.progress.Committed,
			"error", err,
		)
	} else {
		run.setPhase(PhaseCompleted)
		run.logger.Info("import completed",
			"imported", run.progress.Committed,
			"batches", run.progress.Batches,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	return run.result(err, time.Since(start)), err
}

func (s *Service) run(ctx context.Context, run *importRun, req ImportRequest) error {
	size := s.opts.BatchSize
	if req.BatchSize != 0 {
		size = req.BatchSize
	}
	writer, err := NewBatchWriter(s.store, s.opts.Collection, size)
	if err != nil {
		return err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return err
	}
	defer s.limiter.Release()

	run.setPhase(PhaseLoading)
	text, err := LoadFile(req.Path)
	if err != nil {
		return err
	}

	run.setPhase(PhaseParsing)
	records, err := ParseRecords(text, s.opts.Fields)
	if err != nil {
		return err
	}
	run.progress.Parsed = len(records)

	run.setPhase(PhaseWriting)
	writer = writer.WithLogger(run.logger)
	writer.OnCommit = func(c BatchCommit) {
		run.progress.Committed = c.Committed
		run.progress.Batches = c.Index + 1
		run.report()
	}

	committed, err := writer.Write(ctx, records)
	run.progress.Committed = committed
	return err
}

// Count returns the number of documents in the target collection.
func (s *Service) Count(ctx context.Context) (int64, error) {
	n, err := s.store.Collection(s.opts.Collection).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", s.opts.Collection, err)
	}
	return n, nil
}

// DeleteAll removes every document from the target collection.
func (s *Service) DeleteAll(ctx context.Context) (int, error) {
	writer, err := NewBatchWriter(s.store, s.opts.Collection, s.opts.BatchSize)
	if err != nil {
		return 0, err
	}
	return writer.WithLogger(logging.FromContext(ctx)).DeleteAll(ctx)
}

// LimiterStatus reports import slot occupancy.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until no import is running or ctx ends.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

type importRun struct {
	progress ImportProgress
	notify   ProgressCallback
	logger   *slog.Logger
}

func (r *importRun) setPhase(p ImportPhase) {
	if r.progress.Phase.Terminal() {
		return
	}
	r.progress.Phase = p
	r.logger.Debug("import phase", "phase", p)
	r.report()
}

func (r *importRun) report() {
	if r.notify != nil {
		r.notify(r.progress)
	}
}

func (r *importRun) result(err error, d time.Duration) *ImportResult {
	res := &ImportResult{
		ImportID:  r.progress.ImportID,
		FileName:  r.progress.FileName,
		Parsed:    r.progress.Parsed,
		Committed: r.progress.Committed,
		Batches:   r.progress.Batches,
		Status:    StatusSuccess,
		Duration:  d,
	}
	if err != nil {
		res.Status = StatusFailure
		res.Error = err.Error()
	}
	return res
}

func removeTransient(run *importRun, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		run.logger.Warn("remove transient file", "path", path, "error", err)
	}
}
