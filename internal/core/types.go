package core

import "time"

// Record is one parsed CSV row keyed by header column name.
// Values are float64 for cast numeric fields and string otherwise.
type Record map[string]any

// ImportPhase indicates the current stage of an import.
//
//	idle -> loading -> parsing -> writing -> completed
//	             \          \          \
//	              +----------+----------+--> failed
type ImportPhase string

const (
	PhaseIdle      ImportPhase = "idle"
	PhaseLoading   ImportPhase = "loading"
	PhaseParsing   ImportPhase = "parsing"
	PhaseWriting   ImportPhase = "writing"
	PhaseCompleted ImportPhase = "completed"
	PhaseFailed    ImportPhase = "failed"
)

// Terminal reports whether no further transition can follow p.
func (p ImportPhase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// ImportStatus is the terminal outcome reported to callers.
type ImportStatus string

const (
	StatusSuccess ImportStatus = "success"
	StatusFailure ImportStatus = "failure"
)

// ImportRequest describes one import invocation.
type ImportRequest struct {
	// Path is the CSV file to load.
	Path string

	// FileName is the user-facing name (e.g. the uploaded file name).
	// Defaults to the base name of Path.
	FileName string

	// Transient marks Path as a temporary upload artifact. The service
	// removes it once the import reaches a terminal state.
	Transient bool

	// BatchSize overrides the configured batch size when non-zero. A
	// negative value fails the import with ErrInvalidBatchSize.
	BatchSize int

	// OnProgress, if set, is called on every phase change and after each
	// committed batch. It runs on the import goroutine.
	OnProgress ProgressCallback
}

// ImportProgress is a snapshot of a running import.
type ImportProgress struct {
	ImportID  string
	FileName  string
	Phase     ImportPhase
	Parsed    int
	Committed int
	Batches   int
}

// ProgressCallback is called periodically during import processing.
type ProgressCallback func(ImportProgress)

// ImportResult contains the final result of an import operation.
type ImportResult struct {
	ImportID  string        `json:"importId"`
	FileName  string        `json:"fileName,omitempty"`
	Parsed    int           `json:"parsedCount"`
	Committed int           `json:"importedCount"`
	Batches   int           `json:"batches"`
	Status    ImportStatus  `json:"status"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"-"`
}

// BatchCommit describes one successfully committed batch.
type BatchCommit struct {
	Index     int // 0-based position in the batch sequence
	Size      int // records in this batch
	Committed int // running total including this batch
	Total     int // records being written overall
}
