package core

import (
	"errors"
	"fmt"
)

// ErrInvalidBatchSize is returned when a batch size is zero or negative.
var ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

// IOError reports that the import source could not be read.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ParseError reports CSV text that cannot be tokenized (unterminated or
// stray quotes). Err is the tokenizer's own error.
type ParseError struct {
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid csv at line %d, column %d: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MalformedRowError reports a data row whose field count differs from the
// header. Row is the 1-based index among data rows, Line the source line.
type MalformedRowError struct {
	Row  int
	Line int
	Want int
	Got  int
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row %d (line %d): expected %d fields, got %d",
		e.Row, e.Line, e.Want, e.Got)
}

// WriteError reports a batch the store rejected. Committed is the number of
// records durably written by earlier batches; nothing after Batch was tried.
type WriteError struct {
	Batch     int
	Committed int
	Err       error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write batch %d failed after %d records committed: %v",
		e.Batch, e.Committed, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// CommittedCount returns how many records were committed before err stopped
// an import, or 0 if err carries no such information.
func CommittedCount(err error) int {
	var we *WriteError
	if errors.As(err, &we) {
		return we.Committed
	}
	return 0
}
