// Package core provides the business logic for CSV import operations.
//
// The package is independent of any transport. The HTTP server, the
// importcsv command and the tests all drive the same [Service].
//
// # Pipeline
//
// An import runs three stages, each finishing before the next starts:
//
//  1. [LoadFile] reads the whole file into memory, dropping a UTF-8 BOM and
//     replacing invalid bytes with U+FFFD.
//  2. [ParseRecords] turns the text into [Record] values keyed by header
//     column. Values are trimmed and passed through [CastValue], which turns
//     members of the numeric [FieldSet] into float64 when they parse and
//     leaves everything else as text.
//  3. [BatchWriter] partitions the records into groups of the batch size
//     (default 500) and commits each group as one atomic docstore batch,
//     in order, stopping at the first failure.
//
// [Service.Import] drives the stages, reports phase changes
// (idle, loading, parsing, writing, then completed or failed) and removes
// transient upload files once the import ends.
//
// # Errors
//
// Each stage fails with its own type: [IOError], [ParseError],
// [MalformedRowError] and [WriteError]. They reach the caller unwrapped by
// the service, so errors.As works on the returned error. A WriteError
// carries how many records earlier batches committed; nothing is rolled
// back and nothing is retried.
//
// [MapError] turns any of these into a [UserMessage] with a support code.
//
// # Concurrency
//
// An [ImportLimiter] caps how many imports run at once and rejects with
// [ErrTooManyImports] after a wait. Imports that do run together are not
// isolated; their batches may interleave in the store.
package core
