package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/JonMunkholm/autoimport/internal/core"
)

// multipartMemory is how much of a multipart form is held in memory before
// the rest spills to temporary files.
const multipartMemory = 10 << 20

var errNoFile = errors.New("no file provided")

// importResponse is returned by a successful POST /api/import.
type importResponse struct {
	Success       bool              `json:"success"`
	Message       string            `json:"message"`
	Count         int               `json:"count"`
	ImportedCount int               `json:"importedCount"`
	Status        core.ImportStatus `json:"status"`
	ImportID      string            `json:"importId"`
}

// handleImport imports an uploaded CSV file.
//
// The upload is spooled into the upload directory and handed to the service
// as a transient file, so it is gone once the import returns. The import is
// detached from the request: a client that disconnects does not abort a
// half-written import, which is bounded by IMPORT_TIMEOUT instead.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if !errors.As(err, &tooLarge) {
			err = fmt.Errorf("%w: %v", errNoFile, err)
		}
		s.respondImportError(w, r, err, nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondImportError(w, r, errNoFile, nil)
		return
	}
	defer file.Close()

	batchSize, err := parseBatchSize(r.FormValue("batchSize"))
	if err != nil {
		s.respondImportError(w, r, err, nil)
		return
	}

	path, err := s.spool(file)
	if err != nil {
		s.respondImportError(w, r, err, nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.cfg.Import.Timeout)
	defer cancel()
	ctx = WithRequestMetadata(ctx, r)

	res, err := s.service.Import(ctx, core.ImportRequest{
		Path:      path,
		FileName:  header.Filename,
		Transient: true,
		BatchSize: batchSize,
	})
	if err != nil {
		s.respondImportError(w, r, err, res)
		return
	}

	writeJSON(w, importResponse{
		Success:       true,
		Message:       fmt.Sprintf("Successfully imported %d %s", res.Committed, s.service.Collection()),
		Count:         res.Committed,
		ImportedCount: res.Committed,
		Status:        res.Status,
		ImportID:      res.ImportID,
	})
}

// parseBatchSize reads the optional batchSize form value. Empty means the
// service default.
func parseBatchSize(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("batchSize %q: %w", v, core.ErrInvalidBatchSize)
	}
	return n, nil
}

// spool copies an uploaded file into the upload directory and returns its
// path. The caller owns the file.
func (s *Server) spool(src multipart.File) (string, error) {
	dir := s.cfg.Import.UploadDir
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", &core.IOError{Op: "create upload dir", Path: dir, Err: err}
	}

	dst, err := os.CreateTemp(dir, "import-*.csv")
	if err != nil {
		return "", &core.IOError{Op: "create", Path: dir, Err: err}
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", &core.IOError{Op: "write", Path: dst.Name(), Err: err}
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", &core.IOError{Op: "write", Path: dst.Name(), Err: err}
	}
	return dst.Name(), nil
}
