package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/autoimport/internal/config"
	"github.com/JonMunkholm/autoimport/internal/core"
	"github.com/JonMunkholm/autoimport/internal/docstore"
	"github.com/JonMunkholm/autoimport/internal/docstore/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const carsCSV = "make,fuelType,price\nToyota,gas,15000\nHonda,gas,18000\n"

type testEnv struct {
	server *Server
	store  *memstore.Store
	cfg    *config.Config
}

func newTestEnv(t *testing.T, env map[string]string) *testEnv {
	t.Helper()

	vars := map[string]string{
		"STORE_DRIVER":       "memory",
		"RATE_LIMIT_ENABLED": "false",
		"IMPORT_UPLOAD_DIR":  t.TempDir(),
	}
	for k, v := range env {
		vars[k] = v
	}
	cfg, err := config.LoadFrom(func(k string) string { return vars[k] })
	require.NoError(t, err)

	store := memstore.New()
	svc, err := core.NewService(store, core.Options{
		Collection: cfg.Store.Collection,
		BatchSize:  cfg.Import.BatchSize,
		Fields:     core.NewFieldSet("price"),
	})
	require.NoError(t, err)

	s := NewServer(svc, cfg)
	t.Cleanup(func() { s.Shutdown(t.Context()) })
	return &testEnv{server: s, store: store, cfg: cfg}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) uploadDirEntries(t *testing.T) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(e.cfg.Import.UploadDir)
	require.NoError(t, err)
	return entries
}

func importRequest(t *testing.T, csv string, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if csv != "" {
		part, err := mw.CreateFormFile("file", "cars.csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(csv))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	_, err := time.Parse(time.RFC3339, body["timestamp"].(string))
	assert.NoError(t, err)
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestImport_Success(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(importRequest(t, carsCSV, nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Successfully imported 2 cars", body["message"])
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, float64(2), body["importedCount"])
	assert.Equal(t, "success", body["status"])
	assert.NotEmpty(t, body["importId"])

	assert.Empty(t, env.uploadDirEntries(t), "spooled upload must be removed")

	n, err := env.store.Collection("cars").Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestImport_MaxIntBatchSize(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(importRequest(t, carsCSV, map[string]string{"batchSize": strconv.Itoa(math.MaxInt)}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(2), decode(t, rec)["importedCount"])
	assert.Empty(t, env.uploadDirEntries(t))
}

func TestImport_CastsNumericFields(t *testing.T) {
	env := newTestEnv(t, nil)

	require.Equal(t, http.StatusOK, env.do(importRequest(t, carsCSV, nil)).Code)

	refs, err := env.store.Collection("cars").DocumentRefs(t.Context())
	require.NoError(t, err)
	require.Len(t, refs, 2)

	prices := map[any]bool{}
	for _, ref := range refs {
		doc, ok := env.store.Get(ref)
		require.True(t, ok)
		prices[doc["price"]] = true
		assert.Equal(t, "gas", doc["fuelType"])
	}
	assert.Equal(t, map[any]bool{15000.0: true, 18000.0: true}, prices)
}

func TestImport_Failures(t *testing.T) {
	tests := []struct {
		name       string
		csv        string
		fields     map[string]string
		wantStatus int
		wantCode   string
	}{
		{"no file", "", nil, http.StatusBadRequest, "FILE004"},
		{"zero batch size", carsCSV, map[string]string{"batchSize": "0"}, http.StatusBadRequest, "VAL008"},
		{"non-numeric batch size", carsCSV, map[string]string{"batchSize": "many"}, http.StatusBadRequest, "VAL008"},
		{"malformed row", "make,price\nToyota\n", nil, http.StatusBadRequest, "VAL007"},
		{"bad quoting", "make,price\n\"Toyota,15000\n", nil, http.StatusBadRequest, "FILE002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)

			rec := env.do(importRequest(t, tt.csv, tt.fields))

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, "Failed to import data", body["error"])
			assert.Equal(t, tt.wantCode, body["code"])
			assert.Equal(t, "failure", body["status"])
			assert.Equal(t, float64(0), body["importedCount"])
			assert.NotEmpty(t, body["details"])

			assert.Empty(t, env.uploadDirEntries(t))
		})
	}
}

func TestImport_NotMultipart(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(carsCSV))
	req.Header.Set("Content-Type", "text/csv")
	rec := env.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FILE004", decode(t, rec)["code"])
}

func TestImport_PartialWrite(t *testing.T) {
	env := newTestEnv(t, nil)
	commits := 0
	env.store.CommitHook = func([]docstore.Op) error {
		commits++
		if commits == 2 {
			return errors.New("quota exceeded")
		}
		return nil
	}

	csv := "make,price\nA,1\nB,2\nC,3\n"
	rec := env.do(importRequest(t, csv, map[string]string{"batchSize": "1"}))

	require.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "IMP002", body["code"])
	assert.Equal(t, float64(1), body["importedCount"])
	assert.NotEmpty(t, body["importId"])
	assert.Equal(t, 2, commits, "no commit after the failing one")
	assert.Empty(t, env.uploadDirEntries(t))
}

func TestImport_TooLarge(t *testing.T) {
	env := newTestEnv(t, map[string]string{"IMPORT_MAX_FILE_SIZE": "256"})

	rec := env.do(importRequest(t, carsCSV+strings.Repeat("Mazda,gas,9000\n", 100), nil))

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	assert.Equal(t, "FILE001", decode(t, rec)["code"])
}

func TestStatsAndDelete(t *testing.T) {
	env := newTestEnv(t, nil)

	require.Equal(t, http.StatusOK, env.do(importRequest(t, carsCSV, nil)).Code)
	require.Equal(t, http.StatusOK, env.do(importRequest(t, carsCSV, nil)).Code)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"success": true, "count": float64(4)}, decode(t, rec))

	rec = env.do(httptest.NewRequest(http.MethodDelete, "/api/cars", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"success": true, "message": "Deleted 4 cars", "count": float64(4)}, decode(t, rec))

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, float64(0), decode(t, rec)["count"])
}

func TestStats_StoreClosed(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.store.Close())

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "DB008", body["code"])
}

func TestImportQueueStatus(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/imports/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(0), body["active"])
	assert.Equal(t, float64(core.DefaultMaxConcurrentImports), body["max_concurrent"])
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t, nil)
	require.Equal(t, http.StatusOK, env.do(importRequest(t, carsCSV, nil)).Code)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `<strong id="count">2</strong>`)
	assert.Contains(t, rec.Body.String(), `action="/api/import"`)
}

func TestAPIKeyRequired(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"REQUIRE_API_KEY": "true",
		"API_KEYS":        "secret",
	})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, env.do(req).Code)

	assert.Equal(t, http.StatusOK, env.do(httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"RATE_LIMIT_ENABLED":             "true",
		"RATE_LIMIT_REQUESTS_PER_MINUTE": "1",
		"RATE_LIMIT_BURST":               "1",
	})

	assert.Equal(t, http.StatusOK, env.do(httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	assert.Equal(t, http.StatusTooManyRequests, env.do(httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/import", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := env.do(req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errNoFile, http.StatusBadRequest},
		{core.ErrInvalidBatchSize, http.StatusBadRequest},
		{&core.ParseError{Line: 1, Err: errors.New("bad quote")}, http.StatusBadRequest},
		{&core.MalformedRowError{Row: 1, Line: 2, Want: 2, Got: 1}, http.StatusBadRequest},
		{core.ErrTooManyImports, http.StatusServiceUnavailable},
		{&core.WriteError{Batch: 0, Err: errors.New("boom")}, http.StatusBadGateway},
		{&core.IOError{Op: "read", Path: "x", Err: os.ErrNotExist}, http.StatusInternalServerError},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{errors.New("other"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestParseBatchSize(t *testing.T) {
	n, err := parseBatchSize("")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = parseBatchSize(" 250 ")
	require.NoError(t, err)
	assert.Equal(t, 250, n)

	for _, bad := range []string{"0", "-5", "1.5", "abc"} {
		_, err := parseBatchSize(bad)
		assert.ErrorIs(t, err, core.ErrInvalidBatchSize, bad)
	}
}
