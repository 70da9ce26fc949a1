package web

import (
	"fmt"
	"net/http"

	"github.com/JonMunkholm/autoimport/internal/logging"
	"github.com/JonMunkholm/autoimport/internal/web/templates"
	"github.com/a-h/templ"
)

// handleDashboard renders the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := s.service.LimiterStatus()

	data := templates.DashboardData{
		Collection:    s.service.Collection(),
		BatchSize:     s.service.BatchSize(),
		MaxFileSize:   s.cfg.Import.MaxFileSize,
		NumericFields: s.service.Fields().Names(),
		ActiveImports: status.Active,
		MaxImports:    status.MaxConcurrent,
	}

	// The page still renders when the store is down.
	if n, err := s.service.Count(ctx); err != nil {
		logging.FromContext(ctx).Warn("dashboard count failed", "error", err)
		data.CountErr = true
	} else {
		data.Count = n
	}

	templ.Handler(templates.Dashboard(data)).ServeHTTP(w, r)
}

// statsResponse is returned by GET /api/stats.
type statsResponse struct {
	Success bool  `json:"success"`
	Count   int64 `json:"count"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	n, err := s.service.Count(r.Context())
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, statsResponse{Success: true, Count: n})
}

// deleteResponse is returned by DELETE /api/cars.
type deleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// handleDeleteAll empties the collection. A failure part way reports how
// many documents were already removed.
func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.service.DeleteAll(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, deleteResponse{
		Success: true,
		Message: fmt.Sprintf("Deleted %d %s", n, s.service.Collection()),
		Count:   n,
	})
}

// handleImportQueueStatus returns the current state of the import limiter.
// Used for monitoring and to check if the system can accept more imports.
func (s *Server) handleImportQueueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.LimiterStatus())
}
