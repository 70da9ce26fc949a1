// Package templates holds the server-rendered HTML components. The markup
// lives in the .templ files; run `templ generate` after editing them.
package templates

import (
	"strconv"
	"strings"
)

// DashboardData is what the dashboard page shows.
type DashboardData struct {
	Collection    string
	Count         int64
	CountErr      bool
	BatchSize     int
	MaxFileSize   int64
	NumericFields []string
	ActiveImports int
	MaxImports    int
}

func countText(d DashboardData) string {
	if d.CountErr {
		return "unavailable"
	}
	return strconv.FormatInt(d.Count, 10)
}

func formatBytes(n int64) string {
	const mb = 1 << 20
	if n >= mb {
		return strconv.FormatInt(n/mb, 10) + " MB"
	}
	return strconv.FormatInt(n, 10) + " bytes"
}

func joinFields(fields []string) string {
	if len(fields) == 0 {
		return "none"
	}
	return strings.Join(fields, ", ")
}
