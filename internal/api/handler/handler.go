package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go-elhub-stats/internal/pipeline"
	"go-elhub-stats/internal/selection"
	"go-elhub-stats/pkg/utils"
)

const apiPrefix = "/api/v1"

var contentTypes = map[string]string{
	"csv":   "text/csv; charset=utf-8",
	"json":  "application/json",
	"excel": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// Handler serves the dashboard API
type Handler struct {
	dashboard *pipeline.Dashboard
	sessions  *selection.Manager
	outputs   *utils.OutputManager
	now       func() time.Time
}

// New creates the API handler
func New(dashboard *pipeline.Dashboard, sessions *selection.Manager, outputs *utils.OutputManager) *Handler {
	return &Handler{
		dashboard: dashboard,
		sessions:  sessions,
		outputs:   outputs,
		now:       time.Now,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	var empty *selection.EmptySelectionError
	switch {
	case errors.As(err, &empty):
		http.Error(w, empty.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, selection.ErrSessionNotFound):
		http.Error(w, "Session not found", http.StatusNotFound)
	case errors.Is(err, pipeline.ErrPageUnavailable):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// requirePage answers 503 when a page failed to load.
func (h *Handler) requirePage(w http.ResponseWriter, page string) bool {
	if err := h.dashboard.Available(page); err != nil {
		writeError(w, err)
		return false
	}
	return true
}

// pathParam extracts the segment between prefix and suffix, e.g. the id of
// /api/v1/sessions/{id}/chart.
func pathParam(path, prefix, suffix string) (string, bool) {
	prefix = apiPrefix + prefix
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return "", false
	}
	if len(path) < len(prefix)+len(suffix) {
		return "", false
	}
	id := path[len(prefix) : len(path)-len(suffix)]
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// exportFormat reads ?format=, defaulting to csv.
func exportFormat(r *http.Request) (string, bool) {
	switch f := strings.ToLower(r.URL.Query().Get("format")); f {
	case "", "csv":
		return "csv", true
	case "xlsx", "json":
		return f, true
	default:
		return f, false
	}
}

// serveExport writes the export to the run's output directory, then sends it
// as an attachment.
func (h *Handler) serveExport(w http.ResponseWriter, r *http.Request, runID, fileName string, write func(io.Writer) (int, error)) {
	result := pipeline.SaveExport(h.outputs, runID, fileName, write)
	if !result.Success {
		http.Error(w, "Failed to export: "+result.Error, http.StatusInternalServerError)
		return
	}

	if ct, ok := contentTypes[result.Type]; ok {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Header().Set("X-Record-Count", strconv.Itoa(result.RecordCount))
	w.Header().Set("X-Download-URL", result.URL)
	http.ServeFile(w, r, result.Path)
}
