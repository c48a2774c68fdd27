package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"go-elhub-stats/internal/model"
	"go-elhub-stats/internal/store"
)

// ListRuns lists load runs
// @Summary List load runs
// @Description Every recorded load with its row counts, drops and quarantine count, newest first
// @Tags runs
// @Produce json
// @Success 200 {array} model.LoadRun
// @Failure 500 {string} string "Internal server error"
// @Router /runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if !store.Enabled() {
		// without a ledger only the current runs are known
		runs := []model.LoadRun{}
		if market, run := h.dashboard.MarketProcesses(); market != nil {
			runs = append(runs, run)
		}
		if installations, run := h.dashboard.Installations(); installations != nil {
			runs = append(runs, run)
		}
		writeJSON(w, http.StatusOK, runs)
		return
	}

	runs, err := store.ListLoadRuns()
	if err != nil {
		http.Error(w, "Failed to fetch runs", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []model.LoadRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun returns one load run with its quarantined rows
// @Summary Get load run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run and quarantined rows"
// @Failure 404 {string} string "Run not found"
// @Router /runs/{id} [get]
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := pathParam(r.URL.Path, "/runs/", "")
	if !ok {
		http.Error(w, "Run ID is required", http.StatusBadRequest)
		return
	}

	if !store.Enabled() {
		for _, page := range []func() (*model.JoinedTable, model.LoadRun){h.dashboard.MarketProcesses, h.dashboard.Installations} {
			if jt, run := page(); jt != nil && run.ID == runID {
				writeJSON(w, http.StatusOK, map[string]interface{}{
					"run":         run,
					"quarantined": jt.Diagnostics.Quarantined,
				})
				return
			}
		}
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	run, err := store.GetLoadRun(runID)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to fetch run", http.StatusInternalServerError)
		return
	}
	quarantined, err := store.GetQuarantinedRows(runID)
	if err != nil {
		http.Error(w, "Failed to fetch quarantined rows", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run":         run,
		"quarantined": quarantined,
	})
}

// GetRunFiles lists the exports of a load run
// @Summary List export files
// @Tags runs
// @Produce json
// @Param runID path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Output files"
// @Failure 503 {string} string "Run ledger disabled"
// @Router /files/{runID} [get]
func (h *Handler) GetRunFiles(w http.ResponseWriter, r *http.Request) {
	runID, ok := pathParam(r.URL.Path, "/files/", "")
	if !ok {
		http.Error(w, "Run ID is required", http.StatusBadRequest)
		return
	}
	if !store.Enabled() {
		http.Error(w, "Run ledger disabled", http.StatusServiceUnavailable)
		return
	}

	files, err := store.GetOutputFiles(runID)
	if err != nil {
		http.Error(w, "Failed to fetch files", http.StatusInternalServerError)
		return
	}
	for i := range files {
		files[i].FilePath = h.outputs.GetDownloadURL(runID, files[i].FileName)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": runID,
		"files":  files,
		"count":  len(files),
	})
}

// DownloadFile serves a stored export
// @Summary Download export file
// @Tags runs
// @Produce octet-stream
// @Param runID path string true "Run ID"
// @Param file path string true "File name"
// @Success 200 {file} file "Export file"
// @Failure 404 {string} string "File not found"
// @Router /download/{runID}/{file} [get]
func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, apiPrefix+"/download/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}

	path, err := h.outputs.LocateFile(parts[0], parts[1])
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	if ct, ok := contentTypes[h.outputs.GetFileType(path)]; ok {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Content-Disposition", "attachment; filename="+filepath.Base(parts[1]))
	http.ServeFile(w, r, path)
}
