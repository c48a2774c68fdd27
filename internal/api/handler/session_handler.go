package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go-elhub-stats/internal/model"
	"go-elhub-stats/internal/pipeline"
	"go-elhub-stats/internal/selection"
)

type groupsRequest struct {
	Groups []string `json:"groups"`
}

type optionsRequest struct {
	Options []string `json:"options"`
}

type sessionResponse struct {
	ID        string               `json:"id"`
	Selection model.SelectionState `json:"selection"`
}

// CreateSession starts a selection session with the default groups and status
// @Summary Create a selection session
// @Description Start a session whose selection defaults to every group except the configured exclusions
// @Tags sessions
// @Produce json
// @Success 201 {object} sessionResponse
// @Failure 503 {string} string "Data not loaded"
// @Router /sessions [post]
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if !h.requirePage(w, pipeline.PageMarketProcesses) {
		return
	}
	state := h.dashboard.NewSelection()
	id := h.sessions.Create(state)
	writeJSON(w, http.StatusCreated, sessionResponse{ID: id, Selection: state})
}

// GetSession returns the selection of a session
// @Summary Get a selection session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} sessionResponse
// @Failure 404 {string} string "Session not found"
// @Router /sessions/{id} [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(r.URL.Path, "/sessions/", "")
	if !ok {
		http.Error(w, "Session ID is required", http.StatusBadRequest)
		return
	}
	state, err := h.sessions.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, Selection: state})
}

// DeleteSession ends a session
// @Summary Delete a selection session
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204 "Session deleted"
// @Failure 404 {string} string "Session not found"
// @Router /sessions/{id} [delete]
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(r.URL.Path, "/sessions/", "")
	if !ok {
		http.Error(w, "Session ID is required", http.StatusBadRequest)
		return
	}
	if !h.sessions.Delete(id) {
		writeError(w, selection.ErrSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateSessionGroups replaces the selected groups; the options follow the groups
// @Summary Select process groups
// @Description Replace the selected groups. The selected processes become every process of those groups.
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param groups body groupsRequest true "Selected groups"
// @Success 200 {object} sessionResponse
// @Failure 400 {string} string "Invalid JSON payload"
// @Failure 404 {string} string "Session not found"
// @Router /sessions/{id}/groups [put]
func (h *Handler) UpdateSessionGroups(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(r.URL.Path, "/sessions/", "/groups")
	if !ok {
		http.Error(w, "Session ID is required", http.StatusBadRequest)
		return
	}
	var req groupsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	if !h.requirePage(w, pipeline.PageMarketProcesses) {
		return
	}
	catalog := h.dashboard.Catalog()
	state, err := h.sessions.Update(id, func(s model.SelectionState) (model.SelectionState, error) {
		return selection.WithGroups(s, catalog, req.Groups), nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, Selection: state})
}

// UpdateSessionOptions narrows the selected processes
// @Summary Select processes
// @Description Replace the selected processes (brs) without changing the selected groups
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param options body optionsRequest true "Selected processes"
// @Success 200 {object} sessionResponse
// @Failure 400 {string} string "Invalid JSON payload"
// @Failure 404 {string} string "Session not found"
// @Router /sessions/{id}/options [put]
func (h *Handler) UpdateSessionOptions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(r.URL.Path, "/sessions/", "/options")
	if !ok {
		http.Error(w, "Session ID is required", http.StatusBadRequest)
		return
	}
	var req optionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	if !h.requirePage(w, pipeline.PageMarketProcesses) {
		return
	}
	catalog := h.dashboard.Catalog()
	state, err := h.sessions.Update(id, func(s model.SelectionState) (model.SelectionState, error) {
		return selection.WithOptions(s, catalog, req.Options), nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, Selection: state})
}

// GetSessionChart returns the monthly chart of the session's selection
// @Summary Get market-process chart
// @Description Monthly process counts for the selected processes and status, one column per year. Months without processes are null.
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Param status query string false "Process status; stored in the session"
// @Success 200 {object} map[string]interface{} "Chart"
// @Failure 400 {string} string "Unknown status"
// @Failure 404 {string} string "Session not found"
// @Failure 422 {string} string "Empty selection"
// @Router /sessions/{id}/chart [get]
func (h *Handler) GetSessionChart(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(r.URL.Path, "/sessions/", "/chart")
	if !ok {
		http.Error(w, "Session ID is required", http.StatusBadRequest)
		return
	}
	state, ok := h.sessionWithStatus(w, r, id)
	if !ok {
		return
	}

	chart, err := h.dashboard.MarketProcessChart(state)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":           state.Status,
		"selected_options": state.SelectedOptions,
		"chart":            chart,
	})
}

// ExportSessionChart downloads the chart data of the session's selection
// @Summary Export market-process chart
// @Description Download the selected subset as CSV (UTF-8 with BOM), XLSX or JSON
// @Tags sessions
// @Produce text/csv
// @Param id path string true "Session ID"
// @Param status query string false "Process status; stored in the session"
// @Param format query string false "csv (default), xlsx or json"
// @Success 200 {file} file "Export file"
// @Failure 404 {string} string "Session not found"
// @Failure 422 {string} string "Empty selection"
// @Router /sessions/{id}/export [get]
func (h *Handler) ExportSessionChart(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(r.URL.Path, "/sessions/", "/export")
	if !ok {
		http.Error(w, "Session ID is required", http.StatusBadRequest)
		return
	}
	format, ok := exportFormat(r)
	if !ok {
		http.Error(w, "Unknown format: "+format, http.StatusBadRequest)
		return
	}
	state, ok := h.sessionWithStatus(w, r, id)
	if !ok {
		return
	}

	chart, err := h.dashboard.MarketProcessChart(state)
	if err != nil {
		writeError(w, err)
		return
	}
	_, run := h.dashboard.MarketProcesses()
	fileName := pipeline.ExportFileName("elhub-"+pipeline.PageMarketProcesses+"-utsnitt", format, h.now())
	h.serveExport(w, r, run.ID, fileName, wideWriter(format, pipeline.PageMarketProcesses, chart))
}

// sessionWithStatus loads a session, applying ?status= when given.
func (h *Handler) sessionWithStatus(w http.ResponseWriter, r *http.Request, id string) (model.SelectionState, bool) {
	status := r.URL.Query().Get("status")
	if status == "" {
		state, err := h.sessions.Get(id)
		if err != nil {
			writeError(w, err)
			return state, false
		}
		return state, true
	}

	if !h.requirePage(w, pipeline.PageMarketProcesses) {
		return model.SelectionState{}, false
	}
	catalog := h.dashboard.Catalog()
	state, err := h.sessions.Update(id, func(s model.SelectionState) (model.SelectionState, error) {
		return selection.WithStatus(s, catalog, status)
	})
	if err != nil {
		if errors.Is(err, selection.ErrSessionNotFound) {
			writeError(w, err)
		} else {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return state, false
	}
	return state, true
}
