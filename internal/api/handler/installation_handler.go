package handler

import (
	"net/http"

	"go-elhub-stats/internal/pipeline"
)

// GetInstallationsMonthly returns monthly and yearly net change of installations
// @Summary Get installation running totals
// @Description Net new installations and installed capacity per month with running totals, plus yearly rollups
// @Tags installations
// @Produce json
// @Success 200 {object} map[string]interface{} "Running totals"
// @Failure 500 {string} string "Internal server error"
// @Failure 503 {string} string "Data not loaded"
// @Router /installations/monthly [get]
func (h *Handler) GetInstallationsMonthly(w http.ResponseWriter, r *http.Request) {
	overview, err := h.dashboard.InstallationOverview()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"units":            overview.Units,
		"capacity":         overview.Capacity,
		"units_by_year":    overview.UnitsByYear,
		"capacity_by_year": overview.CapacityByYear,
	})
}

// GetInstallationsByMonth returns net new installations as months x years
// @Summary Get installations per month
// @Description Net new installations with one row per month and one column per year; format=csv|xlsx downloads it
// @Tags installations
// @Produce json
// @Param format query string false "json (default), csv or xlsx"
// @Success 200 {object} model.WideTable
// @Failure 400 {string} string "Unknown format"
// @Failure 503 {string} string "Data not loaded"
// @Router /installations/by-month [get]
func (h *Handler) GetInstallationsByMonth(w http.ResponseWriter, r *http.Request) {
	overview, err := h.dashboard.InstallationOverview()
	if err != nil {
		writeError(w, err)
		return
	}
	if r.URL.Query().Get("format") == "" {
		writeJSON(w, http.StatusOK, overview.UnitsByMonth)
		return
	}

	format, ok := exportFormat(r)
	if !ok {
		http.Error(w, "Unknown format: "+format, http.StatusBadRequest)
		return
	}
	_, run := h.dashboard.Installations()
	fileName := pipeline.ExportFileName("elhub-"+pipeline.PageInstallations, format, h.now())
	h.serveExport(w, r, run.ID, fileName, wideWriter(format, pipeline.PageInstallations, overview.UnitsByMonth))
}

// GetInstallationsMap returns installation locations and active counts per grid area
// @Summary Get installation map
// @Description Latitude/longitude of every installation with a known postal area, and active installations per grid area
// @Tags installations
// @Produce json
// @Success 200 {object} map[string]interface{} "Map points"
// @Failure 503 {string} string "Data not loaded"
// @Router /installations/map [get]
func (h *Handler) GetInstallationsMap(w http.ResponseWriter, r *http.Request) {
	overview, err := h.dashboard.InstallationOverview()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"points":       overview.Points,
		"count":        len(overview.Points),
		"by_grid_area": overview.ByGridArea,
	})
}
