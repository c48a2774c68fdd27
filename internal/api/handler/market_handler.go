package handler

import (
	"io"
	"net/http"
	"strconv"

	"go-elhub-stats/internal/model"
	"go-elhub-stats/internal/pipeline"
)

// GetMarketProcesses returns the joined market-process dataset
// @Summary Get market processes
// @Description Retrieve the joined market-process log (usage_date, brs, group, state, count, year, month)
// @Tags market-processes
// @Produce json
// @Param limit query int false "Maximum number of records"
// @Param offset query int false "Number of records to skip"
// @Success 200 {object} map[string]interface{} "Market-process records and load run"
// @Failure 503 {string} string "Data not loaded"
// @Router /market-processes [get]
func (h *Handler) GetMarketProcesses(w http.ResponseWriter, r *http.Request) {
	if !h.requirePage(w, pipeline.PageMarketProcesses) {
		return
	}
	market, run := h.dashboard.MarketProcesses()

	records := market.Records
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			http.Error(w, "Invalid offset", http.StatusBadRequest)
			return
		}
		if offset > len(records) {
			offset = len(records)
		}
		records = records[offset:]
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		if limit < len(records) {
			records = records[:limit]
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run":     run,
		"columns": market.Columns,
		"records": records,
		"total":   market.Len(),
		"count":   len(records),
	})
}

// GetMarketProcessCatalog returns the groups, processes and states to choose from
// @Summary Get market-process catalog
// @Description Groups, process codes (brs), states and the process -> group mapping
// @Tags market-processes
// @Produce json
// @Success 200 {object} model.Catalog
// @Failure 503 {string} string "Data not loaded"
// @Router /market-processes/catalog [get]
func (h *Handler) GetMarketProcessCatalog(w http.ResponseWriter, r *http.Request) {
	if !h.requirePage(w, pipeline.PageMarketProcesses) {
		return
	}
	writeJSON(w, http.StatusOK, h.dashboard.Catalog())
}

// ExportMarketProcesses downloads the full joined dataset
// @Summary Export market processes
// @Description Download every market process as CSV (UTF-8 with BOM), XLSX or JSON
// @Tags market-processes
// @Produce text/csv
// @Param format query string false "csv (default), xlsx or json"
// @Success 200 {file} file "Export file"
// @Failure 400 {string} string "Unknown format"
// @Failure 503 {string} string "Data not loaded"
// @Router /market-processes/export [get]
func (h *Handler) ExportMarketProcesses(w http.ResponseWriter, r *http.Request) {
	format, ok := exportFormat(r)
	if !ok {
		http.Error(w, "Unknown format: "+format, http.StatusBadRequest)
		return
	}
	if !h.requirePage(w, pipeline.PageMarketProcesses) {
		return
	}
	market, run := h.dashboard.MarketProcesses()

	fileName := pipeline.ExportFileName("elhub-"+pipeline.PageMarketProcesses, format, h.now())
	h.serveExport(w, r, run.ID, fileName, tableWriter(format, pipeline.PageMarketProcesses, market.Table))
}

func tableWriter(format, sheet string, t *model.Table) func(io.Writer) (int, error) {
	return func(w io.Writer) (int, error) {
		switch format {
		case "xlsx":
			return pipeline.WriteXLSX(w, pipeline.TableSheet(sheet, t))
		case "json":
			return t.Len(), pipeline.WriteJSON(w, sheet, t.Len(), t.Records)
		default:
			return pipeline.WriteDelimited(w, t, ',')
		}
	}
}

func wideWriter(format, sheet string, wide *model.WideTable) func(io.Writer) (int, error) {
	return func(w io.Writer) (int, error) {
		switch format {
		case "xlsx":
			return pipeline.WriteXLSX(w, pipeline.WideSheet(sheet, wide))
		case "json":
			return len(wide.Rows), pipeline.WriteJSON(w, sheet, len(wide.Rows), wide)
		default:
			return pipeline.WriteWideDelimited(w, wide, ',')
		}
	}
}
