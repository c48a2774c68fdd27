package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"go-elhub-stats/internal/model"
	"go-elhub-stats/internal/store"
	"go-elhub-stats/pkg/utils"
)

// ExportResult represents the result of an export operation
type ExportResult struct {
	Type        string    `json:"type"` // "csv", "xlsx", "json"
	Path        string    `json:"path"`
	URL         string    `json:"url"`
	RecordCount int       `json:"record_count"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	ExportedAt  time.Time `json:"exported_at"`
}

// Sheet is one worksheet of an XLSX export
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]interface{}
}

// ExportFileName builds a download name such as elhub-markedsprosesser-20240131-154500.csv.
func ExportFileName(prefix, ext string, now time.Time) string {
	return fmt.Sprintf("%s-%s.%s", prefix, now.Format("20060102-150405"), ext)
}

// WriteDelimited writes a table as delimited text with a UTF-8 BOM so spreadsheet
// tools detect the encoding. Null cells are empty.
func WriteDelimited(w io.Writer, t *model.Table, delim rune) (int, error) {
	if _, err := w.Write(utf8BOM); err != nil {
		return 0, fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(w)
	if delim != 0 {
		writer.Comma = delim
	}

	if err := writer.Write(t.Columns); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	recordCount := 0
	row := make([]string, len(t.Columns))
	for _, rec := range t.Records {
		for i, c := range t.Columns {
			row[i] = formatCell(rec[c])
		}
		if err := writer.Write(row); err != nil {
			return recordCount, fmt.Errorf("failed to write row: %w", err)
		}
		recordCount++
	}

	writer.Flush()
	return recordCount, writer.Error()
}

// WriteWideDelimited writes a pivot: the row keys, then one column per year.
func WriteWideDelimited(w io.Writer, wide *model.WideTable, delim rune) (int, error) {
	if _, err := w.Write(utf8BOM); err != nil {
		return 0, fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(w)
	if delim != 0 {
		writer.Comma = delim
	}

	if err := writer.Write(wideHeader(wide)); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range wide.Rows {
		row := make([]string, 0, len(r.Key)+len(r.Cells))
		for _, k := range r.Key {
			row = append(row, formatCell(k))
		}
		for _, c := range r.Cells {
			if c.Valid {
				row = append(row, formatCell(c.Value))
			} else {
				row = append(row, "")
			}
		}
		if err := writer.Write(row); err != nil {
			return i, fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return len(wide.Rows), writer.Error()
}

// TableSheet lays a table out as a worksheet.
func TableSheet(name string, t *model.Table) Sheet {
	s := Sheet{Name: name, Header: append([]string(nil), t.Columns...)}
	for _, rec := range t.Records {
		row := make([]interface{}, len(t.Columns))
		for i, c := range t.Columns {
			row[i] = sheetValue(rec[c])
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}

// WideSheet lays a pivot out as a worksheet; absent cells stay blank.
func WideSheet(name string, wide *model.WideTable) Sheet {
	s := Sheet{Name: name, Header: wideHeader(wide)}
	for _, r := range wide.Rows {
		row := make([]interface{}, 0, len(r.Key)+len(r.Cells))
		for _, k := range r.Key {
			row = append(row, sheetValue(k))
		}
		for _, c := range r.Cells {
			if c.Valid {
				row = append(row, c.Value)
			} else {
				row = append(row, nil)
			}
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}

// WriteXLSX writes one worksheet per sheet into a single workbook.
func WriteXLSX(w io.Writer, sheets ...Sheet) (int, error) {
	if len(sheets) == 0 {
		return 0, fmt.Errorf("no sheets to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	recordCount := 0
	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Name); err != nil {
				return 0, err
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return 0, err
		}

		header := make([]interface{}, len(s.Header))
		for j, h := range s.Header {
			header[j] = h
		}
		if err := f.SetSheetRow(s.Name, "A1", &header); err != nil {
			return 0, fmt.Errorf("failed to write header of %s: %w", s.Name, err)
		}
		if len(s.Header) > 0 {
			last, _ := excelize.ColumnNumberToName(len(s.Header))
			f.SetColWidth(s.Name, "A", last, 18)
		}

		for j, row := range s.Rows {
			cell, err := excelize.CoordinatesToCellName(1, j+2)
			if err != nil {
				return recordCount, err
			}
			row := row
			if err := f.SetSheetRow(s.Name, cell, &row); err != nil {
				return recordCount, fmt.Errorf("failed to write row %d of %s: %w", j+1, s.Name, err)
			}
			recordCount++
		}
	}

	if err := f.Write(w); err != nil {
		return recordCount, fmt.Errorf("failed to write workbook: %w", err)
	}
	return recordCount, nil
}

// WriteJSON writes v with export metadata.
func WriteJSON(w io.Writer, exportType string, recordCount int, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	exportData := map[string]interface{}{
		"export_info": map[string]interface{}{
			"exported_at":  time.Now().UTC(),
			"record_count": recordCount,
			"export_type":  exportType,
		},
		"data": v,
	}
	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// SaveExport writes an export into the run's output directory and, when the
// store is enabled, records it as an output file of that run.
func SaveExport(om *utils.OutputManager, runID, fileName string, write func(io.Writer) (int, error)) ExportResult {
	result := ExportResult{Type: om.GetFileType(fileName), ExportedAt: time.Now()}

	path, err := om.GetOutputFilePath(runID, fileName)
	if err != nil {
		return failed(result, err)
	}
	result.Path = path

	file, err := os.Create(path)
	if err != nil {
		return failed(result, fmt.Errorf("failed to create file: %w", err))
	}
	n, err := write(file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return failed(result, err)
	}

	result.RecordCount = n
	result.Success = true
	result.URL = om.GetDownloadURL(runID, fileName)

	if store.Enabled() {
		size, _ := om.GetFileSize(path)
		_, err := store.SaveOutputFile(model.OutputFile{
			RunID:     runID,
			FileName:  fileName,
			FilePath:  path,
			FileType:  result.Type,
			FileSize:  size,
			Records:   n,
			CreatedAt: result.ExportedAt,
		})
		if err != nil {
			fmt.Printf("❌ Failed to record output file %s: %v\n", fileName, err)
		}
	}

	fmt.Printf("✅ Export to file successful: %d records exported to %s\n", n, path)
	return result
}

func failed(result ExportResult, err error) ExportResult {
	result.Error = err.Error()
	fmt.Printf("❌ Export to file failed: %v\n", err)
	return result
}

func wideHeader(wide *model.WideTable) []string {
	header := append([]string(nil), wide.RowKeys...)
	for _, y := range wide.Years {
		header = append(header, strconv.Itoa(y))
	}
	return header
}

// formatCell renders a value in the same text form the loader parses back.
func formatCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case model.YearMonth:
		return val.Label()
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func sheetValue(v interface{}) interface{} {
	switch val := v.(type) {
	case time.Time, model.YearMonth:
		return formatCell(val)
	default:
		return val
	}
}
