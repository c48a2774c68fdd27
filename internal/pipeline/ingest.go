package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"

	"go-elhub-stats/internal/model"
	"go-elhub-stats/pkg/utils"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ------------------- Ingestion -------------------

// readSourceFile reads the raw bytes of a source; the loader hashes them before parsing.
func readSourceFile(spec model.SourceSpec) ([]byte, error) {
	b, err := os.ReadFile(spec.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source %s: %w", sourceName(spec), err)
	}
	return b, nil
}

// ParseDelimited parses a delimited source against its schema.
//
// Rows with unparsable values are quarantined: they are left out of the table and
// collected in the returned multierror as *ParseError values. With strict set the
// first ParseError aborts the parse instead. A missing declared column is a
// *SchemaError and always aborts.
func ParseDelimited(ctx context.Context, spec model.SourceSpec, data []byte, strict bool) (*model.Table, *multierror.Error, error) {
	name := sourceName(spec)
	data = bytes.TrimPrefix(data, utf8BOM)

	csvReader := csv.NewReader(bytes.NewReader(data))
	csvReader.Comma = delimiterOf(spec)
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	headers, err := csvReader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header of %s: %w", name, err)
	}
	for i, h := range headers {
		// Clean header names: trim whitespace and remove ALL quotes
		headers[i] = strings.ReplaceAll(strings.TrimSpace(h), `"`, "")
	}

	if err := validateHeader(name, headers, spec.Schema); err != nil {
		return nil, nil, err
	}

	table := &model.Table{Name: name, Columns: headers}
	var quarantine *multierror.Error

	row := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		fields, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			return nil, nil, fmt.Errorf("CSV read error in %s row %d: %w", name, row, err)
		}

		rec, perr := parseRecord(name, spec, headers, fields, row)
		if perr != nil {
			if strict {
				return nil, nil, perr
			}
			quarantine = multierror.Append(quarantine, perr)
			continue
		}
		table.Records = append(table.Records, rec)
	}

	if quarantine != nil {
		fmt.Printf("⚠️ %s: %d rows quarantined\n", name, quarantine.Len())
	}
	fmt.Printf("📄 CSV ingestion done: %d records read from %s\n", table.Len(), name)
	return table, quarantine, nil
}

// ReadDelimited parses a delimited stream strictly; it is the read side of the export contract.
func ReadDelimited(r io.Reader, spec model.SourceSpec) (*model.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	table, _, err := ParseDelimited(context.Background(), spec, data, true)
	return table, err
}

// parseRecord types one CSV row. Undeclared columns are sniffed.
func parseRecord(name string, spec model.SourceSpec, headers, fields []string, row int) (model.Record, *ParseError) {
	rec := make(model.Record, len(headers))
	for i, h := range headers {
		raw := ""
		if i < len(fields) {
			raw = fields[i]
		}

		col, declared := spec.Schema.Lookup(h)
		if !declared {
			if utils.IsNull(raw, spec.NullMarkers) {
				rec[h] = nil
			} else {
				rec[h] = utils.ParseValue(raw)
			}
			continue
		}

		v, layout, err := parseCell(col, raw, spec.NullMarkers)
		if err != nil {
			return nil, &ParseError{Source: name, Row: row, Column: h, Value: raw, Layout: layout, Err: err}
		}
		rec[h] = v
	}
	return rec, nil
}

func delimiterOf(spec model.SourceSpec) rune {
	if spec.Delimiter == 0 {
		return ','
	}
	return spec.Delimiter
}

func sourceName(spec model.SourceSpec) string {
	if spec.Name != "" {
		return spec.Name
	}
	return spec.Path
}
