package pipeline

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go-elhub-stats/internal/model"
	"go-elhub-stats/pkg/utils"
)

// timestampLayouts are tried in order for timestamp columns. Values without an
// offset are taken as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var errMissingValue = errors.New("value is required")

// validateHeader checks that every declared column is present in the header.
func validateHeader(source string, header []string, schema model.Schema) error {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	for _, col := range schema {
		if !present[col.Name] {
			return &SchemaError{Source: source, Column: col.Name}
		}
	}
	return nil
}

// parseCell converts one raw cell according to its declared column.
func parseCell(col model.Column, raw string, nullMarkers []string) (interface{}, string, error) {
	if utils.IsNull(raw, nullMarkers) {
		if col.Nullable {
			return nil, "", nil
		}
		if col.Type == model.TypeString || col.Type == "" {
			return strings.TrimSpace(raw), "", nil
		}
		return nil, "", errMissingValue
	}

	s := strings.TrimSpace(raw)
	switch col.Type {
	case model.TypeString, "":
		return s, "", nil
	case model.TypeInt:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, "", nil
		}
		// exports written by spreadsheet tools widen ints to "12.0"
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) {
			return nil, "", fmt.Errorf("not an integer")
		}
		if f < math.MinInt64 || f >= -math.MinInt64 {
			return nil, "", fmt.Errorf("integer out of range")
		}
		return int64(f), "", nil
	case model.TypeFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, "", fmt.Errorf("not a number")
		}
		return f, "", nil
	case model.TypeMonthYear:
		t, err := time.Parse(model.MonthYearLayout, s)
		if err != nil {
			return nil, model.MonthYearLayout, err
		}
		return model.YearMonthOf(t), model.MonthYearLayout, nil
	case model.TypeTimestamp:
		t, err := parseTimestamp(s)
		if err != nil {
			return nil, "", err
		}
		return t, "", nil
	default:
		return nil, "", fmt.Errorf("unknown column type %q", col.Type)
	}
}

// parseTimestamp parses a timestamp and normalizes it to UTC.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp")
}
