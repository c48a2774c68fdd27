package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is one row keyed by column name. A nil value is "no data".
type Record map[string]interface{}

// Table is an in-memory typed table. Columns keeps the output order.
type Table struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Records []Record `json:"records"`
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Distinct returns the distinct non-null values of a column in first-seen order.
func (t *Table) Distinct(column string) []interface{} {
	seen := make(map[string]bool)
	var out []interface{}
	for _, rec := range t.Records {
		v, ok := rec[column]
		if !ok || v == nil {
			continue
		}
		k := KeyString(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}

// KeyString renders a cell value as a join/group key.
func KeyString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case YearMonth:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

// YearMonth is a calendar month
type YearMonth struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// YearMonthOf returns the calendar month of t in t's own location.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// Before orders year-months chronologically.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// Next returns the following calendar month.
func (ym YearMonth) Next() YearMonth {
	if ym.Month == time.December {
		return YearMonth{Year: ym.Year + 1, Month: time.January}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month + 1}
}

// String renders the ISO form, e.g. 2021-03.
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// Label renders the source layout, e.g. Mar-21.
func (ym YearMonth) Label() string {
	return time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC).Format(MonthYearLayout)
}

// MarshalJSON writes the ISO form.
func (ym YearMonth) MarshalJSON() ([]byte, error) {
	return json.Marshal(ym.String())
}

// NullFloat is a chart cell that may be "no data" (distinct from zero)
type NullFloat struct {
	Value float64
	Valid bool
}

// Float wraps a present value.
func Float(v float64) NullFloat { return NullFloat{Value: v, Valid: true} }

// MarshalJSON writes null for absent cells.
func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// UnmarshalJSON accepts null or a number.
func (n *NullFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = NullFloat{}
		return nil
	}
	if err := json.Unmarshal(b, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

// LongRow is one group of a long-form aggregate
type LongRow struct {
	Key   []interface{} `json:"key"`
	Value float64       `json:"value"`
}

// LongTable is the long-form (key..., value) aggregate
type LongTable struct {
	Keys    []string  `json:"keys"`
	Measure string    `json:"measure"`
	Rows    []LongRow `json:"rows"`
}

// WideRow is one pivot row: key values followed by one cell per column
type WideRow struct {
	Key   []interface{} `json:"key"`
	Cells []NullFloat   `json:"cells"`
}

// WideTable is a pivot with years as columns
type WideTable struct {
	RowKeys []string  `json:"row_keys"`
	Years   []int     `json:"years"`
	Rows    []WideRow `json:"rows"`
}

// PeriodTotal is one month of running totals
type PeriodTotal struct {
	Period     YearMonth `json:"period"`
	Opened     float64   `json:"opened"`
	Closed     float64   `json:"closed"`
	Sum        float64   `json:"sum"`
	Cumulative float64   `json:"cumulative"`
}

// RunningTotals is net change per month and its running sum
type RunningTotals struct {
	Measure string        `json:"measure"`
	Periods []PeriodTotal `json:"periods"`
}

// YearTotal is one year of the yearly rollup
type YearTotal struct {
	Year       int     `json:"year"`
	Sum        float64 `json:"sum"`
	Cumulative float64 `json:"cumulative"`
}
