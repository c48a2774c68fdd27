package pipeline

import (
	"fmt"
	"time"
	_ "time/tzdata" // zone database for hosts without one

	"go-elhub-stats/internal/model"
)

// LoadZone resolves an IANA zone name, defaulting to Europe/Oslo.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		name = "Europe/Oslo"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q: %w", name, err)
	}
	return loc, nil
}

// ConvertZone returns a copy of t with the given timestamp columns expressed in loc.
// Converting values already in loc leaves them unchanged, so applying it twice is
// the same as applying it once.
func ConvertZone(t *model.Table, columns []string, loc *time.Location) (*model.Table, error) {
	for _, c := range columns {
		if !t.HasColumn(c) {
			return nil, &SchemaError{Source: t.Name, Column: c}
		}
	}

	out := cloneTable(t)
	for _, rec := range out.Records {
		for _, c := range columns {
			if ts, ok := rec[c].(time.Time); ok {
				rec[c] = ts.In(loc)
			}
		}
	}
	return out, nil
}

// DeriveCalendar adds year and month columns computed from a month-year or
// timestamp column. Timestamps are bucketed in their own location, so zone
// conversion must run first. Null sources give null year and month.
func DeriveCalendar(t *model.Table, spec model.CalendarSpec) (*model.Table, error) {
	if !t.HasColumn(spec.Source) {
		return nil, &SchemaError{Source: t.Name, Column: spec.Source}
	}

	out := cloneTable(t)
	out.Columns = appendMissing(out.Columns, spec.Year, spec.Month)
	for _, rec := range out.Records {
		var ym model.YearMonth
		switch v := rec[spec.Source].(type) {
		case model.YearMonth:
			ym = v
		case time.Time:
			ym = model.YearMonthOf(v)
		case nil:
			rec[spec.Year], rec[spec.Month] = nil, nil
			continue
		default:
			return nil, fmt.Errorf("column %q of %s holds %T, not a date", spec.Source, t.Name, v)
		}
		rec[spec.Year] = ym.Year
		rec[spec.Month] = int(ym.Month)
	}
	return out, nil
}

// Project keeps and renames the listed columns, in the listed order.
func Project(t *model.Table, projections []model.Projection) (*model.Table, error) {
	if len(projections) == 0 {
		return t, nil
	}
	out := &model.Table{Name: t.Name, Records: make([]model.Record, 0, t.Len())}
	for _, p := range projections {
		if !t.HasColumn(p.From) {
			return nil, &SchemaError{Source: t.Name, Column: p.From}
		}
		out.Columns = append(out.Columns, p.To)
	}
	for _, rec := range t.Records {
		projected := make(model.Record, len(projections))
		for _, p := range projections {
			projected[p.To] = rec[p.From]
		}
		out.Records = append(out.Records, projected)
	}
	return out, nil
}

func cloneTable(t *model.Table) *model.Table {
	out := &model.Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
		Records: make([]model.Record, len(t.Records)),
	}
	for i, rec := range t.Records {
		cp := make(model.Record, len(rec))
		for k, v := range rec {
			cp[k] = v
		}
		out.Records[i] = cp
	}
	return out
}

func appendMissing(columns []string, names ...string) []string {
	for _, n := range names {
		found := false
		for _, c := range columns {
			if c == n {
				found = true
				break
			}
		}
		if !found {
			columns = append(columns, n)
		}
	}
	return columns
}
