package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"go-elhub-stats/internal/model"
	"go-elhub-stats/pkg/utils"
)

const keySep = "\x1f"

// LongOption configures AggregateLong
type LongOption func(*longConfig)

type longConfig struct {
	yearColumn  string
	monthColumn string
}

// WithPeriodFill makes AggregateLong emit a zero row for every year-month missing
// between the observed minimum and maximum, for each combination of the other keys.
// Both columns must be part of groupBy.
func WithPeriodFill(yearColumn, monthColumn string) LongOption {
	return func(c *longConfig) {
		c.yearColumn = yearColumn
		c.monthColumn = monthColumn
	}
}

// AggregateLong sums measure over every combination of the groupBy columns.
// Null measures add 0, so a group whose measures are all null sums to 0. Rows
// with a null group key are left out. An empty measure counts rows.
func AggregateLong(t *model.Table, groupBy []string, measure string, opts ...LongOption) (*model.LongTable, error) {
	var cfg longConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	for _, c := range groupBy {
		if !t.HasColumn(c) {
			return nil, &SchemaError{Source: t.Name, Column: c}
		}
	}
	if measure != "" && !t.HasColumn(measure) {
		return nil, &SchemaError{Source: t.Name, Column: measure}
	}

	groups := make(map[string]*model.LongRow)
	for _, rec := range t.Records {
		key, ok := groupKey(rec, groupBy)
		if !ok {
			continue
		}
		ks := joinKey(key)
		row, exists := groups[ks]
		if !exists {
			row = &model.LongRow{Key: key}
			groups[ks] = row
		}
		if measure == "" {
			row.Value++
		} else if v, ok := utils.Numeric(rec[measure]); ok {
			row.Value += v
		}
	}

	if cfg.yearColumn != "" {
		if err := fillPeriods(groups, groupBy, cfg); err != nil {
			return nil, err
		}
	}

	long := &model.LongTable{Keys: append([]string(nil), groupBy...), Measure: measure}
	for _, row := range groups {
		long.Rows = append(long.Rows, *row)
	}
	sort.Slice(long.Rows, func(i, j int) bool { return lessKey(long.Rows[i].Key, long.Rows[j].Key) })

	fmt.Printf("📊 Aggregation Summary: %d groups created from %d records\n", len(long.Rows), t.Len())
	return long, nil
}

// fillPeriods adds zero rows for missing year-months inside the observed range.
func fillPeriods(groups map[string]*model.LongRow, groupBy []string, cfg longConfig) error {
	yi, mi := indexOf(groupBy, cfg.yearColumn), indexOf(groupBy, cfg.monthColumn)
	if yi < 0 || mi < 0 {
		return fmt.Errorf("period fill needs %q and %q in group by %v", cfg.yearColumn, cfg.monthColumn, groupBy)
	}
	if len(groups) == 0 {
		return nil
	}

	var first, last model.YearMonth
	series := make(map[string][]interface{})
	seen := false
	for _, row := range groups {
		ym, err := periodOf(row.Key, yi, mi)
		if err != nil {
			return err
		}
		if !seen || ym.Before(first) {
			first = ym
		}
		if !seen || last.Before(ym) {
			last = ym
		}
		seen = true

		rest := make([]interface{}, len(row.Key))
		copy(rest, row.Key)
		rest[yi], rest[mi] = nil, nil
		series[joinKey(rest)] = rest
	}

	for _, rest := range series {
		for ym := first; !last.Before(ym); ym = ym.Next() {
			key := make([]interface{}, len(rest))
			copy(key, rest)
			key[yi], key[mi] = ym.Year, int(ym.Month)
			ks := joinKey(key)
			if _, ok := groups[ks]; !ok {
				groups[ks] = &model.LongRow{Key: key}
			}
		}
	}
	return nil
}

// PivotByYear reshapes a long table into one row per distinct rowKeys tuple and
// one column per year present in the data, ascending. Keys that are neither row
// keys nor the year are summed away. Missing cells are 0.
func PivotByYear(long *model.LongTable, rowKeys []string, yearColumn string) (*model.WideTable, error) {
	yi := indexOf(long.Keys, yearColumn)
	if yi < 0 {
		return nil, &SchemaError{Source: "long table", Column: yearColumn}
	}
	idx := make([]int, len(rowKeys))
	for i, k := range rowKeys {
		if idx[i] = indexOf(long.Keys, k); idx[i] < 0 {
			return nil, &SchemaError{Source: "long table", Column: k}
		}
	}

	yearSet := make(map[int]bool)
	for _, row := range long.Rows {
		y, ok := utils.Numeric(row.Key[yi])
		if !ok {
			return nil, fmt.Errorf("year value %v is not numeric", row.Key[yi])
		}
		yearSet[int(y)] = true
	}
	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)
	col := make(map[int]int, len(years))
	for i, y := range years {
		col[y] = i
	}

	rows := make(map[string]*model.WideRow)
	for _, row := range long.Rows {
		key := make([]interface{}, len(idx))
		for i, k := range idx {
			key[i] = row.Key[k]
		}
		ks := joinKey(key)
		wr, ok := rows[ks]
		if !ok {
			wr = &model.WideRow{Key: key, Cells: zeroCells(len(years))}
			rows[ks] = wr
		}
		y, _ := utils.Numeric(row.Key[yi])
		wr.Cells[col[int(y)]].Value += row.Value
	}

	return &model.WideTable{
		RowKeys: append([]string(nil), rowKeys...),
		Years:   years,
		Rows:    sortedWideRows(rows),
	}, nil
}

// FilterWide keeps the rows whose key satisfies keep.
func FilterWide(w *model.WideTable, keep func(key map[string]interface{}) bool) *model.WideTable {
	out := &model.WideTable{RowKeys: w.RowKeys, Years: w.Years}
	for _, row := range w.Rows {
		named := make(map[string]interface{}, len(w.RowKeys))
		for i, k := range w.RowKeys {
			named[k] = row.Key[i]
		}
		if keep(named) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// RegroupWide re-sums a pivot on a subset of its row keys. Year columns are kept
// even when every cell of a year becomes 0.
func RegroupWide(w *model.WideTable, rowKeys []string) (*model.WideTable, error) {
	idx := make([]int, len(rowKeys))
	for i, k := range rowKeys {
		if idx[i] = indexOf(w.RowKeys, k); idx[i] < 0 {
			return nil, &SchemaError{Source: "pivot", Column: k}
		}
	}

	rows := make(map[string]*model.WideRow)
	for _, row := range w.Rows {
		key := make([]interface{}, len(idx))
		for i, k := range idx {
			key[i] = row.Key[k]
		}
		ks := joinKey(key)
		wr, ok := rows[ks]
		if !ok {
			wr = &model.WideRow{Key: key, Cells: zeroCells(len(w.Years))}
			rows[ks] = wr
		}
		for i, c := range row.Cells {
			if c.Valid {
				wr.Cells[i].Value += c.Value
			}
		}
	}

	return &model.WideTable{
		RowKeys: append([]string(nil), rowKeys...),
		Years:   w.Years,
		Rows:    sortedWideRows(rows),
	}, nil
}

// ZeroToAbsent turns every 0 cell into "no data" so charts draw a gap instead of
// a zero. Market-process pivots only: installation counts treat 0 as a real value.
func ZeroToAbsent(w *model.WideTable) *model.WideTable {
	out := &model.WideTable{RowKeys: w.RowKeys, Years: w.Years, Rows: make([]model.WideRow, len(w.Rows))}
	for i, row := range w.Rows {
		cells := make([]model.NullFloat, len(row.Cells))
		for j, c := range row.Cells {
			if c.Valid && c.Value != 0 {
				cells[j] = c
			}
		}
		out.Rows[i] = model.WideRow{Key: row.Key, Cells: cells}
	}
	return out
}

// ------------------- Running totals -------------------

// MonthlyCounts is a measure bucketed by local calendar month
type MonthlyCounts map[model.YearMonth]decimal.Decimal

// CountByMonth buckets rows by the local year-month of timeColumn. Rows with a
// null time are skipped, so an open-ended valid_to never counts as closed. An
// empty measure counts rows; otherwise the measure is summed exactly.
//
// Installed capacity goes through the summing path on purpose. Counting the
// capacity column would only repeat the unit count (minus rows with a blank
// capacity) and is not a capacity figure, so do not switch it back to a count.
func CountByMonth(t *model.Table, timeColumn, measure string) (MonthlyCounts, error) {
	if !t.HasColumn(timeColumn) {
		return nil, &SchemaError{Source: t.Name, Column: timeColumn}
	}
	if measure != "" && !t.HasColumn(measure) {
		return nil, &SchemaError{Source: t.Name, Column: measure}
	}

	counts := make(MonthlyCounts)
	for _, rec := range t.Records {
		ts, ok := rec[timeColumn].(time.Time)
		if !ok {
			continue
		}
		ym := model.YearMonthOf(ts)
		if measure == "" {
			counts[ym] = counts[ym].Add(decimal.NewFromInt(1))
			continue
		}
		if v, ok := utils.Numeric(rec[measure]); ok {
			counts[ym] = counts[ym].Add(decimal.NewFromFloat(v))
		}
	}
	return counts, nil
}

// RunningTotals computes opened - closed per month and its running sum, in
// calendar order. Months between the first and last observed month are filled
// with 0. The cumulative series decreases in months with net closures.
func RunningTotals(measure string, opened, closed MonthlyCounts) *model.RunningTotals {
	rt := &model.RunningTotals{Measure: measure}

	var first, last model.YearMonth
	seen := false
	for _, m := range []MonthlyCounts{opened, closed} {
		for ym := range m {
			if !seen || ym.Before(first) {
				first = ym
			}
			if !seen || last.Before(ym) {
				last = ym
			}
			seen = true
		}
	}
	if !seen {
		return rt
	}

	cumulative := decimal.Zero
	for ym := first; !last.Before(ym); ym = ym.Next() {
		o, c := opened[ym], closed[ym]
		net := o.Sub(c)
		cumulative = cumulative.Add(net)
		rt.Periods = append(rt.Periods, model.PeriodTotal{
			Period:     ym,
			Opened:     o.InexactFloat64(),
			Closed:     c.InexactFloat64(),
			Sum:        net.InexactFloat64(),
			Cumulative: cumulative.InexactFloat64(),
		})
	}
	return rt
}

// YearlyTotals rolls monthly net change up to years. A year's cumulative value
// is the cumulative value of its last month, so trimmed history still counts.
func YearlyTotals(rt *model.RunningTotals) []model.YearTotal {
	var out []model.YearTotal
	sum := decimal.Zero
	for _, p := range rt.Periods {
		if len(out) == 0 || out[len(out)-1].Year != p.Period.Year {
			out = append(out, model.YearTotal{Year: p.Period.Year})
			sum = decimal.Zero
		}
		sum = sum.Add(decimal.NewFromFloat(p.Sum))
		last := &out[len(out)-1]
		last.Sum = sum.InexactFloat64()
		last.Cumulative = p.Cumulative
	}
	return out
}

// TrimLeadingYears drops periods before fromYear. Cumulative values keep counting
// the dropped history.
func TrimLeadingYears(rt *model.RunningTotals, fromYear int) *model.RunningTotals {
	out := &model.RunningTotals{Measure: rt.Measure}
	for _, p := range rt.Periods {
		if p.Period.Year >= fromYear {
			out.Periods = append(out.Periods, p)
		}
	}
	return out
}

// ScaleCapacity divides every value of rt by divisor.
func ScaleCapacity(rt *model.RunningTotals, divisor float64) *model.RunningTotals {
	if divisor == 0 || divisor == 1 {
		return rt
	}
	d := decimal.NewFromFloat(divisor)
	scale := func(v float64) float64 { return decimal.NewFromFloat(v).Div(d).InexactFloat64() }

	out := &model.RunningTotals{Measure: rt.Measure, Periods: make([]model.PeriodTotal, len(rt.Periods))}
	for i, p := range rt.Periods {
		out.Periods[i] = model.PeriodTotal{
			Period:     p.Period,
			Opened:     scale(p.Opened),
			Closed:     scale(p.Closed),
			Sum:        scale(p.Sum),
			Cumulative: scale(p.Cumulative),
		}
	}
	return out
}

// PivotMonthlyByYear lays net change out as months x years. Months inside the
// observed range keep their value, zero included; months outside it are absent.
func PivotMonthlyByYear(rt *model.RunningTotals) *model.WideTable {
	w := &model.WideTable{RowKeys: []string{"month"}}
	if len(rt.Periods) == 0 {
		return w
	}
	for _, p := range rt.Periods {
		if len(w.Years) == 0 || w.Years[len(w.Years)-1] != p.Period.Year {
			w.Years = append(w.Years, p.Period.Year)
		}
	}
	col := make(map[int]int, len(w.Years))
	for i, y := range w.Years {
		col[y] = i
	}

	w.Rows = make([]model.WideRow, 12)
	for m := range w.Rows {
		w.Rows[m] = model.WideRow{Key: []interface{}{m + 1}, Cells: make([]model.NullFloat, len(w.Years))}
	}
	for _, p := range rt.Periods {
		w.Rows[int(p.Period.Month)-1].Cells[col[p.Period.Year]] = model.Float(p.Sum)
	}
	return w
}

// ------------------- Helpers -------------------

func groupKey(rec model.Record, columns []string) ([]interface{}, bool) {
	key := make([]interface{}, len(columns))
	for i, c := range columns {
		v := rec[c]
		if v == nil {
			return nil, false
		}
		key[i] = v
	}
	return key, true
}

func joinKey(key []interface{}) string {
	parts := make([]string, len(key))
	for i, v := range key {
		parts[i] = model.KeyString(v)
	}
	return strings.Join(parts, keySep)
}

func periodOf(key []interface{}, yi, mi int) (model.YearMonth, error) {
	y, okY := utils.Numeric(key[yi])
	m, okM := utils.Numeric(key[mi])
	if !okY || !okM || m < 1 || m > 12 {
		return model.YearMonth{}, fmt.Errorf("invalid period %v-%v", key[yi], key[mi])
	}
	return model.YearMonth{Year: int(y), Month: time.Month(int(m))}, nil
}

// compareValues orders numbers numerically and everything else by its key string.
func compareValues(a, b interface{}) int {
	fa, okA := utils.Numeric(a)
	fb, okB := utils.Numeric(b)
	if _, isStr := a.(string); isStr {
		okA = false
	}
	if _, isStr := b.(string); isStr {
		okB = false
	}
	if okA && okB {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(model.KeyString(a), model.KeyString(b))
}

func lessKey(a, b []interface{}) bool {
	for i := range a {
		if c := compareValues(a[i], b[i]); c != 0 {
			return c < 0
		}
	}
	return false
}

func sortedWideRows(rows map[string]*model.WideRow) []model.WideRow {
	out := make([]model.WideRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return lessKey(out[i].Key, out[j].Key) })
	return out
}

func zeroCells(n int) []model.NullFloat {
	cells := make([]model.NullFloat, n)
	for i := range cells {
		cells[i] = model.Float(0)
	}
	return cells
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
