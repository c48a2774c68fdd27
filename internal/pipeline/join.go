package pipeline

import (
	"fmt"
	"sort"

	"go-elhub-stats/internal/model"
)

// InnerJoin joins left with right on left[leftKey] = right[rightKey].
//
// Left order is preserved; a left row matching several right rows is repeated in
// right order. Left rows without a match are dropped and counted in the second
// return value. fields maps right columns to output columns; when empty every
// non-key right column is brought over. Either way an output name already present
// on the left is suffixed with "_" + right.Name.
func InnerJoin(left, right *model.Table, leftKey, rightKey string, fields map[string]string) (*model.Table, int, error) {
	if !left.HasColumn(leftKey) {
		return nil, 0, &SchemaError{Source: left.Name, Column: leftKey}
	}
	if !right.HasColumn(rightKey) {
		return nil, 0, &SchemaError{Source: right.Name, Column: rightKey}
	}

	mapping, err := joinFields(left, right, rightKey, fields)
	if err != nil {
		return nil, 0, err
	}

	index := make(map[string][]model.Record, right.Len())
	for _, rec := range right.Records {
		v := rec[rightKey]
		if v == nil {
			continue
		}
		k := model.KeyString(v)
		index[k] = append(index[k], rec)
	}

	out := &model.Table{Name: left.Name, Columns: append([]string(nil), left.Columns...)}
	for _, m := range mapping {
		out.Columns = append(out.Columns, m.To)
	}

	dropped := 0
	for _, rec := range left.Records {
		v := rec[leftKey]
		matches := index[model.KeyString(v)]
		if v == nil || len(matches) == 0 {
			dropped++
			continue
		}
		for _, match := range matches {
			joined := make(model.Record, len(rec)+len(mapping))
			for k, val := range rec {
				joined[k] = val
			}
			for _, m := range mapping {
				joined[m.To] = match[m.From]
			}
			out.Records = append(out.Records, joined)
		}
	}

	return out, dropped, nil
}

// joinFields resolves which right columns are copied and under which names.
func joinFields(left, right *model.Table, rightKey string, fields map[string]string) ([]model.Projection, error) {
	var mapping []model.Projection
	if len(fields) > 0 {
		targets := make(map[string]string, len(fields))
		for from, to := range fields {
			if !right.HasColumn(from) {
				return nil, &SchemaError{Source: right.Name, Column: from}
			}
			to = joinedName(left, right, to)
			if other, dup := targets[to]; dup {
				return nil, fmt.Errorf("join %s: columns %q and %q both map to %q", right.Name, other, from, to)
			}
			targets[to] = from
			mapping = append(mapping, model.Projection{From: from, To: to})
		}
		// map order is random; keep the right table's column order
		pos := columnPositions(right)
		sort.Slice(mapping, func(i, j int) bool { return pos[mapping[i].From] < pos[mapping[j].From] })
		return mapping, nil
	}

	for _, c := range right.Columns {
		if c == rightKey {
			continue
		}
		mapping = append(mapping, model.Projection{From: c, To: joinedName(left, right, c)})
	}
	return mapping, nil
}

// joinedName suffixes an output column that already exists on the left.
func joinedName(left, right *model.Table, name string) string {
	if left.HasColumn(name) {
		return name + "_" + right.Name
	}
	return name
}

func columnPositions(t *model.Table) map[string]int {
	pos := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		pos[c] = i
	}
	return pos
}
