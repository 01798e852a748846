// Package table holds the all-text tabular model shared by import, merge and search.
package table

import (
	"strings"

	"smartapp/internal/utils"
)

// Row maps a column name to its cell text.
type Row map[string]string

// Table is an ordered set of columns plus rows keyed by column name.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Empty reports whether the table has no columns or no rows.
func (t Table) Empty() bool { return len(t.Columns) == 0 || len(t.Rows) == 0 }

func (t Table) Len() int { return len(t.Rows) }

func (t Table) Has(col string) bool { return t.Index(col) >= 0 }

func (t Table) Index(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Values returns the column's cells in row order.
func (t Table) Values(col string) []string {
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[col]
	}
	return out
}

// Pick returns the rows at the given positions, keeping all columns.
func (t Table) Pick(idx []int) Table {
	rows := make([]Row, 0, len(idx))
	for _, i := range idx {
		if i >= 0 && i < len(t.Rows) {
			rows = append(rows, t.Rows[i])
		}
	}
	return Table{Columns: append([]string(nil), t.Columns...), Rows: rows}
}

// Where keeps the rows for which keep returns true.
func (t Table) Where(keep func(Row) bool) Table {
	rows := make([]Row, 0, len(t.Rows))
	for _, r := range t.Rows {
		if keep(r) {
			rows = append(rows, r)
		}
	}
	return Table{Columns: append([]string(nil), t.Columns...), Rows: rows}
}

// WithColumn sets col to value on every row, appending the column when new.
func (t Table) WithColumn(col, value string) Table {
	out := Table{Columns: append([]string(nil), t.Columns...), Rows: make([]Row, len(t.Rows))}
	if !out.Has(col) {
		out.Columns = append(out.Columns, col)
	}
	for i, r := range t.Rows {
		nr := make(Row, len(r)+1)
		for k, v := range r {
			nr[k] = v
		}
		nr[col] = value
		out.Rows[i] = nr
	}
	return out
}

// FromRecords builds a table from a header and a raw grid. Duplicate header
// names keep the first column.
func FromRecords(header []string, records [][]string) Table {
	t := Table{}
	pos := make([]int, 0, len(header))
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		t.Columns = append(t.Columns, h)
		pos = append(pos, i)
	}
	for _, rec := range records {
		r := make(Row, len(t.Columns))
		for j, c := range t.Columns {
			if p := pos[j]; p < len(rec) {
				r[c] = rec[p]
			} else {
				r[c] = ""
			}
		}
		t.Rows = append(t.Rows, r)
	}
	return t
}

// Concat stacks tables; columns are the union in first-seen order.
func Concat(tables ...Table) Table {
	out := Table{}
	seen := map[string]struct{}{}
	for _, t := range tables {
		for _, c := range t.Columns {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				out.Columns = append(out.Columns, c)
			}
		}
	}
	for _, t := range tables {
		for _, r := range t.Rows {
			nr := make(Row, len(out.Columns))
			for _, c := range out.Columns {
				nr[c] = r[c]
			}
			out.Rows = append(out.Rows, nr)
		}
	}
	return out
}

// DedupeBy drops rows whose col value repeats, keeping the last occurrence
// (keepLast) or the first. Without col whole rows are compared.
func DedupeBy(t Table, col string, keepLast bool) Table {
	key := func(r Row) string {
		if col != "" && t.Has(col) {
			return "k:" + strings.TrimSpace(r[col])
		}
		var b strings.Builder
		for _, c := range t.Columns {
			b.WriteString(r[c])
			b.WriteByte(0)
		}
		return "r:" + b.String()
	}
	keep := make([]bool, len(t.Rows))
	seen := map[string]int{}
	for i, r := range t.Rows {
		k := key(r)
		if prev, ok := seen[k]; ok {
			if keepLast {
				keep[prev] = false
				keep[i] = true
				seen[k] = i
			}
			continue
		}
		seen[k] = i
		keep[i] = true
	}
	out := Table{Columns: append([]string(nil), t.Columns...)}
	for i, r := range t.Rows {
		if keep[i] {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// CleanName trims a column name and flattens embedded line breaks.
func CleanName(s string) string {
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
	return strings.TrimSpace(s)
}

// Coerce returns an all-text copy with clean, unique column names.
func Coerce(t Table) Table {
	if len(t.Columns) == 0 {
		return t
	}
	cols := make([]string, 0, len(t.Columns))
	src := make([]string, 0, len(t.Columns))
	seen := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		n := CleanName(c)
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		cols = append(cols, n)
		src = append(src, c)
	}
	rows := make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		nr := make(Row, len(cols))
		for j, c := range cols {
			nr[c] = utils.Textify(r[src[j]])
		}
		rows[i] = nr
	}
	return Table{Columns: cols, Rows: rows}
}
