package table

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"smartapp/internal/utils"
)

// Mapping is a read-time column rename plus display order.
type Mapping struct {
	Rename map[string]string `json:"rename,omitempty"`
	Order  []string          `json:"order,omitempty"`
}

func (m Mapping) IsEmpty() bool { return len(m.Rename) == 0 && len(m.Order) == 0 }

// Hash is a stable signature of the mapping content.
func (m Mapping) Hash() string {
	if m.IsEmpty() {
		m = Mapping{}
	}
	// encoding/json sorts map keys
	b, _ := json.Marshal(m)
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}

// OrderCSV renders Order the way the mapping form edits it.
func (m Mapping) OrderCSV() string { return strings.Join(m.Order, ",") }

// RenameLines renders Rename as sorted "old=>new" lines.
func (m Mapping) RenameLines() string {
	keys := make([]string, 0, len(m.Rename))
	for k := range m.Rename {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + "=>" + m.Rename[k]
	}
	return strings.Join(lines, "\n")
}

// ParseOrderCSV splits a comma-separated column list, dropping blanks.
func ParseOrderCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseRenameLines reads one "old=>new" pair per line.
func ParseRenameLines(s string) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(s, "\n") {
		old, repl, ok := strings.Cut(line, "=>")
		if !ok {
			continue
		}
		old, repl = strings.TrimSpace(old), strings.TrimSpace(repl)
		if old != "" && repl != "" {
			out[old] = repl
		}
	}
	return out
}

// ApplyMapping renames, then projects to the existing Order entries.
// A mapping whose Order names no existing column keeps every column.
func ApplyMapping(t Table, m Mapping) Table {
	if m.IsEmpty() || t.Empty() {
		return t
	}
	renamed := Table{Rows: make([]Row, len(t.Rows))}
	src := make([]string, 0, len(t.Columns))
	seen := map[string]struct{}{}
	for _, c := range t.Columns {
		n := c
		if r, ok := m.Rename[c]; ok && r != "" {
			n = r
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		renamed.Columns = append(renamed.Columns, n)
		src = append(src, c)
	}
	for i, r := range t.Rows {
		nr := make(Row, len(renamed.Columns))
		for j, c := range renamed.Columns {
			nr[c] = r[src[j]]
		}
		renamed.Rows[i] = nr
	}

	if len(m.Order) > 0 {
		var keep []string
		used := map[string]struct{}{}
		for _, c := range m.Order {
			if _, dup := used[c]; dup || !renamed.Has(c) {
				continue
			}
			used[c] = struct{}{}
			keep = append(keep, c)
		}
		if len(keep) > 0 {
			renamed.Columns = keep
		}
	}
	return Coerce(renamed)
}

// DropEmptyColumns hides columns with no meaningful value in any row. The
// returned rows carry only the kept columns.
func DropEmptyColumns(t Table) Table {
	if len(t.Columns) == 0 {
		return t
	}
	var keep []string
	for _, c := range t.Columns {
		for _, r := range t.Rows {
			if !utils.IsEmptyToken(r[c]) {
				keep = append(keep, c)
				break
			}
		}
	}
	rows := make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		nr := make(Row, len(keep))
		for _, c := range keep {
			nr[c] = r[c]
		}
		rows[i] = nr
	}
	return Table{Columns: keep, Rows: rows}
}
