// Package merge combines up to six uploaded sheets of a report category into
// one table by left-enriching the first sheet.
package merge

import (
	"strings"

	"smartapp/internal/synonyms"
	"smartapp/internal/table"
	"smartapp/internal/utils"
)

// MaxFiles is the number of upload slots of a category.
const MaxFiles = 6

const (
	machineKindCol = "ماكينة رئيسية/فرعية"
	kindMain       = "رئيسية"
	kindBranch     = "فرعية"
)

// Step records how one enrichment table was joined.
type Step struct {
	Position int      `json:"position"`
	Kind     string   `json:"kind"`
	Keys     []string `json:"keys,omitempty"`
	Skipped  bool     `json:"skipped"`
}

type Engine struct {
	syn *synonyms.Config
}

func New(syn *synonyms.Config) *Engine {
	if syn == nil {
		syn = synonyms.Default()
	}
	return &Engine{syn: syn}
}

// MergeAll enriches tables[0] with the others: positions 1..3 join on entity
// keys, 4..5 on office keys. Existing base values are never overwritten.
func (e *Engine) MergeAll(tables []table.Table, category string) (table.Table, []Step) {
	if len(tables) == 0 || tables[0].Empty() {
		return table.Table{}, nil
	}
	if len(tables) > MaxFiles {
		tables = tables[:MaxFiles]
	}

	out := tables[0]
	var steps []Step
	for i := 1; i < len(tables); i++ {
		other := tables[i]
		st := Step{Position: i + 1, Kind: "entity"}
		if i >= 4 {
			st.Kind = "office"
		}
		if other.Empty() {
			st.Skipped = true
			steps = append(steps, st)
			continue
		}
		if st.Kind == "entity" {
			st.Keys = e.entityKeys(out, other, category)
		} else {
			st.Keys = e.officeKeys(out, other)
		}
		if len(st.Keys) == 0 {
			st.Skipped = true
			steps = append(steps, st)
			continue
		}
		out = Enrich(out, other, st.Keys)
		steps = append(steps, st)
	}
	return table.Coerce(standardize(out)), steps
}

func (e *Engine) entityKeys(base, other table.Table, category string) []string {
	both := func(c string) bool { return base.Has(c) && other.Has(c) }
	if p, ok := synonyms.FirstPair(e.syn.EntityPairs(category), both); ok {
		return []string{p.Code, p.Name}
	}
	return nil
}

func (e *Engine) officeKeys(base, other table.Table) []string {
	both := func(c string) bool { return base.Has(c) && other.Has(c) }
	if p, ok := synonyms.FirstPair(e.syn.Merge.Office, both); ok {
		return []string{p.Code, p.Name}
	}
	for _, c := range base.Columns {
		if !other.Has(c) {
			continue
		}
		lc := strings.ToLower(c)
		for _, tok := range e.syn.Merge.OfficeTokens {
			if strings.Contains(lc, strings.ToLower(tok)) {
				return []string{c}
			}
		}
	}
	return nil
}

// Enrich left-joins other onto base by keys. Key cells are normalized on
// both sides; the first other row per key wins; base cells are only filled
// when blank; columns only other has are appended in its order.
func Enrich(base, other table.Table, keys []string) table.Table {
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}

	lookup := make(map[string]table.Row, len(other.Rows))
	for _, r := range other.Rows {
		k, ok := joinKey(r, keys)
		if !ok {
			continue
		}
		if _, dup := lookup[k]; !dup {
			lookup[k] = r
		}
	}

	cols := append([]string(nil), base.Columns...)
	for _, c := range other.Columns {
		if !isKey[c] && !base.Has(c) {
			cols = append(cols, c)
		}
	}

	rows := make([]table.Row, len(base.Rows))
	for i, r := range base.Rows {
		nr := make(table.Row, len(cols))
		for _, c := range base.Columns {
			nr[c] = r[c]
		}
		for _, k := range keys {
			nr[k] = utils.NormalizeKey(r[k])
		}
		if k, ok := joinKey(r, keys); ok {
			if src, hit := lookup[k]; hit {
				for _, c := range other.Columns {
					if isKey[c] {
						continue
					}
					if strings.TrimSpace(nr[c]) == "" {
						nr[c] = src[c]
					}
				}
			}
		}
		rows[i] = nr
	}
	return table.Table{Columns: cols, Rows: rows}
}

func joinKey(r table.Row, keys []string) (string, bool) {
	parts := make([]string, len(keys))
	set := false
	for i, k := range keys {
		parts[i] = utils.NormalizeKey(utils.Textify(r[k]))
		if parts[i] != "" {
			set = true
		}
	}
	return strings.Join(parts, "\x00"), set
}

func standardize(t table.Table) table.Table {
	if !t.Has(machineKindCol) {
		return t
	}
	out := table.Table{Columns: t.Columns, Rows: make([]table.Row, len(t.Rows))}
	for i, r := range t.Rows {
		nr := make(table.Row, len(r))
		for k, v := range r {
			nr[k] = v
		}
		switch utils.Textify(r[machineKindCol]) {
		case "0":
			nr[machineKindCol] = kindMain
		case "1":
			nr[machineKindCol] = kindBranch
		}
		out.Rows[i] = nr
	}
	return out
}
