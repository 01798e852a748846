package service

import (
	"sort"
	"strings"

	"smartapp/internal/inquiry/model"
	"smartapp/internal/synonyms"
	"smartapp/internal/table"
	"smartapp/internal/utils"
)

// primaryKeyCols finds the code and name columns of the primary-machines
// table: explicit names first, then columns scored by role and entity
// tokens, then any column holding a role token.
func primaryKeyCols(cols []string, pk synonyms.PrimaryKeys) (code, name string) {
	code = pickExplicit(cols, pk.CodeExact)
	name = pickExplicit(cols, pk.NameExact)
	if code == "" {
		code = pickScored(cols, pk.CodeTokens, pk.EntityTokens)
	}
	if name == "" {
		name = pickScored(cols, pk.NameTokens, pk.EntityTokens)
	}
	return code, name
}

func pickExplicit(cols, cands []string) string {
	present := make(map[string]bool, len(cols))
	for _, c := range cols {
		present[strings.TrimSpace(c)] = true
	}
	for _, c := range cands {
		if present[c] {
			return c
		}
	}
	return ""
}

func containsAny(s string, toks []string) bool {
	ls := strings.ToLower(s)
	for _, t := range toks {
		if strings.Contains(ls, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

// pickScored ranks columns holding a role token (2) and an entity token (1);
// ties go to the shorter name. Only columns with a role token qualify, so
// the any-role-token fallback is the lowest score.
func pickScored(cols, roleToks, entityToks []string) string {
	type cand struct {
		score int
		col   string
	}
	var ranked []cand
	for _, c := range cols {
		if !containsAny(c, roleToks) {
			continue
		}
		s := 2
		if containsAny(c, entityToks) {
			s++
		}
		ranked = append(ranked, cand{s, c})
	}
	if len(ranked) == 0 {
		return ""
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return len([]rune(ranked[i].col)) < len([]rune(ranked[j].col))
	})
	return ranked[0].col
}

// matchPrimary finds the customer's row in the primary-machines table:
// code and name both matching, else either one.
func matchPrimary(t table.Table, code, name string, pk synonyms.PrimaryKeys) (table.Row, string) {
	if t.Empty() {
		return nil, model.CrossNone
	}
	codeCol, nameCol := primaryKeyCols(t.Columns, pk)
	codeNorm := normOrEmpty(code)
	nameNorm := normOrEmpty(name)
	useCode := codeCol != "" && codeNorm != ""
	useName := nameCol != "" && nameNorm != ""
	if !useCode && !useName {
		return nil, model.CrossNone
	}

	codeHit := func(r table.Row) bool { return useCode && utils.TextKey(r[codeCol]) == codeNorm }
	nameHit := func(r table.Row) bool { return useName && utils.TextKey(r[nameCol]) == nameNorm }

	var inter []table.Row
	for _, r := range t.Rows {
		if (!useCode || codeHit(r)) && (!useName || nameHit(r)) {
			inter = append(inter, r)
		}
	}
	if len(inter) > 0 {
		return inter[0], model.CrossIntersection
	}

	var uni []table.Row
	for _, r := range t.Rows {
		if codeHit(r) || nameHit(r) {
			uni = append(uni, r)
		}
	}
	if len(uni) == 0 {
		return nil, model.CrossNone
	}
	best := uni[0]
	if len(uni) > 1 {
		pick := codeHit
		if useName {
			pick = nameHit
		}
		for _, r := range uni {
			if pick(r) {
				best = r
				break
			}
		}
	}
	return best, model.CrossUnion
}

func normOrEmpty(v string) string {
	if utils.Textify(v) == "" {
		return ""
	}
	return utils.TextKey(v)
}

// recordFields returns row as an ordered record over cols.
func recordFields(r table.Row, cols []string) model.Fields {
	out := make(model.Fields, 0, len(cols))
	for _, c := range cols {
		out = append(out, model.Field{Key: c, Value: utils.Textify(r[c])})
	}
	return out
}

// lookupFields fills each field from row, "-" when no source has a value.
func lookupFields(fields []synonyms.Field, row map[string]string) model.Fields {
	out := make(model.Fields, 0, len(fields))
	for _, f := range fields {
		v, ok := f.Lookup(row)
		if !ok {
			v = "-"
		}
		out = append(out, model.Field{Key: f.Key(), Value: v})
	}
	return out
}
