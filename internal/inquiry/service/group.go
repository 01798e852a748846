package service

import (
	"smartapp/internal/inquiry/model"
	"smartapp/internal/synonyms"
	"smartapp/internal/table"
	"smartapp/internal/utils"
)

// groupKeys picks the (code, name) columns entities are grouped by. It
// returns nil when no pair exists.
func groupKeys(cols []string, category string, syn *synonyms.Config) []string {
	has := make(map[string]bool, len(cols))
	for _, c := range cols {
		has[c] = true
	}
	if p, ok := synonyms.FirstPair(syn.GroupingPairs(category), func(c string) bool { return has[c] }); ok {
		return []string{p.Code, p.Name}
	}
	code := syn.Grouping.Code.First(cols, nil)
	if code == "" {
		return nil
	}
	name := syn.Grouping.Name.First(cols, map[string]bool{code: true})
	if name == "" {
		return nil
	}
	return []string{code, name}
}

// Group splits rows into entities by their key pair, in first-appearance
// order. Rows with a blank pair, or all rows when no pair exists, become
// entities of their own.
func Group(t table.Table, category string, syn *synonyms.Config) []model.Entity {
	if t.Empty() {
		return nil
	}
	keys := groupKeys(t.Columns, category, syn)

	var groups [][]table.Row
	pos := map[string]int{}
	for _, r := range t.Rows {
		if keys == nil {
			groups = append(groups, []table.Row{r})
			continue
		}
		code := utils.TextKey(r[keys[0]])
		name := utils.TextKey(r[keys[1]])
		if code == "" && name == "" {
			groups = append(groups, []table.Row{r})
			continue
		}
		k := code + "\x00" + name
		if i, ok := pos[k]; ok {
			groups[i] = append(groups[i], r)
			continue
		}
		pos[k] = len(groups)
		groups = append(groups, []table.Row{r})
	}

	exclude := map[string]bool{}
	for _, f := range syn.Machine.Fields {
		exclude[f.Name] = true
	}
	for _, c := range syn.Machine.ExcludeFromCommon {
		exclude[c] = true
	}

	out := make([]model.Entity, 0, len(groups))
	for _, rows := range groups {
		e := model.Entity{GroupKeys: keys}
		if e.GroupKeys == nil {
			e.GroupKeys = []string{}
		}
		first := rows[0]
		for _, c := range t.Columns {
			if !exclude[c] {
				e.CommonData = append(e.CommonData, model.Field{Key: c, Value: first[c]})
			}
		}
		e.MachineDetails = machineDetails(rows, t.Columns, syn.Machine)
		out = append(out, e)
	}
	return out
}

// machineDetails builds one detail record per row. Blank SIM slots are
// filled from other rows of the group with the same machine code.
func machineDetails(rows []table.Row, cols []string, m synonyms.Machine) []model.Fields {
	codeCol := m.CodeField
	present := make(map[string]bool, len(cols))
	for _, c := range cols {
		present[c] = true
	}
	for _, f := range m.Fields {
		if f.Name != m.CodeField {
			continue
		}
		for _, src := range f.Sources {
			if present[src] {
				codeCol = src
				break
			}
		}
	}

	simField := map[string]synonyms.Field{}
	for _, f := range m.Fields {
		for _, s := range m.SimFields {
			if f.Name == s {
				simField[s] = f
			}
		}
	}

	sims := map[string]map[string]string{}
	for _, r := range rows {
		mc := utils.Textify(r[codeCol])
		if mc == "" {
			continue
		}
		if sims[mc] == nil {
			sims[mc] = map[string]string{}
		}
		for _, s := range m.SimFields {
			f, ok := simField[s]
			if !ok {
				f = synonyms.Field{Name: s}
			}
			if v, ok := f.Lookup(r); ok {
				sims[mc][s] = v
			}
		}
	}

	out := make([]model.Fields, 0, len(rows))
	for _, r := range rows {
		mc := utils.Textify(r[codeCol])
		var d model.Fields
		for _, f := range m.Fields {
			v := utils.Textify(r[f.Name])
			if v == "" && mc != "" {
				if sv, ok := sims[mc][f.Name]; ok {
					v = utils.Textify(sv)
				}
			}
			if v == "" {
				if lv, ok := f.Lookup(r); ok {
					v = utils.Textify(lv)
				}
			}
			d = append(d, model.Field{Key: f.Name, Value: utils.Dash(v)})
		}
		out = append(out, d)
	}
	return out
}

// serialItem renames a machine detail record to its display keys.
func serialItem(d model.Fields, m synonyms.Machine) model.Fields {
	out := make(model.Fields, 0, len(m.Fields))
	for _, f := range m.Fields {
		v, ok := d.Get(f.Name)
		if !ok {
			v = "-"
		}
		out = append(out, model.Field{Key: f.Key(), Value: v})
	}
	return out
}
