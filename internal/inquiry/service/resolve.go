package service

import (
	"strings"

	"smartapp/internal/inquiry/model"
	"smartapp/internal/table"
)

// Resolve returns the matching row positions for a search and the tier that
// produced them.
func (s *Snapshot) Resolve(searchType, query string) ([]int, string) {
	q := cellKey(query)
	if q == "" {
		return nil, ""
	}
	switch searchType {
	case model.SearchCode:
		if len(s.Roles.Code) == 0 {
			return s.scan(q), model.MatchScan
		}
		return s.resolveCode(q)
	case model.SearchSerial:
		if len(s.Roles.Serial) == 0 {
			return s.scan(q), model.MatchScan
		}
		return resolveExactPrefix(s.serial, q)
	case model.SearchMachineCode:
		if len(s.Roles.MachineCode) == 0 {
			return s.scan(q), model.MatchScan
		}
		return resolveExactPrefix(s.machineCode, q)
	case model.SearchName:
		if len(s.Roles.Name) == 0 {
			return s.scan(q), model.MatchScan
		}
		return s.resolveName(q)
	}
	return nil, ""
}

// resolveCode tries containment over the code cells, then rows whose code
// shares both the query's prefix and suffix.
func (s *Snapshot) resolveCode(q string) ([]int, string) {
	var hits []int
	for i, keys := range s.codeKeys {
		for _, k := range keys {
			if strings.Contains(k, q) {
				hits = append(hits, i)
				break
			}
		}
	}
	if len(hits) > 0 {
		return hits, model.MatchContainment
	}

	r := []rune(q)
	switch {
	case len(r) >= 5:
		hits = intersect(s.code.prefix5[string(r[:5])], s.code.suffix5[string(r[len(r)-5:])])
	case len(r) >= 3:
		hits = intersect(s.code.prefix3[string(r[:3])], s.code.suffix3[string(r[len(r)-3:])])
	}
	if len(hits) > 0 {
		return hits, model.MatchAffix
	}
	return nil, ""
}

func resolveExactPrefix(ix keyIndex, q string) ([]int, string) {
	if hits := ix.exact[q]; len(hits) > 0 {
		return union(hits), model.MatchExact
	}
	r := []rune(q)
	if len(r) >= 5 {
		if hits := ix.prefix5[string(r[:5])]; len(hits) > 0 {
			return union(hits), model.MatchPrefix
		}
	}
	if len(r) >= 3 {
		if hits := ix.prefix3[string(r[:3])]; len(hits) > 0 {
			return union(hits), model.MatchPrefix
		}
	}
	return nil, ""
}

// resolveName unions full-name hits with per-token hits; each token falls
// back from exact to 5- then 3-rune prefixes.
func (s *Snapshot) resolveName(q string) ([]int, string) {
	full := s.name.exact[q]
	lists := [][]int{full}
	for _, tok := range strings.Fields(q) {
		hits, _ := resolveExactPrefix(s.nameToken, tok)
		lists = append(lists, hits)
	}
	out := union(lists...)
	switch {
	case len(out) == 0:
		return nil, ""
	case len(full) > 0:
		return out, model.MatchExact
	default:
		return out, model.MatchToken
	}
}

// scan matches the query inside any cell of the row.
func (s *Snapshot) scan(q string) []int {
	var hits []int
	for i, r := range s.Table.Rows {
		for _, c := range s.Table.Columns {
			if strings.Contains(cellKey(r[c]), q) {
				hits = append(hits, i)
				break
			}
		}
	}
	return hits
}

// Rows returns the table restricted to positions.
func (s *Snapshot) Rows(idx []int) table.Table { return s.Table.Pick(idx) }
