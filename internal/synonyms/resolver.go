package synonyms

import (
	"strings"

	"smartapp/internal/utils"
)

// Tier is one strategy of a Rule. Exact names match verbatim and are
// returned in Exact order; the substring predicates compare lower-cased
// names and return columns in table order.
type Tier struct {
	Exact   []string `yaml:"exact,omitempty"`
	Any     []string `yaml:"any,omitempty"`
	All     []string `yaml:"all,omitempty"`
	Equal   []string `yaml:"equal,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// Rule is an ordered list of tiers; the first tier with a match wins.
// Fuzzy > 0 adds a last tier matching columns whose similarity to an exact
// name reaches the threshold.
type Rule struct {
	Tiers []Tier  `yaml:"tiers"`
	Fuzzy float64 `yaml:"fuzzy,omitempty"`
}

// Resolve returns every column of the winning tier.
func (r Rule) Resolve(cols []string) []string {
	return r.resolve(cols, nil)
}

// First returns the best column, skipping columns in taken.
func (r Rule) First(cols []string, taken map[string]bool) string {
	if got := r.resolve(cols, taken); len(got) > 0 {
		return got[0]
	}
	return ""
}

func (r Rule) resolve(cols []string, taken map[string]bool) []string {
	for _, t := range r.Tiers {
		if got := t.match(cols, taken); len(got) > 0 {
			return got
		}
	}
	if r.Fuzzy > 0 {
		return r.fuzzy(cols, taken)
	}
	return nil
}

func (t Tier) match(cols []string, taken map[string]bool) []string {
	var out []string
	if len(t.Exact) > 0 {
		present := make(map[string]bool, len(cols))
		for _, c := range cols {
			present[c] = true
		}
		for _, e := range t.Exact {
			if present[e] && !taken[e] && !t.excluded(e) {
				out = append(out, e)
				present[e] = false
			}
		}
		return out
	}
	for _, c := range cols {
		if taken[c] || t.excluded(c) {
			continue
		}
		lc := strings.ToLower(c)
		if t.predicate(lc) {
			out = append(out, c)
		}
	}
	return out
}

func (t Tier) predicate(lc string) bool {
	for _, e := range t.Equal {
		if lc == strings.ToLower(e) {
			return true
		}
	}
	for _, a := range t.Any {
		if strings.Contains(lc, strings.ToLower(a)) {
			return true
		}
	}
	if len(t.All) > 0 {
		for _, a := range t.All {
			if !strings.Contains(lc, strings.ToLower(a)) {
				return false
			}
		}
		return true
	}
	return false
}

func (t Tier) excluded(c string) bool {
	lc := strings.ToLower(c)
	for _, x := range t.Exclude {
		if strings.Contains(lc, strings.ToLower(x)) {
			return true
		}
	}
	return false
}

func (r Rule) fuzzy(cols []string, taken map[string]bool) []string {
	var names []string
	for _, t := range r.Tiers {
		names = append(names, t.Exact...)
	}
	bestCol, best := "", 0.0
	for _, c := range cols {
		if taken[c] {
			continue
		}
		kc := utils.SearchKey(c)
		for _, n := range names {
			if s := BestSimilarity(kc, utils.SearchKey(n)); s > best {
				best, bestCol = s, c
			}
		}
	}
	if bestCol != "" && best >= r.Fuzzy {
		return []string{bestCol}
	}
	return nil
}

// Lookup returns the first source of f with a non-empty value in row. A
// field without sources reads its own name.
func (f Field) Lookup(row map[string]string) (string, bool) {
	srcs := f.Sources
	if len(srcs) == 0 {
		srcs = []string{f.Name}
	}
	for _, s := range srcs {
		if v, ok := row[s]; ok && utils.Textify(v) != "" {
			return v, true
		}
	}
	return "", false
}

// Key is the output name of a field.
func (f Field) Key() string {
	if f.Output != "" {
		return f.Output
	}
	return f.Name
}

// FirstPair returns the first pair whose two columns satisfy has.
func FirstPair(pairs []Pair, has func(string) bool) (Pair, bool) {
	for _, p := range pairs {
		if has(p.Code) && has(p.Name) {
			return p, true
		}
	}
	return Pair{}, false
}
