package service

import (
	"fmt"
	"sort"
	"strings"

	"smartapp/internal/store"
	"smartapp/internal/synonyms"
	"smartapp/internal/table"
	"smartapp/internal/utils"
)

// keyIndex maps a normalized key (or its affixes) to row positions.
type keyIndex struct {
	exact   map[string][]int
	prefix3 map[string][]int
	prefix5 map[string][]int
	suffix3 map[string][]int
	suffix5 map[string][]int
}

func newKeyIndex() keyIndex {
	return keyIndex{
		exact:   map[string][]int{},
		prefix3: map[string][]int{},
		prefix5: map[string][]int{},
		suffix3: map[string][]int{},
		suffix5: map[string][]int{},
	}
}

func (ix keyIndex) add(k string, row int, suffixes bool) {
	ix.exact[k] = appendRow(ix.exact[k], row)
	r := []rune(k)
	if len(r) >= 3 {
		ix.prefix3[string(r[:3])] = appendRow(ix.prefix3[string(r[:3])], row)
		if suffixes {
			s := string(r[len(r)-3:])
			ix.suffix3[s] = appendRow(ix.suffix3[s], row)
		}
	}
	if len(r) >= 5 {
		ix.prefix5[string(r[:5])] = appendRow(ix.prefix5[string(r[:5])], row)
		if suffixes {
			s := string(r[len(r)-5:])
			ix.suffix5[s] = appendRow(ix.suffix5[s], row)
		}
	}
}

// appendRow skips a repeat of the last row; rows are added in order.
func appendRow(rows []int, row int) []int {
	if n := len(rows); n > 0 && rows[n-1] == row {
		return rows
	}
	return append(rows, row)
}

// Roles are the columns detected for each searchable role.
type Roles struct {
	Code        []string `json:"code"`
	Serial      []string `json:"serial"`
	MachineCode []string `json:"machine_code"`
	Name        []string `json:"name"`
}

// Snapshot is an immutable search index over one mapped dataset.
type Snapshot struct {
	Category string
	Stamp    store.Stamp
	Table    table.Table
	Roles    Roles

	code, serial, machineCode, name, nameToken keyIndex
	// codeKeys[row] are the normalized code cells of a row.
	codeKeys [][]string
	skipped  int
}

// BuildSnapshot applies the dataset mapping, hides empty columns and indexes
// every detected role column.
func BuildSnapshot(ds store.Dataset, syn *synonyms.Config) *Snapshot {
	t := table.DropEmptyColumns(table.ApplyMapping(ds.Table, ds.Mapping))
	s := &Snapshot{
		Category:    ds.Category,
		Stamp:       ds.Stamp(),
		Table:       t,
		code:        newKeyIndex(),
		serial:      newKeyIndex(),
		machineCode: newKeyIndex(),
		name:        newKeyIndex(),
		nameToken:   newKeyIndex(),
		codeKeys:    make([][]string, len(t.Rows)),
	}
	s.Roles = Roles{
		Code:        syn.Index.Code.Resolve(t.Columns),
		Serial:      syn.Index.Serial.Resolve(t.Columns),
		MachineCode: syn.Index.MachineCode.Resolve(t.Columns),
		Name:        syn.Index.Name.Resolve(t.Columns),
	}
	for i, r := range t.Rows {
		if err := s.indexRow(i, r); err != nil {
			s.skipped++
		}
	}
	return s
}

func (s *Snapshot) indexRow(i int, r table.Row) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("row %d: %v", i, rec)
		}
	}()
	for _, c := range s.Roles.Code {
		if k := cellKey(r[c]); k != "" {
			s.code.add(k, i, true)
			s.codeKeys[i] = append(s.codeKeys[i], k)
		}
	}
	for _, c := range s.Roles.Serial {
		if k := cellKey(r[c]); k != "" {
			s.serial.add(k, i, false)
		}
	}
	for _, c := range s.Roles.MachineCode {
		if k := cellKey(r[c]); k != "" {
			s.machineCode.add(k, i, false)
		}
	}
	for _, c := range s.Roles.Name {
		k := cellKey(r[c])
		if k == "" {
			continue
		}
		s.name.exact[k] = appendRow(s.name.exact[k], i)
		for _, tok := range strings.Fields(k) {
			s.nameToken.add(tok, i, false)
		}
	}
	return nil
}

// Skipped is the number of rows left out of the index.
func (s *Snapshot) Skipped() int { return s.skipped }

func cellKey(v string) string { return utils.SearchKey(utils.Textify(v)) }

// union merges row lists into one sorted, duplicate-free list.
func union(lists ...[]int) []int {
	seen := map[int]struct{}{}
	var out []int
	for _, l := range lists {
		for _, i := range l {
			if _, ok := seen[i]; !ok {
				seen[i] = struct{}{}
				out = append(out, i)
			}
		}
	}
	sort.Ints(out)
	return out
}

func intersect(a, b []int) []int {
	in := make(map[int]struct{}, len(a))
	for _, i := range a {
		in[i] = struct{}{}
	}
	var out []int
	for _, i := range b {
		if _, ok := in[i]; ok {
			out = append(out, i)
		}
	}
	return union(out)
}
