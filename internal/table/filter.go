package table

import (
	"strings"

	"smartapp/internal/utils"
)

// Filter keeps rows where any searched cell contains query after
// normalization. A nil cols searches every column; cols naming no existing
// column yield no rows.
func Filter(t Table, query string, cols []string) Table {
	q := utils.SearchKey(query)
	if q == "" {
		return t
	}
	search := t.Columns
	if cols != nil {
		search = nil
		for _, c := range cols {
			if t.Has(c) {
				search = append(search, c)
			}
		}
	}
	if len(search) == 0 {
		return Table{Columns: append([]string(nil), t.Columns...)}
	}
	return t.Where(func(r Row) bool {
		for _, c := range search {
			if strings.Contains(utils.SearchKey(r[c]), q) {
				return true
			}
		}
		return false
	})
}

// Page returns the rows of a 1-based page and the total row count.
func Page(t Table, page, size int) (Table, int) {
	total := len(t.Rows)
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = total
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return Table{Columns: t.Columns, Rows: t.Rows[start:end]}, total
}

// TotalPages is ceil(total/size), at least 1.
func TotalPages(total, size int) int {
	if size < 1 || total == 0 {
		return 1
	}
	return (total + size - 1) / size
}
