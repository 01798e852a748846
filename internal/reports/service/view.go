package service

import (
	"strings"

	"smartapp/internal/table"
)

const (
	DefaultPageSize = 25
	MinPageSize     = 10
	MaxPageSize     = 1000
)

// Query selects a filtered page of a dataset.
type Query struct {
	Q        string
	SearchIn string // column name, or "all"
	Page     int
	PageSize int
}

func (q Query) normalized() Query {
	q.Q = strings.TrimSpace(q.Q)
	if q.Page < 1 {
		q.Page = 1
	}
	q.PageSize = ClampPageSize(q.PageSize)
	return q
}

// ClampPageSize bounds n to [MinPageSize, MaxPageSize]; zero means default.
func ClampPageSize(n int) int {
	switch {
	case n == 0:
		return DefaultPageSize
	case n < MinPageSize:
		return MinPageSize
	case n > MaxPageSize:
		return MaxPageSize
	}
	return n
}

func (q Query) searchCols() []string {
	s := strings.TrimSpace(q.SearchIn)
	if s == "" || s == "all" {
		return nil
	}
	return []string{s}
}

// Page is one rendered page of a dataset plus its mapping in form text.
type Page struct {
	HasData     bool        `json:"has_data"`
	Columns     []string    `json:"cols"`
	Rows        []table.Row `json:"rows"`
	SearchCols  []string    `json:"search_cols"`
	Total       int         `json:"total"`
	Page        int         `json:"page"`
	PageSize    int         `json:"page_size"`
	TotalPages  int         `json:"total_pages"`
	Q           string      `json:"q"`
	SearchIn    string      `json:"search_in"`
	OrderCSV    string      `json:"order_csv"`
	RenameLines string      `json:"rename_lines"`
}

// Prepare maps, filters and, when dropEmpty is set, drops blank columns.
func Prepare(t table.Table, m table.Mapping, q Query, dropEmpty bool) table.Table {
	q = q.normalized()
	out := table.Filter(table.ApplyMapping(t, m), q.Q, q.searchCols())
	if dropEmpty {
		out = table.DropEmptyColumns(out)
	}
	return out
}

// Render returns the requested page of t.
func Render(t table.Table, m table.Mapping, q Query, dropEmpty bool) Page {
	q = q.normalized()
	p := Page{
		HasData:     !t.Empty(),
		Columns:     []string{},
		Rows:        []table.Row{},
		SearchCols:  []string{},
		Page:        q.Page,
		PageSize:    q.PageSize,
		TotalPages:  1,
		Q:           q.Q,
		SearchIn:    q.SearchIn,
		OrderCSV:    m.OrderCSV(),
		RenameLines: m.RenameLines(),
	}
	if p.SearchIn == "" {
		p.SearchIn = "all"
	}
	if t.Empty() {
		return p
	}
	visible := Prepare(t, m, q, dropEmpty)
	if visible.Empty() {
		return p
	}
	pg, total := table.Page(visible, q.Page, q.PageSize)
	p.Columns = pg.Columns
	p.Rows = pg.Rows
	p.SearchCols = visible.Columns
	p.Total = total
	p.TotalPages = table.TotalPages(total, q.PageSize)
	return p
}
