package fileio

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"smartapp/internal/table"
)

// ErrUnsupported is returned for file types no reader handles.
var ErrUnsupported = errors.New("unsupported file type")

// ReadTable picks a reader by extension and returns the first sheet as a
// coerced all-text table. The first row is the header.
func ReadTable(r io.Reader, filename string) (table.Table, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	var (
		rows [][]string
		err  error
	)
	switch ext {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(r)
	case ".xls":
		rows, err = readXLS(r)
	case ".csv", ".txt":
		rows, err = readCSV(r)
	default:
		return table.Table{}, fmt.Errorf("%w: %s", ErrUnsupported, filename)
	}
	if err != nil {
		return table.Table{}, fmt.Errorf("read %s: %w", filename, err)
	}
	return rowsToTable(rows), nil
}

// pickHeader takes the first row and fills blank names with "Column N".
func pickHeader(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}
	h := rows[0]
	out := make([]string, len(h))
	for i, v := range h {
		v = table.CleanName(v)
		if v == "" {
			v = fmt.Sprintf("Column %d", i+1)
		}
		out[i] = v
	}
	return out
}

// rowsToTable converts a grid to a table, skipping fully empty rows.
func rowsToTable(rows [][]string) table.Table {
	h := pickHeader(rows)
	if len(h) == 0 {
		return table.Table{}
	}
	var body [][]string
	for _, rec := range rows[1:] {
		empty := true
		for _, v := range rec {
			if strings.TrimSpace(v) != "" {
				empty = false
				break
			}
		}
		if !empty {
			body = append(body, rec)
		}
	}
	return table.Coerce(table.FromRecords(h, body))
}
