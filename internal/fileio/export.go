package fileio

import (
	"fmt"
	"io"
	"unicode/utf8"

	excelize "github.com/xuri/excelize/v2"

	"smartapp/internal/table"
)

const textNumFmt = 49 // "@"

// WriteXLSX writes t as a right-to-left sheet with a styled, frozen header.
func WriteXLSX(w io.Writer, t table.Table, sheet string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "data"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}
	rtl := true
	if err := f.SetSheetView(sheet, 0, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
		return err
	}

	border := []excelize.Border{
		{Type: "left", Color: "CCCCCC", Style: 1},
		{Type: "right", Color: "CCCCCC", Style: 1},
		{Type: "top", Color: "CCCCCC", Style: 1},
		{Type: "bottom", Color: "CCCCCC", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"E2E8F0"}, Pattern: 1},
		Alignment: center,
		Border:    border,
		NumFmt:    textNumFmt,
	})
	if err != nil {
		return err
	}
	cellStyle, err := f.NewStyle(&excelize.Style{Alignment: center, Border: border, NumFmt: textNumFmt})
	if err != nil {
		return err
	}

	widths := make([]int, len(t.Columns))
	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
		widths[i] = utf8.RuneCountInString(c)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for ri, r := range t.Rows {
		vals := make([]interface{}, len(t.Columns))
		for ci, c := range t.Columns {
			vals[ci] = r[c]
			if n := utf8.RuneCountInString(r[c]); n > widths[ci] {
				widths[ci] = n
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, ri+2)
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return err
		}
	}

	if n := len(t.Columns); n > 0 {
		last, _ := excelize.CoordinatesToCellName(n, 1)
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return err
		}
		if len(t.Rows) > 0 {
			end, _ := excelize.CoordinatesToCellName(n, len(t.Rows)+1)
			if err := f.SetCellStyle(sheet, "A2", end, cellStyle); err != nil {
				return err
			}
		}
		for i, wd := range widths {
			col, _ := excelize.ColumnNumberToName(i + 1)
			if err := f.SetColWidth(sheet, col, col, float64(min(wd+2, 60))); err != nil {
				return err
			}
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
