package fileio

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"

	"smartapp/internal/table"
)

func TestReadCSVWithBOM(t *testing.T) {
	src := "\ufeffرقم العميل,اسم العميل\n123,أحمد\n,\n456,منى\n"
	got, err := ReadTable(strings.NewReader(src), "clients.csv")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(got.Columns) != 2 || got.Columns[0] != "رقم العميل" {
		t.Fatalf("columns = %q", got.Columns)
	}
	if got.Len() != 2 {
		t.Fatalf("rows = %d, want 2 (blank row skipped)", got.Len())
	}
	if got.Rows[1]["اسم العميل"] != "منى" {
		t.Fatalf("row 2 = %v", got.Rows[1])
	}
}

func TestReadCSVWindows1256(t *testing.T) {
	text := "الادارة;المكتب;رقم العميل\nالقاهرة;مكتب وسط البلد;5001\nالجيزة;مكتب الهرم;5002\n"
	enc, err := charmap.Windows1256.NewEncoder().String(text)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := ReadTable(strings.NewReader(enc), "legacy.csv")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(got.Columns) != 3 || got.Columns[1] != "المكتب" {
		t.Fatalf("columns = %q", got.Columns)
	}
	if got.Rows[0]["المكتب"] != "مكتب وسط البلد" {
		t.Fatalf("decoded cell = %q", got.Rows[0]["المكتب"])
	}
}

func TestBlankHeaderNamed(t *testing.T) {
	got, err := ReadTable(strings.NewReader("a,,c\n1,2,3\n"), "x.txt")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if got.Columns[1] != "Column 2" {
		t.Fatalf("columns = %q", got.Columns)
	}
}

func TestUnsupported(t *testing.T) {
	_, err := ReadTable(strings.NewReader(""), "notes.pdf")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	in := table.Table{
		Columns: []string{"رقم الماكينة", "مسلسل الماكينة", "ملاحظات"},
		Rows: []table.Row{
			{"رقم الماكينة": "224000000109", "مسلسل الماكينة": "89201000012345678901", "ملاحظات": ""},
			{"رقم الماكينة": "A-7", "مسلسل الماكينة": "SN-1", "ملاحظات": "تم"},
		},
	}
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, in, "تقرير"); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}
	out, err := ReadTable(&buf, "report.xlsx")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if strings.Join(out.Columns, "|") != strings.Join(in.Columns, "|") {
		t.Fatalf("columns = %q", out.Columns)
	}
	if out.Len() != 2 {
		t.Fatalf("rows = %d", out.Len())
	}
	if out.Rows[0]["مسلسل الماكينة"] != "89201000012345678901" {
		t.Fatalf("long serial = %q", out.Rows[0]["مسلسل الماكينة"])
	}
	if out.Rows[1]["رقم الماكينة"] != "A-7" || out.Rows[1]["ملاحظات"] != "تم" {
		t.Fatalf("row 2 = %v", out.Rows[1])
	}
}

func TestSniffDelimiter(t *testing.T) {
	if d := sniffDelimiter([]byte("a\tb\tc\n1,2")); d != '\t' {
		t.Fatalf("delimiter = %q", d)
	}
	if d := sniffDelimiter([]byte("a,b;c")); d != ',' {
		t.Fatalf("delimiter = %q", d)
	}
}
