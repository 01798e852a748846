package merge

import (
	"strings"
	"testing"

	"smartapp/internal/table"
)

func tbl(cols []string, rows ...[]string) table.Table {
	return table.Coerce(table.FromRecords(cols, rows))
}

func TestEnrichFillsBlanksOnly(t *testing.T) {
	cols := []string{"رقم العميل", "اسم العميل", "X"}
	e := New(nil)

	base := tbl(cols, []string{"100", "Ali", ""})
	got, steps := e.MergeAll([]table.Table{base, tbl(cols, []string{"100", "Ali", "val"})}, "ration")
	if got.Rows[0]["X"] != "val" {
		t.Fatalf("X=%q want=%q", got.Rows[0]["X"], "val")
	}
	if len(steps) != 1 || strings.Join(steps[0].Keys, ",") != "رقم العميل,اسم العميل" {
		t.Fatalf("steps=%+v", steps)
	}

	got2, _ := e.MergeAll([]table.Table{got, tbl(cols, []string{"100", "Ali", "other"})}, "ration")
	if got2.Rows[0]["X"] != "val" {
		t.Fatalf("existing value overwritten: %q", got2.Rows[0]["X"])
	}
}

func TestEmptyBaseGivesEmpty(t *testing.T) {
	cols := []string{"رقم العميل", "اسم العميل"}
	got, steps := New(nil).MergeAll([]table.Table{{}, tbl(cols, []string{"1", "a"})}, "ration")
	if !got.Empty() || steps != nil {
		t.Fatalf("got=%+v steps=%+v", got, steps)
	}
}

func TestAppendsNewColumnsAndNormalizesKeys(t *testing.T) {
	base := tbl([]string{"رقم العميل", "اسم العميل", "A"},
		[]string{"١٢", "أحمد", "a1"},
		[]string{"13", "منى", "a2"},
	)
	other := tbl([]string{"B", "اسم العميل", "رقم العميل"},
		[]string{"b1", "احمد", "12"},
		[]string{"dup", "احمد", "12"},
	)
	got, _ := New(nil).MergeAll([]table.Table{base, other}, "ration")
	if strings.Join(got.Columns, "|") != "رقم العميل|اسم العميل|A|B" {
		t.Fatalf("columns=%q", got.Columns)
	}
	if got.Rows[0]["B"] != "b1" || got.Rows[0]["رقم العميل"] != "12" {
		t.Fatalf("row0=%v", got.Rows[0])
	}
	if got.Rows[1]["B"] != "" {
		t.Fatalf("unmatched row enriched: %v", got.Rows[1])
	}
}

func TestBakeriesPair(t *testing.T) {
	base := tbl([]string{"رقم المخبز", "اسم المخبز"}, []string{"7", "النور"})
	other := tbl([]string{"رقم المخبز", "اسم المخبز", "المحافظة"}, []string{"7", "النور", "سوهاج"})
	got, steps := New(nil).MergeAll([]table.Table{base, other}, "bakeries")
	if got.Rows[0]["المحافظة"] != "سوهاج" {
		t.Fatalf("row=%v steps=%+v", got.Rows[0], steps)
	}
	_, steps = New(nil).MergeAll([]table.Table{base, other}, "ration")
	if !steps[0].Skipped {
		t.Fatalf("ration should not join on bakery keys: %+v", steps)
	}
}

func TestOfficeKeys(t *testing.T) {
	base := tbl([]string{"رقم العميل", "اسم العميل", "الادارة", "المكتب"},
		[]string{"1", "a", "الجيزة", "الهرم"})
	empty := table.Table{}
	office := tbl([]string{"الادارة", "المكتب", "مدير المكتب"}, []string{"الجيزة", "الهرم", "سعيد"})
	got, steps := New(nil).MergeAll([]table.Table{base, empty, empty, empty, office}, "ration")
	if got.Rows[0]["مدير المكتب"] != "سعيد" {
		t.Fatalf("row=%v", got.Rows[0])
	}
	last := steps[len(steps)-1]
	if last.Kind != "office" || last.Position != 5 || strings.Join(last.Keys, ",") != "الادارة,المكتب" {
		t.Fatalf("step=%+v", last)
	}
}

func TestOfficeFallbackColumn(t *testing.T) {
	base := tbl([]string{"رقم العميل", "Branch Office"}, []string{"1", "North"})
	office := tbl([]string{"Branch Office", "Manager"}, []string{"North", "Sara"})
	tables := []table.Table{base, {}, {}, {}, {}, office}
	got, steps := New(nil).MergeAll(tables, "ration")
	if got.Rows[0]["Manager"] != "Sara" {
		t.Fatalf("row=%v steps=%+v", got.Rows[0], steps)
	}
	if steps[4].Keys[0] != "Branch Office" {
		t.Fatalf("step=%+v", steps[4])
	}
}

func TestMachineKindTransform(t *testing.T) {
	base := tbl([]string{"رقم العميل", "ماكينة رئيسية/فرعية"}, []string{"1", "0"}, []string{"2", "1"}, []string{"3", "x"})
	got, _ := New(nil).MergeAll([]table.Table{base}, "ration")
	want := []string{"رئيسية", "فرعية", "x"}
	for i, w := range want {
		if g := got.Rows[i]["ماكينة رئيسية/فرعية"]; g != w {
			t.Fatalf("row %d=%q want=%q", i, g, w)
		}
	}
	if base.Rows[0]["ماكينة رئيسية/فرعية"] != "0" {
		t.Fatalf("input mutated")
	}
}
