package service

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	excelize "github.com/xuri/excelize/v2"

	"smartapp/internal/inquiry/model"
	"smartapp/internal/merge"
	"smartapp/internal/store"
	"smartapp/internal/table"
)

type invalidations []string

func (i *invalidations) Invalidate(category string) { *i = append(*i, category) }

func newService(t *testing.T) (*Service, *store.DatasetRepo, *invalidations) {
	t.Helper()
	db, err := store.Open("sqlite", filepath.Join(t.TempDir(), "reports.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	repo := store.NewDatasetRepo(db)
	inv := &invalidations{}
	return New(repo, merge.New(nil), inv, zerolog.Nop()), repo, inv
}

func csvUpload(pos int, name, body string) Upload {
	return Upload{Position: pos, Filename: name, Body: strings.NewReader(body)}
}

func TestImportMergesAndKeepsFailedSlots(t *testing.T) {
	svc, _, inv := newService(t)
	ctx := context.Background()

	res, err := svc.Import(ctx, "ration", 1, []Upload{
		csvUpload(1, "serials.csv", "رقم العميل,اسم العميل,مسلسل الماكينة\n5,محمد,SN1\n6,سعيد,SN2\n"),
		csvUpload(2, "broken.pdf", "%PDF"),
		csvUpload(3, "phones.csv", "رقم العميل,اسم العميل,رقم المحمول\n5,محمد,هاتف-1\n"),
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Rows != 2 || len(res.Succeeded) != 2 || len(res.Failed) != 1 {
		t.Fatalf("res=%+v", res)
	}
	if !strings.Contains(res.Failed[0], "ملف 2") {
		t.Fatalf("failed=%q", res.Failed)
	}
	if len(*inv) != 1 || (*inv)[0] != "ration" {
		t.Fatalf("invalidations=%q", *inv)
	}

	p, err := svc.View(ctx, "ration", 1, Query{})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if p.Total != 2 || p.PageSize != DefaultPageSize || !p.HasData {
		t.Fatalf("page=%+v", p)
	}
	if got := strings.Join(p.Columns, "|"); got != "رقم العميل|اسم العميل|مسلسل الماكينة|رقم المحمول" {
		t.Fatalf("columns=%q", got)
	}
	if p.Rows[0]["رقم المحمول"] != "هاتف-1" {
		t.Fatalf("row0=%v", p.Rows[0])
	}
}

func TestImportRejects(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Import(ctx, "ration", 1, nil); !errors.Is(err, model.ErrInvalidArgument) {
		t.Fatalf("no files err=%v", err)
	}
	if _, err := svc.Import(ctx, "cars", 1, []Upload{csvUpload(1, "a.csv", "a\n1\n")}); !errors.Is(err, model.ErrInvalidArgument) {
		t.Fatalf("bad category err=%v", err)
	}
	if _, err := svc.Import(ctx, "ration", 1, []Upload{csvUpload(1, "a.doc", "x")}); !errors.Is(err, model.ErrInvalidArgument) {
		t.Fatalf("unreadable err=%v", err)
	}
}

func TestViewFiltersAndPaginates(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()

	var rows [][]string
	for i := 0; i < 30; i++ {
		name := "سعيد"
		if i%3 == 0 {
			name = "محمد"
		}
		rows = append(rows, []string{"1" + strings.Repeat("0", i%4), name, ""})
	}
	tb := table.Coerce(table.FromRecords([]string{"رقم العميل", "اسم العميل", "فارغ"}, rows))
	if _, err := repo.Save(ctx, "bakeries", 1, &tb, nil); err != nil {
		t.Fatalf("save: %v", err)
	}

	p, err := svc.View(ctx, "bakeries", 2, Query{Q: "محمد", SearchIn: "اسم العميل", Page: 2, PageSize: 5})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if p.Total != 10 || p.PageSize != MinPageSize || p.TotalPages != 1 || len(p.Rows) != 0 {
		t.Fatalf("total=%d size=%d pages=%d rows=%d", p.Total, p.PageSize, p.TotalPages, len(p.Rows))
	}
	if p.Page != 2 {
		t.Fatalf("page=%d", p.Page)
	}

	p, _ = svc.View(ctx, "bakeries", 2, Query{Q: "محمد", SearchIn: "غير موجود"})
	if p.Total != 0 || len(p.Columns) != 0 || !p.HasData {
		t.Fatalf("unknown column: %+v", p)
	}

	p, _ = svc.View(ctx, "bakeries", 2, Query{})
	for _, c := range p.Columns {
		if c == "فارغ" {
			t.Fatalf("empty column kept: %q", p.Columns)
		}
	}
}

func TestSaveMappingAppliesOnView(t *testing.T) {
	svc, repo, inv := newService(t)
	ctx := context.Background()
	tb := table.Coerce(table.FromRecords([]string{"Code", "Client", "Note"}, [][]string{{"1", "Sara", "x"}}))
	if _, err := repo.Save(ctx, "substitute", 1, &tb, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	m, err := svc.SaveMapping(ctx, "substitute", 1, "اسم العميل, Code", "Client=>اسم العميل\nbad line")
	if err != nil {
		t.Fatalf("mapping: %v", err)
	}
	if len(m.Rename) != 1 || len(m.Order) != 2 || len(*inv) != 1 {
		t.Fatalf("mapping=%+v inv=%q", m, *inv)
	}
	p, _ := svc.View(ctx, "substitute", 1, Query{})
	if strings.Join(p.Columns, "|") != "اسم العميل|Code" {
		t.Fatalf("columns=%q", p.Columns)
	}
	if p.OrderCSV != "اسم العميل,Code" || p.RenameLines != "Client=>اسم العميل" {
		t.Fatalf("order=%q rename=%q", p.OrderCSV, p.RenameLines)
	}
}

func TestExport(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()

	var buf bytes.Buffer
	if err := svc.Export(ctx, "ration", 1, Query{}, &buf); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("empty export err=%v", err)
	}

	tb := table.Coerce(table.FromRecords([]string{"رقم العميل", "اسم العميل"}, [][]string{{"5", "محمد"}, {"6", "سعيد"}}))
	if _, err := repo.Save(ctx, "ration", 1, &tb, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := svc.Export(ctx, "ration", 1, Query{Q: "سعيد"}, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("data")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 2 || rows[1][1] != "سعيد" {
		t.Fatalf("rows=%q", rows)
	}
	if ExportName("ration") != "تموين_export.xlsx" {
		t.Fatalf("name=%q", ExportName("ration"))
	}
}

func TestClampPageSize(t *testing.T) {
	for in, want := range map[int]int{0: 25, 3: 10, 50: 50, 5000: 1000} {
		if got := ClampPageSize(in); got != want {
			t.Fatalf("ClampPageSize(%d)=%d want=%d", in, got, want)
		}
	}
}
