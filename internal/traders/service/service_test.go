package service

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"smartapp/internal/identity"
	"smartapp/internal/inquiry/model"
	reports "smartapp/internal/reports/service"
	"smartapp/internal/store"
	"smartapp/internal/table"
)

type invalidator struct{ got []string }

func (i *invalidator) Invalidate(category string) { i.got = append(i.got, category) }

type purger struct{ n int }

func (p *purger) Purge(context.Context) error { p.n++; return nil }

type fixture struct {
	svc    *Service
	repo   *store.DatasetRepo
	index  *invalidator
	visits *purger
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := store.Open("sqlite", filepath.Join(t.TempDir(), "traders.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	f := fixture{repo: store.NewDatasetRepo(db), index: &invalidator{}, visits: &purger{}}
	f.svc = New(f.repo, f.index, f.visits, zerolog.Nop())
	f.svc.now = func() time.Time { return time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC) }
	return f
}

func csvUpload(name, body string) reports.Upload {
	return reports.Upload{Position: 1, Filename: name, Body: strings.NewReader(body)}
}

var admin = identity.Identity{ID: 1, Username: "admin", Role: identity.RoleAdmin}

func TestPrimaryImportViewExport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.ImportPrimary(ctx, csvUpload("primary.csv", "رقم العميل,اسم العميل,ملاحظات\n5,محمد,\n8,سعيد,\n"))
	if err != nil || res.Rows != 2 {
		t.Fatalf("import rows=%d err=%v", res.Rows, err)
	}
	if !reflect.DeepEqual(f.index.got, []string{model.TraderPrimary}) {
		t.Fatalf("invalidated=%q", f.index.got)
	}

	p, err := f.svc.ViewPrimary(ctx, reports.Query{})
	if err != nil || p.Total != 2 || len(p.Columns) != 3 {
		t.Fatalf("view total=%d cols=%q err=%v", p.Total, p.Columns, err)
	}
	p, err = f.svc.ViewPrimary(ctx, reports.Query{Q: "سعيد"})
	if err != nil || p.Total != 1 || len(p.Columns) != 2 {
		t.Fatalf("search total=%d cols=%q err=%v", p.Total, p.Columns, err)
	}

	if _, err := f.svc.SavePrimaryMapping(ctx, "", "اسم العميل=>الاسم"); err != nil {
		t.Fatalf("mapping: %v", err)
	}
	p, _ = f.svc.ViewPrimary(ctx, reports.Query{})
	if p.Columns[1] != "الاسم" || p.RenameLines == "" {
		t.Fatalf("mapped cols=%q", p.Columns)
	}

	var buf bytes.Buffer
	if err := f.svc.ExportPrimary(ctx, reports.Query{}, &buf); err != nil || buf.Len() == 0 {
		t.Fatalf("export err=%v size=%d", err, buf.Len())
	}
	if err := f.svc.ExportPrimary(ctx, reports.Query{Q: "لا يوجد"}, &buf); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("empty export err=%v", err)
	}
}

func TestPrimaryImportRejectsBadFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, up := range []reports.Upload{
		csvUpload("primary.pdf", "x"),
		csvUpload("primary.csv", ""),
	} {
		if _, err := f.svc.ImportPrimary(ctx, up); !errors.Is(err, model.ErrInvalidArgument) {
			t.Fatalf("%s: err=%v", up.Filename, err)
		}
	}
	if len(f.index.got) != 0 {
		t.Fatalf("nothing stored, yet invalidated %q", f.index.got)
	}
}

func TestFrequentImportAndPeriods(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.ImportFrequent(ctx, "2024-05", []reports.Upload{
		csvUpload("a.csv", "مسلسل,التاريخ\nS1,2024-05-01\n"),
		csvUpload("b.csv", "مسلسل,التاريخ,ملاحظة\nS2,2024-05-02,زيارة\n"),
		csvUpload("c.csv", "مسلسل\nS3\n"),
	}, "", "ملاحظة=>ملاحظات")
	if err != nil || res.Rows != 2 {
		t.Fatalf("import rows=%d err=%v", res.Rows, err)
	}
	if f.visits.n != 1 {
		t.Fatalf("purges=%d", f.visits.n)
	}
	if _, err := f.svc.ImportFrequent(ctx, "2023", []reports.Upload{csvUpload("y.csv", "مسلسل\nS9\n")}, "", ""); err != nil {
		t.Fatalf("year import: %v", err)
	}
	if err := f.svc.AppendRecent(ctx, 3, table.FromRecords([]string{"مسلسل", model.OrderColumn}, [][]string{{"S1", "1"}})); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := f.svc.Periods(ctx)
	if err != nil || !reflect.DeepEqual(got, []string{"2024-05", "2023"}) {
		t.Fatalf("periods=%q err=%v", got, err)
	}

	p, err := f.svc.ViewFrequent(ctx, "2024-05", reports.Query{})
	if err != nil || p.Total != 2 {
		t.Fatalf("view total=%d err=%v", p.Total, err)
	}
	found := false
	for _, c := range p.Columns {
		found = found || c == "ملاحظات"
	}
	if !found {
		t.Fatalf("mapping not applied: %q", p.Columns)
	}

	for _, label := range []string{"", "24-05", "2024-13"} {
		_, err := f.svc.ImportFrequent(ctx, label, []reports.Upload{csvUpload("a.csv", "x\n1\n")}, "", "")
		if !errors.Is(err, model.ErrInvalidArgument) {
			t.Fatalf("label %q: err=%v", label, err)
		}
	}
	if _, err := f.svc.ImportFrequent(ctx, "2024", nil, "", ""); !errors.Is(err, model.ErrInvalidArgument) {
		t.Fatalf("no files err=%v", err)
	}
}

func TestAddRecentAndView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := []RecentEntry{
		{FaultTypes: []string{"ريدر"}, OrderNumber: "1"},
		{Serial: "S1", OrderNumber: "1"},
		{Serial: "S1", FaultTypes: []string{"مروحة"}, OrderNumber: "1"},
		{Serial: "S1", FaultTypes: []string{"ريدر"}, OrderNumber: "1x"},
	}
	for _, e := range bad {
		if err := f.svc.AddRecent(ctx, admin, e); !errors.Is(err, model.ErrInvalidArgument) {
			t.Fatalf("%+v: err=%v", e, err)
		}
	}

	e := RecentEntry{Serial: "S1", CustomerCode: "5", FaultTypes: []string{"ريدر", "شحن"}, OrderNumber: "900", Maintenance: "أحمد"}
	if err := f.svc.AddRecent(ctx, admin, e); err != nil {
		t.Fatalf("add: %v", err)
	}
	e.FaultTypes = []string{"سوفت"}
	if err := f.svc.AddRecent(ctx, admin, e); err != nil {
		t.Fatalf("re-add: %v", err)
	}

	p, err := f.svc.ViewFrequent(ctx, "", reports.Query{})
	if err != nil || p.Total != 1 {
		t.Fatalf("same order must replace: total=%d err=%v", p.Total, err)
	}
	row := p.Rows[0]
	if row[colFaults] != "سوفت" || row[colType] != "شاشة الاستعلام" || row["صيانه"] != "أحمد" || row["خدمات"] != "admin" {
		t.Fatalf("row=%v", row)
	}
	if row["التاريخ"] != "2024-06-02 08:00:00" || row[model.PeriodColumn] != model.RecentLabel {
		t.Fatalf("row=%v", row)
	}
}

func TestProjectRecentCollapsesFaults(t *testing.T) {
	in := table.FromRecords(
		[]string{"القسم", "ريدر", "شبكه", "نوع العطل", model.OrderColumn},
		[][]string{{"تموين", "1", "1", "شاشه، ريدر", "7"}},
	)
	out := ProjectRecent(in)
	if !reflect.DeepEqual(out.Columns, projectedColumns) {
		t.Fatalf("cols=%q", out.Columns)
	}
	r := out.Rows[0]
	if r[colFaults] != "ريدر، شبكه، شاشه" || r[colType] != "تموين" || r["الاذن"] != "7" {
		t.Fatalf("row=%v", r)
	}
}

func TestRecentCountDeleteReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cols := []string{"مسلسل", model.OrderColumn}
	if err := f.svc.AppendRecent(ctx, 1, table.FromRecords(cols, [][]string{{"S1", "10"}, {"S2", "11"}})); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := f.svc.AppendRecent(ctx, 2, table.FromRecords(cols, [][]string{{"s1", "12"}, {"S3", "10"}})); err != nil {
		t.Fatalf("append: %v", err)
	}

	c, err := f.svc.RecentCount(ctx, "")
	if err != nil || c.Total != 4 || c.SerialDetails["S2"] != 1 || c.Label != model.RecentLabel {
		t.Fatalf("count=%+v err=%v", c, err)
	}
	c, _ = f.svc.RecentCount(ctx, "S1")
	if c.Total != 2 || len(c.SerialDetails) != 2 {
		t.Fatalf("serial count=%+v", c)
	}

	n, err := f.svc.DeleteRecent(ctx, "10")
	if err != nil || n != 2 {
		t.Fatalf("deleted=%d err=%v", n, err)
	}
	if _, err := f.svc.DeleteRecent(ctx, "10"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("second delete err=%v", err)
	}
	if _, err := f.svc.DeleteRecent(ctx, " "); !errors.Is(err, model.ErrInvalidArgument) {
		t.Fatalf("blank delete err=%v", err)
	}

	if err := f.svc.ResetRecent(ctx, identity.Identity{ID: 2}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	ds, err := f.repo.Load(ctx, model.RecentProgram, 2)
	if err != nil || ds.Table.Len() != 0 || !ds.Table.Has(model.OrderColumn) || ds.Table.Has("التاريخ") {
		t.Fatalf("reset table=%+v err=%v", ds.Table, err)
	}
	c, _ = f.svc.RecentCount(ctx, "")
	if c.Total != 1 {
		t.Fatalf("other users keep their rows: %+v", c)
	}
}
