package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"smartapp/internal/fileio"
	"smartapp/internal/inquiry/model"
	reports "smartapp/internal/reports/service"
	"smartapp/internal/table"
)

// MaxFrequentFiles bounds one period import.
const MaxFrequentFiles = 2

const recentKey = "recent_program"

// ImportFrequent stores the concatenated files under the period label. A
// non-blank mapping replaces the shared frequent mapping.
func (s *Service) ImportFrequent(ctx context.Context, label string, files []reports.Upload, orderCSV, renameLines string) (ImportResult, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return ImportResult{}, model.Invalid("أدخل اسم الفترة للاستيراد (مثال: 2025 أو 2025-01).")
	}
	if _, err := model.ParsePeriodLabel(label); err != nil {
		return ImportResult{}, model.Invalid("اسم الفترة يجب أن يكون بصيغة YYYY أو YYYY-MM أو YYYY/MM.")
	}
	if len(files) == 0 {
		return ImportResult{}, model.Invalid("اختر ملفًا واحدًا على الأقل للاستيراد.")
	}
	if len(files) > MaxFrequentFiles {
		files = files[:MaxFrequentFiles]
	}

	var parts []table.Table
	for _, f := range files {
		t, err := fileio.ReadTable(f.Body, f.Filename)
		if err != nil {
			s.log.Warn().Err(err).Str("file", f.Filename).Msg("frequent import read")
			return ImportResult{}, model.Invalid("تعذر قراءة الملف: " + f.Filename)
		}
		if !t.Empty() {
			parts = append(parts, t)
		}
	}
	combined := table.Concat(parts...)
	if combined.Empty() {
		return ImportResult{}, model.Invalid("الملفات لا تحتوي على بيانات صالحة.")
	}

	if _, err := s.ds.Save(ctx, model.FrequentPrefix+label, sharedOwner, &combined, nil); err != nil {
		return ImportResult{}, err
	}
	if strings.TrimSpace(orderCSV) != "" || strings.TrimSpace(renameLines) != "" {
		m := mappingOf(orderCSV, renameLines)
		if _, err := s.ds.Save(ctx, model.FrequentMapping, sharedOwner, nil, &m); err != nil {
			return ImportResult{}, err
		}
	}
	s.purge(ctx)

	s.log.Info().Str("label", label).Int("files", len(parts)).Int("rows", combined.Len()).Msg("frequent import")
	return ImportResult{
		Label:   label,
		Rows:    combined.Len(),
		Message: fmt.Sprintf("تم استيراد %d سجل للفترة %s.", combined.Len(), label),
	}, nil
}

func (s *Service) SaveFrequentMapping(ctx context.Context, orderCSV, renameLines string) (table.Mapping, error) {
	m := mappingOf(orderCSV, renameLines)
	if _, err := s.ds.Save(ctx, model.FrequentMapping, sharedOwner, nil, &m); err != nil {
		return table.Mapping{}, err
	}
	s.purge(ctx)
	return m, nil
}

// Periods lists the imported period labels, newest first.
func (s *Service) Periods(ctx context.Context) ([]string, error) {
	cats, err := s.ds.Categories(ctx, model.FrequentPrefix)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, c := range cats {
		l := strings.TrimPrefix(c, model.FrequentPrefix)
		if l == "" || l == recentKey || strings.Contains(l, "__mapping__") {
			continue
		}
		out = append(out, l)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}

// frequent returns the period's rows; a blank label selects the recent
// program projection.
func (s *Service) frequent(ctx context.Context, label string) (table.Table, table.Mapping, error) {
	ms, err := s.shared(ctx, model.FrequentMapping)
	if err != nil {
		return table.Table{}, table.Mapping{}, err
	}
	label = strings.TrimSpace(label)
	if label == "" || label == recentKey {
		t, err := s.recent(ctx)
		if err != nil {
			return table.Table{}, table.Mapping{}, err
		}
		return ProjectRecent(t), ms.Mapping, nil
	}
	ds, err := s.shared(ctx, model.FrequentPrefix+label)
	if err != nil {
		return table.Table{}, table.Mapping{}, err
	}
	return ds.Table, ms.Mapping, nil
}

func (s *Service) ViewFrequent(ctx context.Context, label string, q reports.Query) (reports.Page, error) {
	t, m, err := s.frequent(ctx, label)
	if err != nil {
		return reports.Page{}, err
	}
	return reports.Render(t, m, q, q.Q != ""), nil
}

func (s *Service) ExportFrequent(ctx context.Context, label string, q reports.Query, w io.Writer) error {
	t, m, err := s.frequent(ctx, label)
	if err != nil {
		return err
	}
	out := reports.Prepare(t, m, q, true)
	if out.Empty() {
		return model.NotFound("لا توجد بيانات لتصديرها.")
	}
	return fileio.WriteXLSX(w, out, "visits")
}

// FrequentExportName is the download name of a period export.
func FrequentExportName(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		label = recentKey
	}
	return "الزيارات_" + strings.ReplaceAll(label, "/", "-") + ".xlsx"
}
