// Package service implements the report category screens: paged view,
// filtered export, multi-file import and column mapping.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"smartapp/internal/fileio"
	"smartapp/internal/inquiry/model"
	"smartapp/internal/merge"
	"smartapp/internal/store"
	"smartapp/internal/table"
)

// Store is the dataset persistence used by the report screens.
type Store interface {
	Load(ctx context.Context, category string, userID uint) (store.Dataset, error)
	Save(ctx context.Context, category string, userID uint, t *table.Table, m *table.Mapping) (store.Dataset, error)
}

// Invalidator drops a category's cached search index.
type Invalidator interface {
	Invalidate(category string)
}

// Upload is one file posted into an import slot.
type Upload struct {
	Position int
	Filename string
	Body     io.Reader
}

type ImportResult struct {
	Succeeded []string     `json:"succeeded"`
	Failed    []string     `json:"failed"`
	Rows      int          `json:"rows"`
	Steps     []merge.Step `json:"steps"`
	Message   string       `json:"message"`
}

type Service struct {
	ds    Store
	merge *merge.Engine
	index Invalidator
	log   zerolog.Logger
}

func New(ds Store, m *merge.Engine, index Invalidator, log zerolog.Logger) *Service {
	return &Service{ds: ds, merge: m, index: index, log: log.With().Str("component", "reports").Logger()}
}

func checkCategory(category string) error {
	if !model.ValidCategory(category) {
		return model.Invalid("قسم غير موجود")
	}
	return nil
}

// load returns the user's dataset, an empty one when nothing is stored.
func (s *Service) load(ctx context.Context, category string, userID uint) (store.Dataset, error) {
	ds, err := s.ds.Load(ctx, category, userID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Dataset{Category: category}, nil
	}
	return ds, err
}

// View renders one page of the category through its mapping and filter.
func (s *Service) View(ctx context.Context, category string, userID uint, q Query) (Page, error) {
	if err := checkCategory(category); err != nil {
		return Page{}, err
	}
	ds, err := s.load(ctx, category, userID)
	if err != nil {
		return Page{}, err
	}
	return Render(ds.Table, ds.Mapping, q, true), nil
}

// Export writes the filtered, mapped category as an xlsx workbook.
func (s *Service) Export(ctx context.Context, category string, userID uint, q Query, w io.Writer) error {
	if err := checkCategory(category); err != nil {
		return err
	}
	ds, err := s.load(ctx, category, userID)
	if err != nil {
		return err
	}
	if ds.Table.Empty() {
		return model.NotFound("لا توجد بيانات لتصديرها. برجاء الاستيراد أولاً بواسطة الأدمن.")
	}
	return fileio.WriteXLSX(w, Prepare(ds.Table, ds.Mapping, q, true), "data")
}

// ExportName is the download name of a category export.
func ExportName(category string) string {
	return model.CategoryLabel(category) + "_export.xlsx"
}

// Import reads every upload, merges them onto the first and stores the
// result. Unreadable or empty files keep their slot so later files join
// with the keys of their own position.
func (s *Service) Import(ctx context.Context, category string, userID uint, files []Upload) (ImportResult, error) {
	if err := checkCategory(category); err != nil {
		return ImportResult{}, err
	}
	if len(files) == 0 {
		return ImportResult{}, model.Invalid("برجاء اختيار ملف (المسلسلات) على الأقل.")
	}
	if len(files) > merge.MaxFiles {
		files = files[:merge.MaxFiles]
	}
	start := time.Now()

	res := ImportResult{Succeeded: []string{}, Failed: []string{}}
	tables := make([]table.Table, 0, len(files))
	for _, f := range files {
		t, err := fileio.ReadTable(f.Body, f.Filename)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("file", f.Filename).Int("position", f.Position).Msg("import read")
			res.Failed = append(res.Failed, fmt.Sprintf("%s (الموقع: ملف %d - فشل حاد في القراءة)", f.Filename, f.Position))
			t = table.Table{}
		case t.Empty():
			res.Failed = append(res.Failed, fmt.Sprintf("%s (الموقع: ملف %d - فارغ/فشل في القراءة)", f.Filename, f.Position))
		default:
			res.Succeeded = append(res.Succeeded, f.Filename)
		}
		tables = append(tables, t)
	}
	if len(res.Succeeded) == 0 {
		return res, model.Invalid("تعذر قراءة الملفات: " + strings.Join(res.Failed, "، "))
	}

	out, steps := s.merge.MergeAll(tables, category)
	res.Steps = steps
	if out.Empty() {
		return res, model.Invalid("تم قراءة الملفات، لكن عملية الدمج لم تنتج عنها سجلات صالحة.")
	}
	if _, err := s.ds.Save(ctx, category, userID, &out, nil); err != nil {
		return res, err
	}
	s.index.Invalidate(category)

	res.Rows = out.Len()
	res.Message = fmt.Sprintf("تم استيراد ودمج %d ملف(ات) بنجاح. إجمالي السجلات بعد الدمج: %d", len(res.Succeeded), res.Rows)
	if len(res.Failed) > 0 {
		res.Message += ". ملاحظة: لم يتم استخدام/قراءة الملفات التالية: " + strings.Join(res.Failed, ", ")
	}
	s.log.Info().
		Str("category", category).
		Int("files", len(files)).
		Int("failed", len(res.Failed)).
		Int("rows", res.Rows).
		Dur("elapsed", time.Since(start)).
		Msg("import")
	return res, nil
}

// SaveMapping stores the user's column order and renames for category.
func (s *Service) SaveMapping(ctx context.Context, category string, userID uint, orderCSV, renameLines string) (table.Mapping, error) {
	if err := checkCategory(category); err != nil {
		return table.Mapping{}, err
	}
	m := table.Mapping{
		Order:  table.ParseOrderCSV(orderCSV),
		Rename: table.ParseRenameLines(renameLines),
	}
	if _, err := s.ds.Save(ctx, category, userID, nil, &m); err != nil {
		return table.Mapping{}, err
	}
	s.index.Invalidate(category)
	return m, nil
}
