// Package service runs the trader screens: the primary/branch machine list,
// the frequent-visit period imports and the recent-program visit log.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"smartapp/internal/fileio"
	"smartapp/internal/inquiry/model"
	reports "smartapp/internal/reports/service"
	"smartapp/internal/store"
	"smartapp/internal/table"
)

// sharedOwner owns the datasets every user sees; recent-program rows stay
// under the user who wrote them.
const sharedOwner uint = 0

// PrimaryExportName is the download name of the primary list export.
const PrimaryExportName = "الماكينات_الأساسية_وماكينات_الفرع.xlsx"

type Store interface {
	LoadShared(ctx context.Context, category string) (store.Dataset, error)
	LoadAll(ctx context.Context, category string) ([]store.Dataset, error)
	Save(ctx context.Context, category string, userID uint, t *table.Table, m *table.Mapping) (store.Dataset, error)
	Update(ctx context.Context, category string, userID uint, fn func(*table.Table) error) (store.Dataset, error)
	Categories(ctx context.Context, prefix string) ([]string, error)
}

// Invalidator drops a cached search index.
type Invalidator interface {
	Invalidate(category string)
}

// Purger drops cached visit sources.
type Purger interface {
	Purge(ctx context.Context) error
}

type ImportResult struct {
	Label   string `json:"label,omitempty"`
	Rows    int    `json:"rows"`
	Message string `json:"message"`
}

type Service struct {
	ds     Store
	index  Invalidator
	visits Purger
	log    zerolog.Logger
	now    func() time.Time
}

func New(ds Store, index Invalidator, visits Purger, log zerolog.Logger) *Service {
	return &Service{
		ds:     ds,
		index:  index,
		visits: visits,
		log:    log.With().Str("component", "traders").Logger(),
		now:    time.Now,
	}
}

// shared returns the shared dataset of category, empty when none is stored.
func (s *Service) shared(ctx context.Context, category string) (store.Dataset, error) {
	ds, err := s.ds.LoadShared(ctx, category)
	if errors.Is(err, store.ErrNotFound) {
		return store.Dataset{Category: category}, nil
	}
	return ds, err
}

func (s *Service) purge(ctx context.Context) {
	if err := s.visits.Purge(ctx); err != nil {
		s.log.Warn().Err(err).Msg("visit cache purge")
	}
}

func mappingOf(orderCSV, renameLines string) table.Mapping {
	return table.Mapping{
		Order:  table.ParseOrderCSV(orderCSV),
		Rename: table.ParseRenameLines(renameLines),
	}
}

// ImportPrimary replaces the primary/branch machine list.
func (s *Service) ImportPrimary(ctx context.Context, up reports.Upload) (ImportResult, error) {
	t, err := fileio.ReadTable(up.Body, up.Filename)
	if err != nil {
		s.log.Warn().Err(err).Str("file", up.Filename).Msg("primary import read")
		return ImportResult{}, model.Invalid("تعذر قراءة الملف: " + up.Filename)
	}
	if t.Empty() {
		return ImportResult{}, model.Invalid("الملف فارغ أو لا يحتوي على بيانات صالحة.")
	}
	if _, err := s.ds.Save(ctx, model.TraderPrimary, sharedOwner, &t, nil); err != nil {
		return ImportResult{}, err
	}
	s.index.Invalidate(model.TraderPrimary)
	s.log.Info().Str("file", up.Filename).Int("rows", t.Len()).Msg("primary import")
	return ImportResult{Rows: t.Len(), Message: fmt.Sprintf("تم استيراد %d سجل بنجاح.", t.Len())}, nil
}

func (s *Service) primary(ctx context.Context) (table.Table, table.Mapping, error) {
	ds, err := s.shared(ctx, model.TraderPrimary)
	if err != nil {
		return table.Table{}, table.Mapping{}, err
	}
	ms, err := s.shared(ctx, model.TraderPrimaryMapping)
	if err != nil {
		return table.Table{}, table.Mapping{}, err
	}
	return ds.Table, ms.Mapping, nil
}

// ViewPrimary pages the primary list. Blank columns are hidden only while a
// search is active.
func (s *Service) ViewPrimary(ctx context.Context, q reports.Query) (reports.Page, error) {
	t, m, err := s.primary(ctx)
	if err != nil {
		return reports.Page{}, err
	}
	return reports.Render(t, m, q, q.Q != ""), nil
}

func (s *Service) SavePrimaryMapping(ctx context.Context, orderCSV, renameLines string) (table.Mapping, error) {
	m := mappingOf(orderCSV, renameLines)
	if _, err := s.ds.Save(ctx, model.TraderPrimaryMapping, sharedOwner, nil, &m); err != nil {
		return table.Mapping{}, err
	}
	return m, nil
}

// ExportPrimary writes the filtered primary list as xlsx.
func (s *Service) ExportPrimary(ctx context.Context, q reports.Query, w io.Writer) error {
	t, m, err := s.primary(ctx)
	if err != nil {
		return err
	}
	out := reports.Prepare(t, m, q, true)
	if out.Empty() {
		return model.NotFound("لا توجد بيانات لتصديرها.")
	}
	return fileio.WriteXLSX(w, out, "primary")
}
