package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"smartapp/internal/inquiry/model"
	"smartapp/internal/store"
	"smartapp/internal/synonyms"
	"smartapp/internal/table"
	"smartapp/internal/utils"
)

// default entity keys when a group has none
var fallbackKeys = []string{"رقم العميل", "اسم العميل"}

// Service answers inquiry searches over the imported report categories.
type Service struct {
	index  *IndexCache
	ds     Datasets
	visits *Visits
	syn    *synonyms.Config
	log    zerolog.Logger
}

func New(index *IndexCache, ds Datasets, visits *Visits, syn *synonyms.Config, log zerolog.Logger) *Service {
	return &Service{
		index:  index,
		ds:     ds,
		visits: visits,
		syn:    syn,
		log:    log.With().Str("component", "inquiry").Logger(),
	}
}

// Normalize checks a request and fills the default visit period.
func Normalize(req model.Request) (model.Request, error) {
	req.Category = strings.TrimSpace(req.Category)
	req.SearchType = strings.TrimSpace(req.SearchType)
	req.Query = strings.TrimSpace(req.Query)
	switch req.SearchType {
	case model.SearchCode, model.SearchSerial, model.SearchName, model.SearchMachineCode:
	default:
		return req, model.Invalid("بيانات بحث غير صالحة.")
	}
	if !model.ValidCategory(req.Category) || req.Query == "" {
		return req, model.Invalid("بيانات بحث غير صالحة.")
	}
	switch strings.TrimSpace(req.VisitPeriod) {
	case model.PeriodMonth, model.PeriodYear:
		req.VisitPeriod = strings.TrimSpace(req.VisitPeriod)
	default:
		req.VisitPeriod = model.PeriodRecent
	}
	return req, nil
}

// Search resolves the query, groups the hits into entities and assembles the
// first entity's record. Missing data yields a model.ErrNotFound failure.
func (s *Service) Search(ctx context.Context, req model.Request) (*model.Result, error) {
	start := time.Now()
	req, err := Normalize(req)
	if err != nil {
		return nil, err
	}
	label := model.CategoryLabel(req.Category)

	snap, err := s.index.Get(ctx, req.Category, req.UserID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.log.Error().Err(err).Str("category", req.Category).Msg("load index")
	}
	if err != nil || snap.Table.Empty() {
		return nil, model.NotFound(fmt.Sprintf("لا توجد بيانات مستوردة لقسم %s.", label))
	}

	idx, mode := snap.Resolve(req.SearchType, req.Query)
	if len(idx) == 0 {
		return nil, model.NotFound(fmt.Sprintf("لم يتم العثور على نتائج للبحث عن \"%s\".", req.Query))
	}

	hits := table.DropEmptyColumns(snap.Rows(idx))
	groups := Group(hits, req.Category, s.syn)
	if len(groups) == 0 {
		return nil, model.NotFound("تم العثور على سجلات، لكن لم يتم تجميعها في كيان صالح (برجاء التحقق من أعمدة رقم العميل/اسم العميل).")
	}

	res := s.assemble(ctx, req, groups)
	res.MatchMode = mode
	res.Cols = snap.Table.Columns

	s.log.Info().
		Str("category", req.Category).
		Str("type", req.SearchType).
		Str("mode", mode).
		Int("rows", len(idx)).
		Int("entities", len(groups)).
		Str("primary", res.PrimaryMatchMode).
		Dur("elapsed", time.Since(start)).
		Msg("inquiry")
	return res, nil
}

func (s *Service) assemble(ctx context.Context, req model.Request, groups []model.Entity) *model.Result {
	first := groups[0]
	common := append(model.Fields(nil), first.CommonData...)

	keys := first.GroupKeys
	if len(keys) < 2 {
		keys = fallbackKeys
	}
	code, ok := common.Get(keys[0])
	if !ok {
		code = "-"
	}
	name, ok := common.Get(keys[1])
	if !ok {
		name = "-"
	}

	cm := common.Map()
	dynamic := lookupFields(s.syn.DynamicFields, cm)
	for _, f := range s.syn.DynamicFields {
		for _, src := range f.Sources {
			common.Delete(src)
		}
	}

	res := &model.Result{
		Success:          true,
		Items:            groups,
		DynamicFields:    dynamic,
		PrimaryMatchMode: model.CrossNone,
	}

	pt := s.primaryTable(ctx)
	if row, mode := matchPrimary(pt, code, name, s.syn.Primary); row != nil {
		res.PrimaryRecord = recordFields(row, pt.Columns)
		res.PrimaryMatchMode = mode
		for _, f := range s.syn.PrimaryFields {
			if v, ok := f.Lookup(row); ok {
				res.DynamicFields.Set(f.Key(), v)
			}
		}
		res.BranchSection = lookupFields(s.syn.BranchFields, row)
	}

	var serials []string
	for _, d := range first.MachineDetails {
		res.SerialList = append(res.SerialList, serialItem(d, s.syn.Machine))
		if v, ok := d.Get(s.syn.Machine.SerialField); ok && utils.Textify(v) != "" {
			serials = append(serials, v)
		}
	}

	res.CustomerData = lookupFields(s.syn.CustomerFields, common.Map())
	res.VisitData, res.VisitPeriod = s.visits.Aggregate(ctx, req.Category, code, name, serials, req.VisitPeriod)

	n := len(groups)
	res.Message = fmt.Sprintf("تم العثور على %d سجل(ات) كيان مطابق. (العميل: %s)", n, name)
	if n > 1 {
		res.Message += " يمكنك التنقل بين الكيانات باستخدام أزرار التنقل أو مفتاحي السهمين (↑ و ↓)."
	}
	return res
}

// primaryTable loads the mapped primary-machines dataset; any failure gives
// an empty table.
func (s *Service) primaryTable(ctx context.Context) table.Table {
	ds, err := s.ds.LoadShared(ctx, model.TraderPrimary)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Warn().Err(err).Msg("load primary machines")
		}
		return table.Table{}
	}
	m := ds.Mapping
	if mds, err := s.ds.LoadShared(ctx, model.TraderPrimaryMapping); err == nil && !mds.Mapping.IsEmpty() {
		m = mds.Mapping
	}
	return table.DropEmptyColumns(table.ApplyMapping(ds.Table, m))
}
