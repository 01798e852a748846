package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"smartapp/internal/cache"
	"smartapp/internal/inquiry/model"
	"smartapp/internal/store"
	"smartapp/internal/synonyms"
	"smartapp/internal/table"
	"smartapp/internal/utils"
)

// Standard visit column names.
const (
	visitDate   = "التاريخ"
	visitSerial = "مسلسل"
	visitCode   = "رقم العميل"
	visitName   = "اسم العميل"
	visitType   = "النوع"
)

// Sources of visit history, highest priority first.
const (
	sourceRecent = "recent_program"
	sourceYear   = "year"
	sourceMonth  = "month"
	sourceLegacy = "visit_history"
)

// Excel day serial of 1970-01-01; smaller numbers are not taken for dates
// when guessing a date column.
const minGuessSerial = 25569

// visitSource is the loaded, mapped visit table plus where it came from.
type visitSource struct {
	Table      table.Table `json:"table"`
	Source     string      `json:"source"`
	MonthLabel string      `json:"month_label,omitempty"`
	YearLabel  string      `json:"year_label,omitempty"`
}

// Visits aggregates visit history for an entity. The loaded source is kept
// in a TTL cache.
type Visits struct {
	ds    Datasets
	cache cache.TTL
	ttl   time.Duration
	syn   *synonyms.Config
	log   zerolog.Logger
	now   func() time.Time
}

func NewVisits(ds Datasets, c cache.TTL, ttl time.Duration, syn *synonyms.Config, log zerolog.Logger) *Visits {
	return &Visits{
		ds: ds, cache: c, ttl: ttl, syn: syn,
		log: log.With().Str("component", "visits").Logger(),
		now: time.Now,
	}
}

// Purge drops cached visit sources; call it after any visit data write.
func (v *Visits) Purge(ctx context.Context) error {
	return v.cache.DeletePrefix(ctx, model.VisitCachePrefix)
}

func (v *Visits) source(ctx context.Context) (visitSource, error) {
	now := v.now()
	key := model.VisitCachePrefix + "source:" + now.Format("2006-01")
	if b, ok, err := v.cache.Get(ctx, key); err == nil && ok {
		var src visitSource
		if err := json.Unmarshal(b, &src); err == nil {
			return src, nil
		}
	} else if err != nil {
		v.log.Warn().Err(err).Msg("visit cache get")
	}

	src, err := v.loadSource(ctx, now)
	if err != nil {
		return visitSource{}, err
	}
	if b, err := json.Marshal(src); err == nil {
		if err := v.cache.Set(ctx, key, b, v.ttl); err != nil {
			v.log.Warn().Err(err).Msg("visit cache set")
		}
	}
	return src, nil
}

func (v *Visits) mapping(ctx context.Context, category string) table.Mapping {
	ds, err := v.ds.LoadShared(ctx, category)
	if err != nil {
		return table.Mapping{}
	}
	return ds.Mapping
}

// concat loads every stored dataset of category, maps it and tags its rows
// with label.
func (v *Visits) concat(ctx context.Context, category, label string, m table.Mapping) (table.Table, error) {
	all, err := v.ds.LoadAll(ctx, category)
	if err != nil {
		return table.Table{}, err
	}
	var parts []table.Table
	for _, ds := range all {
		t := table.ApplyMapping(ds.Table, m)
		if t.Empty() {
			continue
		}
		parts = append(parts, t.WithColumn(model.PeriodColumn, label))
	}
	return table.DropEmptyColumns(table.Concat(parts...)), nil
}

func (v *Visits) loadSource(ctx context.Context, now time.Time) (visitSource, error) {
	m := v.mapping(ctx, model.FrequentMapping)

	recent, err := v.concat(ctx, model.RecentProgram, model.RecentLabel, m)
	if err != nil {
		return visitSource{}, err
	}
	if !recent.Empty() {
		return visitSource{Table: recent, Source: sourceRecent}, nil
	}

	year := now.Format("2006")
	month := now.Format("2006-01")

	cats, err := v.ds.Categories(ctx, model.FrequentPrefix)
	if err != nil {
		return visitSource{}, err
	}
	var yearCats, monthsOfYear, months []model.PeriodLabel
	for _, c := range cats {
		p, err := model.ParsePeriodLabel(strings.TrimPrefix(c, model.FrequentPrefix))
		if err != nil {
			continue
		}
		switch {
		case p.Month == "" && p.Year == year:
			yearCats = append(yearCats, p)
		case p.Month != "":
			months = append(months, p)
			if p.Year == year {
				monthsOfYear = append(monthsOfYear, p)
			}
		}
	}

	var yearParts []table.Table
	if len(yearCats) > 0 {
		for _, p := range yearCats {
			t, err := v.concat(ctx, model.FrequentPrefix+p.Raw, p.Year, m)
			if err != nil {
				return visitSource{}, err
			}
			yearParts = append(yearParts, t)
		}
	} else {
		for _, p := range monthsOfYear {
			t, err := v.concat(ctx, model.FrequentPrefix+p.Raw, p.Month, m)
			if err != nil {
				return visitSource{}, err
			}
			yearParts = append(yearParts, t)
		}
	}
	if yt := table.DropEmptyColumns(table.Concat(yearParts...)); !yt.Empty() {
		return visitSource{Table: yt, Source: sourceYear, YearLabel: year}, nil
	}

	if len(months) > 0 {
		sort.Slice(months, func(i, j int) bool { return months[i].Month > months[j].Month })
		pick := months[0]
		for _, p := range months {
			if p.Month == month {
				pick = p
				break
			}
		}
		t, err := v.concat(ctx, model.FrequentPrefix+pick.Raw, pick.Month, m)
		if err != nil {
			return visitSource{}, err
		}
		if !t.Empty() {
			return visitSource{Table: t, Source: sourceMonth, MonthLabel: pick.Month}, nil
		}
	}

	legacy, err := v.ds.LoadShared(ctx, model.VisitHistory)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return visitSource{Source: sourceLegacy}, nil
	case err != nil:
		return visitSource{}, err
	}
	lt := table.DropEmptyColumns(table.ApplyMapping(legacy.Table, v.mapping(ctx, model.VisitHistoryMapping)))
	return visitSource{Table: lt, Source: sourceLegacy}, nil
}

// Standardize renames the date, serial, code, name and type columns of a
// visit table to their standard names. A column serves one role at most.
func Standardize(t table.Table, roles synonyms.VisitRoles) table.Table {
	if t.Empty() {
		return t
	}
	taken := map[string]bool{}
	pick := func(r synonyms.Rule) string {
		c := r.First(t.Columns, taken)
		if c != "" {
			taken[c] = true
		}
		return c
	}
	date := pick(roles.Date)
	serial := pick(roles.Serial)
	code := pick(roles.Code)
	name := pick(roles.Name)
	typ := pick(roles.Type)
	if date == "" {
		date = guessDateColumn(t, taken)
	}

	ren := map[string]string{}
	for col, std := range map[string]string{
		date: visitDate, serial: visitSerial, code: visitCode, name: visitName, typ: visitType,
	} {
		if col != "" && col != std {
			ren[col] = std
		}
	}
	return table.ApplyMapping(t, table.Mapping{Rename: ren})
}

// guessDateColumn picks the free column whose values parse as dates most
// often, requiring at least half of its non-empty values to parse.
func guessDateColumn(t table.Table, taken map[string]bool) string {
	best, bestScore := "", 0
	for _, c := range t.Columns {
		if taken[c] || c == model.PeriodColumn {
			continue
		}
		var vals []string
		for _, v := range t.Values(c) {
			if v = utils.Textify(v); v != "" {
				vals = append(vals, v)
			}
		}
		if len(vals) == 0 {
			continue
		}
		parsed := 0
		for _, v := range vals {
			if _, ok := utils.ParseDateGuess(v); ok {
				parsed++
			}
		}
		if utils.NumericRatio(vals) > 0.6 {
			serials := 0
			for _, v := range vals {
				if f, ok := utils.ParseNumber(v); ok && f >= minGuessSerial {
					if _, ok := utils.ExcelSerialToTime(f); ok {
						serials++
					}
				}
			}
			parsed = max(parsed, serials)
		}
		if parsed*2 >= len(vals) && parsed > bestScore {
			best, bestScore = c, parsed
		}
	}
	return best
}

// matchVisits keeps the rows of the entity: code and name both matching,
// else either one, else any of the entity's serials. Rows of another
// category type are dropped first.
func matchVisits(t table.Table, typeLabel, code, name string, serials []string) (table.Table, string) {
	pre := t
	if t.Has(visitType) && utils.Textify(typeLabel) != "" {
		want := utils.TextKey(typeLabel)
		pre = t.Where(func(r table.Row) bool { return utils.TextKey(r[visitType]) == want })
	}

	codeNorm, nameNorm := normOrEmpty(code), normOrEmpty(name)
	useCode := pre.Has(visitCode) && codeNorm != ""
	useName := pre.Has(visitName) && nameNorm != ""
	codeHit := func(r table.Row) bool { return useCode && utils.TextKey(r[visitCode]) == codeNorm }
	nameHit := func(r table.Row) bool { return useName && utils.TextKey(r[visitName]) == nameNorm }

	if useCode || useName {
		inter := pre.Where(func(r table.Row) bool {
			return (!useCode || codeHit(r)) && (!useName || nameHit(r))
		})
		if inter.Len() > 0 {
			return inter, model.CrossIntersection
		}
		uni := pre.Where(func(r table.Row) bool { return codeHit(r) || nameHit(r) })
		if uni.Len() > 0 {
			return uni, model.CrossUnion
		}
	}

	if pre.Has(visitSerial) && len(serials) > 0 {
		set := map[string]bool{}
		for _, s := range serials {
			if k := normOrEmpty(s); k != "" {
				set[k] = true
			}
		}
		bySerial := pre.Where(func(r table.Row) bool { return set[utils.TextKey(r[visitSerial])] })
		if bySerial.Len() > 0 {
			return bySerial, model.CrossSerial
		}
	}
	return table.Table{Columns: t.Columns}, model.CrossNone
}

// countVisits buckets matched rows into the month and year of interest.
func countVisits(t table.Table, period string, src visitSource, now time.Time) model.VisitAggregate {
	agg := model.EmptyVisits()
	if t.Len() == 0 {
		return agg
	}
	hasSerial := t.Has(visitSerial)

	if !t.Has(visitDate) {
		agg.Degraded = true
		agg.CurrentMonth.Total = t.Len()
		agg.CurrentYear.Total = t.Len()
		if hasSerial {
			d := serialCounts(t.Rows)
			agg.CurrentMonth.Details = d
			agg.CurrentYear.Details = copyCounts(d)
		}
		return agg
	}

	ty, tm := now.Year(), now.Month()
	if p, err := model.ParsePeriodLabel(src.MonthLabel); err == nil && p.Month != "" {
		if mt, err := time.Parse("2006-01", p.Month); err == nil {
			ty, tm = mt.Year(), mt.Month()
		}
	}
	yearTarget := ty
	if p, err := model.ParsePeriodLabel(src.YearLabel); err == nil && p.Month == "" {
		if yt, err := time.Parse("2006", p.Year); err == nil {
			yearTarget = yt.Year()
		}
	}

	type dated struct {
		row table.Row
		at  time.Time
		ok  bool
	}
	rows := make([]dated, len(t.Rows))
	for i, r := range t.Rows {
		at, ok := utils.ParseVisitTime(utils.Textify(r[visitDate]))
		rows[i] = dated{r, at, ok}
	}
	inMonth := func(d dated) bool { return d.ok && d.at.Year() == ty && d.at.Month() == tm }
	byLabel := t.Has(model.PeriodColumn) && src.MonthLabel != ""
	if byLabel {
		inMonth = func(d dated) bool { return d.row[model.PeriodColumn] == src.MonthLabel }
	}
	inYear := func(d dated) bool { return d.ok && d.at.Year() == yearTarget }

	var month, year []dated
	for _, d := range rows {
		switch period {
		case model.PeriodRecent:
			month = append(month, d)
		default:
			if inMonth(d) {
				month = append(month, d)
			}
			if inYear(d) {
				year = append(year, d)
			}
		}
	}

	var latest dated
	perSerial := map[string]dated{}
	for _, d := range month {
		if !d.ok {
			continue
		}
		if !latest.ok || d.at.After(latest.at) {
			latest = d
		}
		if hasSerial {
			s := utils.Textify(d.row[visitSerial])
			if cur, seen := perSerial[s]; s != "" && (!seen || d.at.After(cur.at)) {
				perSerial[s] = d
			}
		}
	}
	if latest.ok {
		agg.LatestDatetime = displayTime(latest.row[visitDate], latest.at)
		if hasSerial {
			agg.LatestSerial = utils.Textify(latest.row[visitSerial])
		}
		if len(perSerial) > 0 {
			agg.LatestSerialTimes = map[string]string{}
			for s, d := range perSerial {
				agg.LatestSerialTimes[s] = displayTime(d.row[visitDate], d.at)
			}
		}
	}

	agg.CurrentMonth.Total = len(month)
	agg.CurrentYear.Total = len(year)
	if hasSerial {
		mr := make([]table.Row, len(month))
		for i, d := range month {
			mr[i] = d.row
		}
		yr := make([]table.Row, len(year))
		for i, d := range year {
			yr[i] = d.row
		}
		agg.CurrentMonth.Details = serialCounts(mr)
		agg.CurrentYear.Details = serialCounts(yr)
	}
	return agg
}

// displayTime keeps the stored text unless it is an Excel day serial.
func displayTime(raw string, at time.Time) string {
	raw = strings.TrimSpace(raw)
	if _, ok := utils.ParseDateGuess(raw); ok {
		return raw
	}
	return at.Format("2006-01-02 15:04:05")
}

func serialCounts(rows []table.Row) map[string]int {
	out := map[string]int{}
	for _, r := range rows {
		if s := utils.Textify(r[visitSerial]); s != "" {
			out[s]++
		}
	}
	return out
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// periodFor maps a visit source to the period its counts describe.
func periodFor(src visitSource, requested string) string {
	switch src.Source {
	case sourceRecent:
		return model.PeriodRecent
	case sourceYear:
		return model.PeriodYear
	case sourceMonth:
		return model.PeriodMonth
	}
	switch requested {
	case model.PeriodYear, model.PeriodRecent:
		return requested
	case "recent_program":
		return model.PeriodRecent
	}
	return model.PeriodMonth
}

// Aggregate returns the visit summary of an entity and the period used.
func (v *Visits) Aggregate(ctx context.Context, category, code, name string, serials []string, requested string) (model.VisitAggregate, string) {
	src, err := v.source(ctx)
	if err != nil {
		v.log.Warn().Err(err).Msg("visit source")
		return model.EmptyVisits(), periodFor(visitSource{}, requested)
	}
	period := periodFor(src, requested)
	if src.Table.Empty() {
		agg := model.EmptyVisits()
		agg.Source = src.Source
		return agg, period
	}
	std := Standardize(src.Table, v.syn.Visit)
	matched, mode := matchVisits(std, model.CategoryLabel(category), code, name, serials)
	agg := countVisits(matched, period, src, v.now())
	agg.Source = src.Source
	agg.MatchMode = mode
	return agg, period
}
