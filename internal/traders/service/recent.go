package service

import (
	"context"
	"strings"

	"smartapp/internal/identity"
	"smartapp/internal/inquiry/model"
	"smartapp/internal/table"
	"smartapp/internal/utils"
)

// Projected recent-program columns.
const (
	colType   = "النوع"
	colFaults = "الأعطال"
)

var projectedColumns = []string{
	colType, "الادارة", "مكتب", "رقم العميل", "اسم العميل", "رقم الماكينة", "مسلسل",
	"التاريخ", "خدمات", "صيانه", "الاذن", colFaults, "الحوالة المطلوبة", "ملاحظات",
	model.PeriodColumn,
}

// RecentEntry is a visit typed in by hand.
type RecentEntry struct {
	Section          string   `json:"section"`
	Department       string   `json:"department"`
	Office           string   `json:"office"`
	CustomerCode     string   `json:"customer_code"`
	CustomerName     string   `json:"customer_name"`
	MachineCode      string   `json:"machine_code"`
	Serial           string   `json:"serial"`
	MainSub          string   `json:"main_sub"`
	Status           string   `json:"status"`
	Sim1             string   `json:"sim1"`
	Sim2             string   `json:"sim2"`
	OrderNumber      string   `json:"order_number"`
	RequiredTransfer string   `json:"required_transfer"`
	Maintenance      string   `json:"maintenance"`
	Notes            string   `json:"notes"`
	FaultTypes       []string `json:"fault_types"`
}

type RecentCount struct {
	Label         string         `json:"label"`
	Total         int            `json:"total"`
	SerialDetails map[string]int `json:"serial_details"`
}

// recent concatenates every user's recent-program rows.
func (s *Service) recent(ctx context.Context) (table.Table, error) {
	all, err := s.ds.LoadAll(ctx, model.RecentProgram)
	if err != nil {
		return table.Table{}, err
	}
	parts := make([]table.Table, 0, len(all))
	for _, ds := range all {
		parts = append(parts, ds.Table)
	}
	return table.Concat(parts...), nil
}

// AppendRecent adds rows to the user's recent program. A repeated order
// number replaces the earlier row.
func (s *Service) AppendRecent(ctx context.Context, userID uint, rows table.Table) error {
	_, err := s.ds.Update(ctx, model.RecentProgram, userID, func(t *table.Table) error {
		*t = table.DedupeBy(table.Concat(*t, rows), model.OrderColumn, true)
		return nil
	})
	if err != nil {
		return err
	}
	s.purge(ctx)
	return nil
}

// AddRecent validates a hand-typed visit and appends it.
func (s *Service) AddRecent(ctx context.Context, id identity.Identity, e RecentEntry) error {
	if strings.TrimSpace(e.Serial) == "" {
		return model.Invalid("المسلسل مطلوب لإضافة السجل.")
	}
	var faults []string
	for _, f := range e.FaultTypes {
		if f = strings.TrimSpace(f); f == "" {
			continue
		}
		if !model.IsFaultType(f) {
			return model.Invalid("نوع عطل غير مسموح (" + f + ").")
		}
		faults = append(faults, f)
	}
	if len(faults) == 0 {
		return model.Invalid("يجب اختيار عطل واحد على الأقل.")
	}
	order := strings.TrimSpace(e.OrderNumber)
	if !utils.IsDigits(order) {
		return model.Invalid("رقم الإذن مطلوب ويجب أن يكون أرقام فقط.")
	}

	user := id.Username
	if user == "" {
		user = "unknown"
	}
	row := table.Row{
		"التاريخ":          s.now().Format("2006-01-02 15:04:05"),
		"القسم":            strings.TrimSpace(e.Section),
		"الادارة":          strings.TrimSpace(e.Department),
		"المكتب":           strings.TrimSpace(e.Office),
		"رقم العميل":       strings.TrimSpace(e.CustomerCode),
		"اسم العميل":       strings.TrimSpace(e.CustomerName),
		"رقم الماكينة":     strings.TrimSpace(e.MachineCode),
		"مسلسل":            strings.TrimSpace(e.Serial),
		"رئيسية/فرعية":     strings.TrimSpace(e.MainSub),
		"حالة الماكينة":    strings.TrimSpace(e.Status),
		"شريحة1":           strings.TrimSpace(e.Sim1),
		"شريحة2":           strings.TrimSpace(e.Sim2),
		model.OrderColumn:  order,
		"الحوالة المطلوبة": strings.TrimSpace(e.RequiredTransfer),
		"القائم بالصيانة":  strings.TrimSpace(e.Maintenance),
		"اسم المستخدم":     user,
		"خدمات":            user,
		"ملاحظات1":         strings.TrimSpace(e.Notes),
	}
	for _, ft := range model.AllowedFaultTypes {
		row[ft] = ""
	}
	for _, ft := range faults {
		row[ft] = "1"
	}
	cols := append(append([]string(nil), model.RecentColumns...), model.AllowedFaultTypes...)
	if err := s.AppendRecent(ctx, id.ID, table.Table{Columns: cols, Rows: []table.Row{row}}); err != nil {
		return err
	}
	s.log.Info().Str("user", user).Str("order", order).Msg("recent visit added")
	return nil
}

// RecentCount counts recent-program rows, optionally for one serial, with a
// per-serial breakdown.
func (s *Service) RecentCount(ctx context.Context, serial string) (RecentCount, error) {
	t, err := s.recent(ctx)
	if err != nil {
		return RecentCount{}, err
	}
	out := RecentCount{Label: model.RecentLabel, SerialDetails: map[string]int{}}
	want := utils.SearchKey(serial)
	for _, r := range t.Rows {
		sn := strings.TrimSpace(r["مسلسل"])
		if want != "" && utils.SearchKey(sn) != want {
			continue
		}
		out.Total++
		if sn != "" {
			out.SerialDetails[sn]++
		}
	}
	return out, nil
}

// DeleteRecent removes the rows carrying order from every user's recent
// program and returns how many went.
func (s *Service) DeleteRecent(ctx context.Context, order string) (int, error) {
	order = strings.TrimSpace(order)
	if order == "" {
		return 0, model.Invalid("رقم الإذن مطلوب.")
	}
	all, err := s.ds.LoadAll(ctx, model.RecentProgram)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, ds := range all {
		hits := 0
		for _, r := range ds.Table.Rows {
			if matchesOrder(r, order) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		_, err := s.ds.Update(ctx, model.RecentProgram, ds.UserID, func(t *table.Table) error {
			*t = t.Where(func(r table.Row) bool { return !matchesOrder(r, order) })
			return nil
		})
		if err != nil {
			return removed, err
		}
		removed += hits
	}
	if removed == 0 {
		return 0, model.NotFound("لم يتم العثور على أي سجلات مطابقة للحذف.")
	}
	s.purge(ctx)
	s.log.Info().Str("order", order).Int("removed", removed).Msg("recent visits deleted")
	return removed, nil
}

func matchesOrder(r table.Row, order string) bool {
	return strings.TrimSpace(utils.FirstNonEmpty(r[model.OrderColumn], r["الاذن"])) == order
}

// ResetRecent empties the user's recent program, keeping its columns.
func (s *Service) ResetRecent(ctx context.Context, id identity.Identity) error {
	var cols []string
	for _, c := range model.RecentColumns {
		if c != "التاريخ" && c != "القسم" {
			cols = append(cols, c)
		}
	}
	cols = append(cols, model.AllowedFaultTypes...)
	if _, err := s.ds.Save(ctx, model.RecentProgram, id.ID, &table.Table{Columns: cols, Rows: []table.Row{}}, nil); err != nil {
		return err
	}
	s.purge(ctx)
	return nil
}

// ProjectRecent maps raw recent-program rows to the display columns and
// collapses the per-fault flag columns into one list.
func ProjectRecent(t table.Table) table.Table {
	out := table.Table{Columns: append([]string(nil), projectedColumns...)}
	if t.Empty() {
		return out
	}
	for _, r := range t.Rows {
		kind := strings.TrimSpace(r["القسم"])
		if kind == "" {
			kind = "شاشة الاستعلام"
		}
		out.Rows = append(out.Rows, table.Row{
			colType:            kind,
			"الادارة":          r["الادارة"],
			"مكتب":             utils.FirstNonEmpty(r["المكتب"], r["مكتب"]),
			"رقم العميل":       r["رقم العميل"],
			"اسم العميل":       r["اسم العميل"],
			"رقم الماكينة":     r["رقم الماكينة"],
			"مسلسل":            r["مسلسل"],
			"التاريخ":          r["التاريخ"],
			"خدمات":            utils.FirstNonEmpty(r["خدمات"], r["اسم المستخدم"]),
			"صيانه":            utils.FirstNonEmpty(r["القائم بالصيانة"], r["صيانه"]),
			"الاذن":            utils.FirstNonEmpty(r[model.OrderColumn], r["الاذن"]),
			colFaults:          strings.Join(rowFaults(r), "، "),
			"الحوالة المطلوبة": r["الحوالة المطلوبة"],
			"ملاحظات":          utils.FirstNonEmpty(r["ملاحظات1"], r["ملاحظات"]),
			model.PeriodColumn: model.RecentLabel,
		})
	}
	return out
}

// rowFaults reads the flag columns, then any legacy comma-separated text.
func rowFaults(r table.Row) []string {
	var out []string
	seen := map[string]bool{}
	add := func(f string) {
		if f = strings.TrimSpace(f); f != "" && !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for _, ft := range model.AllowedFaultTypes {
		if strings.TrimSpace(r[ft]) == "1" {
			add(ft)
		}
	}
	for _, col := range []string{"نوع العطل", "الأعطال"} {
		for _, f := range strings.FieldsFunc(r[col], func(c rune) bool { return c == ',' || c == '،' }) {
			add(f)
		}
	}
	return out
}
