// Package service validates and stores the service tickets raised from the
// inquiry screen and forwards them to the recent-program visit log.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"smartapp/internal/identity"
	"smartapp/internal/inquiry/model"
	"smartapp/internal/store"
	"smartapp/internal/table"
	"smartapp/internal/utils"
)

// Text accepts a JSON string or number.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	*t = Text(b)
	return nil
}

func (t Text) String() string { return strings.TrimSpace(string(t)) }

// Ticket is one machine row of a save request.
type Ticket struct {
	FaultTypes       []string `json:"fault_types"`
	FaultType        string   `json:"fault_type"`
	OrderNumber      Text     `json:"order_number"`
	MachineCode      Text     `json:"machine_code"`
	MachineSerial    Text     `json:"machine_serial"`
	MainSub          string   `json:"main_sub"`
	Status           string   `json:"status"`
	Sim1             Text     `json:"sim1"`
	Sim2             Text     `json:"sim2"`
	Maintenance      string   `json:"maintenance"`
	RequiredTransfer Text     `json:"required_transfer"`
	Notes1           string   `json:"notes1"`
}

// faults returns the cleaned multi-select list, else the single field.
func (t Ticket) faults() []string {
	var out []string
	for _, f := range t.FaultTypes {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	if len(out) > 0 {
		return out
	}
	if f := strings.TrimSpace(t.FaultType); f != "" {
		return []string{f}
	}
	return nil
}

type SaveRequest struct {
	Category     string            `json:"category"`
	Tickets      []Ticket          `json:"tickets"`
	CustomerData map[string]string `json:"customer_data"`
}

func (r SaveRequest) customer(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(r.CustomerData[k]); v != "" {
			return v
		}
	}
	return ""
}

type SaveResult struct {
	Saved   int    `json:"saved"`
	Message string `json:"message"`
}

// Tickets is the ticket persistence.
type Tickets interface {
	FindByOrderNumbers(ctx context.Context, orders []string) ([]store.ServiceTicket, error)
	CreateBatch(ctx context.Context, tickets []store.ServiceTicket) error
}

// RecentSink receives the recent-program rows of saved tickets.
type RecentSink interface {
	AppendRecent(ctx context.Context, userID uint, rows table.Table) error
}

type Service struct {
	tickets Tickets
	recent  RecentSink
	log     zerolog.Logger
	now     func() time.Time
}

func New(tickets Tickets, recent RecentSink, log zerolog.Logger) *Service {
	return &Service{
		tickets: tickets,
		recent:  recent,
		log:     log.With().Str("component", "tickets").Logger(),
		now:     time.Now,
	}
}

// Save validates every ticket first; nothing is written unless all pass.
// Tickets without a fault are accepted but not stored.
func (s *Service) Save(ctx context.Context, req SaveRequest, id identity.Identity) (SaveResult, error) {
	if !model.ValidCategory(req.Category) {
		return SaveResult{}, model.Invalid("قسم غير صالح.")
	}
	if len(req.Tickets) == 0 {
		return SaveResult{}, model.Invalid("لا توجد سجلات للحفظ.")
	}
	code := req.customer("رقم العميل", "رقم المخبز")
	name := req.customer("اسم العميل", "اسم المخبز")

	errs, orders := validate(req.Tickets)
	if len(errs) == 0 && len(orders) > 0 {
		errs = append(errs, s.conflicts(ctx, orders, code, name)...)
	}
	if len(errs) > 0 {
		return SaveResult{}, &model.ValidationError{Lines: errs}
	}

	now := s.now()
	user := id.Username
	if user == "" {
		user = "unknown"
	}
	label := model.CategoryLabel(req.Category)

	var batch []store.ServiceTicket
	recent := table.Table{Columns: recentColumns()}
	for _, t := range req.Tickets {
		faults := t.faults()
		if len(faults) == 0 {
			continue
		}
		batch = append(batch, store.ServiceTicket{
			CreatedAt:     now,
			CategoryKey:   req.Category,
			CategoryLabel: label,
			FaultType:     strings.Join(faults, ","),
			OrderNumber:   t.OrderNumber.String(),
			Username:      user,
			CustomerCode:  code,
			CustomerName:  name,
			MachineCode:   t.MachineCode.String(),
			MachineSerial: t.MachineSerial.String(),
			MainSub:       t.MainSub,
			Status:        t.Status,
			Sim1:          t.Sim1.String(),
			Sim2:          t.Sim2.String(),
			Services:      user,
			Maintenance:   strings.TrimSpace(t.Maintenance),
		})

		row := table.Row{
			"التاريخ":          now.Format("2006-01-02 15:04:05"),
			"القسم":            label,
			"الادارة":          req.customer("الادارة"),
			"المكتب":           req.customer("المكتب"),
			"رقم العميل":       code,
			"اسم العميل":       name,
			"رقم الماكينة":     t.MachineCode.String(),
			"مسلسل":            t.MachineSerial.String(),
			"رئيسية/فرعية":     t.MainSub,
			"حالة الماكينة":    t.Status,
			"شريحة1":           t.Sim1.String(),
			"شريحة2":           t.Sim2.String(),
			model.OrderColumn:  t.OrderNumber.String(),
			"الحوالة المطلوبة": t.RequiredTransfer.String(),
			"القائم بالصيانة":  strings.TrimSpace(t.Maintenance),
			"اسم المستخدم":     user,
			"خدمات":            user,
			"ملاحظات1":         strings.TrimSpace(t.Notes1),
		}
		for _, ft := range model.AllowedFaultTypes {
			row[ft] = ""
		}
		for _, ft := range faults {
			row[ft] = "1"
		}
		recent.Rows = append(recent.Rows, row)
	}

	if err := s.tickets.CreateBatch(ctx, batch); err != nil {
		return SaveResult{}, err
	}
	if len(recent.Rows) > 0 {
		if err := s.recent.AppendRecent(ctx, id.ID, recent); err != nil {
			s.log.Warn().Err(err).Msg("recent program sync")
		}
	}
	s.log.Info().
		Str("category", req.Category).
		Str("user", user).
		Int("tickets", len(req.Tickets)).
		Int("saved", len(batch)).
		Msg("tickets saved")
	return SaveResult{Saved: len(batch), Message: "تم حفظ السجلات بنجاح."}, nil
}

// validate checks order numbers and fault types; it returns the problems
// and every order number present.
func validate(tickets []Ticket) (errs, orders []string) {
	for i, t := range tickets {
		on := t.OrderNumber.String()
		if len(t.faults()) > 0 && !utils.IsDigits(on) {
			errs = append(errs, fmt.Sprintf("سطر %d: رقم الإذن يجب أن يكون أرقام فقط ومطلوب عند تسجيل عطل.", i+1))
		}
		if on != "" {
			orders = append(orders, on)
		}
	}
	for i, t := range tickets {
		var bad []string
		for _, f := range t.faults() {
			if !model.IsFaultType(f) {
				bad = append(bad, f)
			}
		}
		switch {
		case len(bad) == 0:
		case strings.TrimSpace(strings.Join(t.FaultTypes, "")) != "":
			errs = append(errs, fmt.Sprintf("سطر %d: نوع/أنواع عطل غير مسموح (%s).", i+1, strings.Join(bad, ", ")))
		default:
			errs = append(errs, fmt.Sprintf("سطر %d: نوع عطل غير مسموح (%s).", i+1, bad[0]))
		}
	}
	return errs, orders
}

// conflicts reports order numbers already used by a different customer. A
// lookup failure is logged and treated as no conflict.
func (s *Service) conflicts(ctx context.Context, orders []string, code, name string) []string {
	existing, err := s.tickets.FindByOrderNumbers(ctx, orders)
	if err != nil {
		s.log.Warn().Err(err).Msg("order number lookup")
		return nil
	}
	var out []string
	seen := map[string]bool{}
	for _, t := range existing {
		if t.CustomerCode == code && t.CustomerName == name {
			continue
		}
		if seen[t.OrderNumber] {
			continue
		}
		seen[t.OrderNumber] = true
		out = append(out, "رقم الإذن مستخدم لعميل آخر: "+t.OrderNumber)
	}
	return out
}

func recentColumns() []string {
	cols := append([]string(nil), model.RecentColumns...)
	return append(cols, model.AllowedFaultTypes...)
}
