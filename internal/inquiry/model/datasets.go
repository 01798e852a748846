package model

import (
	"fmt"
	"regexp"
	"strings"
)

// Stored dataset keys outside the report categories.
const (
	TraderPrimary        = "trader_primary"
	TraderPrimaryMapping = "trader_primary:__mapping__"
	FrequentPrefix       = "trader_frequent:"
	FrequentMapping      = "trader_frequent:__mapping__"
	RecentProgram        = "trader_frequent:recent_program"
	VisitHistory         = "visit_history"
	VisitHistoryMapping  = "visit_history:__mapping__"
)

// PeriodColumn tags visit rows with the label of the import they came from.
const (
	PeriodColumn = "_الفترة"
	RecentLabel  = "البيانات الحديثة (البرنامج)"
)

// VisitCachePrefix prefixes every cached visit source.
const VisitCachePrefix = "visits:"

// AllowedFaultTypes are the fault kinds a ticket may carry, in display order.
var AllowedFaultTypes = []string{
	"ريدر", "سوفت", "طباعه", "شحن", "سوكت", "شبكه", "شاشه", "بيت شريحه", "F2", "KEYS", "POWER",
}

func IsFaultType(s string) bool {
	for _, f := range AllowedFaultTypes {
		if f == s {
			return true
		}
	}
	return false
}

// RecentColumns are the base columns of the recent-program dataset; one
// column per fault type follows them.
var RecentColumns = []string{
	"التاريخ", "القسم", "الادارة", "المكتب", "رقم العميل", "اسم العميل", "رقم الماكينة",
	"مسلسل", "رئيسية/فرعية", "حالة الماكينة", "شريحة1", "شريحة2", "رقم الإذن",
	"الحوالة المطلوبة", "القائم بالصيانة", "اسم المستخدم", "خدمات", "ملاحظات1",
}

// OrderColumn holds the ticket order number in the recent-program dataset.
const OrderColumn = "رقم الإذن"

var periodRe = regexp.MustCompile(`^(\d{4})(?:[-/](\d{2}))?$`)

// PeriodLabel describes a frequent-visits import label.
type PeriodLabel struct {
	Raw   string
	Year  string
	Month string // "YYYY-MM", empty for a whole-year label
}

// ParsePeriodLabel accepts YYYY, YYYY-MM and YYYY/MM.
func ParsePeriodLabel(s string) (PeriodLabel, error) {
	m := periodRe.FindStringSubmatch(s)
	if m == nil {
		return PeriodLabel{}, fmt.Errorf("%w: period label %q", ErrInvalidArgument, s)
	}
	p := PeriodLabel{Raw: s, Year: m[1]}
	if m[2] != "" {
		if m[2] < "01" || m[2] > "12" {
			return PeriodLabel{}, fmt.Errorf("%w: period month %q", ErrInvalidArgument, s)
		}
		p.Month = m[1] + "-" + m[2]
	}
	return p, nil
}

// Failure is an error carrying a user-facing message.
type Failure struct {
	Err     error
	Message string
}

func (f *Failure) Error() string { return f.Message }
func (f *Failure) Unwrap() error { return f.Err }

func NotFound(msg string) error { return &Failure{Err: ErrNotFound, Message: msg} }
func Invalid(msg string) error  { return &Failure{Err: ErrInvalidArgument, Message: msg} }

// ValidationError lists every problem found in a batch before anything was
// written.
type ValidationError struct {
	Lines []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Lines, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidArgument }
