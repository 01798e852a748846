// Package model holds the inquiry request and result types.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

const (
	SearchCode        = "code"
	SearchSerial      = "serial"
	SearchName        = "name"
	SearchMachineCode = "machine_code"
)

const (
	PeriodMonth  = "month"
	PeriodYear   = "year"
	PeriodRecent = "recent"
)

// Match modes of candidate resolution.
const (
	MatchContainment = "containment"
	MatchAffix       = "affix"
	MatchExact       = "exact"
	MatchPrefix      = "prefix"
	MatchToken       = "token"
	MatchScan        = "scan"
)

// Cross-reference match modes.
const (
	CrossNone         = "none"
	CrossIntersection = "intersection"
	CrossUnion        = "union"
	CrossSerial       = "serial"
)

// CategoryKeys lists report categories in display order.
var CategoryKeys = []string{"bakeries", "ration", "substitute"}

var categoryLabels = map[string]string{
	"bakeries":   "مخابز",
	"ration":     "تموين",
	"substitute": "الاستبدال",
}

// CategoryLabel returns the Arabic label of key, or key itself.
func CategoryLabel(key string) string {
	if l, ok := categoryLabels[key]; ok {
		return l
	}
	return key
}

func ValidCategory(key string) bool {
	_, ok := categoryLabels[key]
	return ok
}

type Request struct {
	Category    string `json:"category"`
	SearchType  string `json:"search_type"`
	Query       string `json:"query"`
	VisitPeriod string `json:"visit_period"`
	// UserID selects whose dataset is searched; set from the caller identity.
	UserID uint `json:"-"`
}

// Field is one named value of an ordered record.
type Field struct {
	Key   string
	Value string
}

// Fields is an ordered record; it marshals as a JSON object keeping order.
type Fields []Field

func (f Fields) Get(key string) (string, bool) {
	for _, kv := range f {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Set replaces key's value or appends it.
func (f *Fields) Set(key, value string) {
	for i := range *f {
		if (*f)[i].Key == key {
			(*f)[i].Value = value
			return
		}
	}
	*f = append(*f, Field{Key: key, Value: value})
}

// Map returns a copy of the record as a map.
func (f Fields) Map() map[string]string {
	out := make(map[string]string, len(f))
	for _, kv := range f {
		out[kv.Key] = kv.Value
	}
	return out
}

func (f *Fields) Delete(key string) {
	out := (*f)[:0]
	for _, kv := range *f {
		if kv.Key != key {
			out = append(out, kv)
		}
	}
	*f = out
}

func (f Fields) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("null"), nil
	}
	var b bytes.Buffer
	b.WriteByte('{')
	for i, kv := range f {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// Entity is one grouped customer with its machine rows.
type Entity struct {
	CommonData     Fields   `json:"common_data"`
	MachineDetails []Fields `json:"machine_details"`
	GroupKeys      []string `json:"group_keys"`
}

type PeriodCount struct {
	Total   int            `json:"total"`
	Details map[string]int `json:"details"`
}

// VisitAggregate is the visit history summary of an entity.
type VisitAggregate struct {
	CurrentMonth      PeriodCount       `json:"current_month"`
	CurrentYear       PeriodCount       `json:"current_year"`
	LatestDatetime    string            `json:"latest_datetime,omitempty"`
	LatestSerial      string            `json:"latest_serial,omitempty"`
	LatestSerialTimes map[string]string `json:"latest_serial_times,omitempty"`
	Source            string            `json:"source,omitempty"`
	MatchMode         string            `json:"match_mode"`
	Degraded          bool              `json:"degraded,omitempty"`
}

// EmptyVisits is the aggregate reported without visit data.
func EmptyVisits() VisitAggregate {
	return VisitAggregate{
		CurrentMonth: PeriodCount{Details: map[string]int{}},
		CurrentYear:  PeriodCount{Details: map[string]int{}},
		MatchMode:    CrossNone,
	}
}

type Result struct {
	Success          bool           `json:"success"`
	Message          string         `json:"message"`
	MatchMode        string         `json:"match_mode"`
	VisitPeriod      string         `json:"visit_period"`
	CustomerData     Fields         `json:"customer_data"`
	DynamicFields    Fields         `json:"dynamic_fields"`
	PrimaryRecord    Fields         `json:"primary_record"`
	PrimaryMatchMode string         `json:"primary_match_mode"`
	BranchSection    Fields         `json:"branch_section"`
	VisitData        VisitAggregate `json:"visit_data"`
	SerialList       []Fields       `json:"serial_list"`
	Cols             []string       `json:"cols"`
	Items            []Entity       `json:"items"`
}
