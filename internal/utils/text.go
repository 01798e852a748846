package utils

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// emptyTokens are cell values that mean "no value" in uploaded sheets.
var emptyTokens = map[string]struct{}{
	"nan": {}, "none": {}, "null": {}, "na": {}, "n/a": {}, "nat": {}, "-": {}, "—": {},
}

var infTokens = map[string]struct{}{
	"inf": {}, "+inf": {}, "-inf": {}, "infinity": {}, "+infinity": {}, "-infinity": {},
}

var decimalRe = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// IsEmptyToken reports whether s is blank or one of the empty sentinels.
func IsEmptyToken(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return true
	}
	_, ok := emptyTokens[s]
	return ok
}

// Textify converts a raw cell value into clean text.
// Long digit strings (serials, SIM numbers) are never routed through float parsing.
func Textify(v string) string {
	t := strings.TrimSpace(v)
	if IsEmptyToken(t) {
		return ""
	}
	if _, ok := infTokens[strings.ToLower(t)]; ok {
		return ""
	}
	t = strings.ReplaceAll(t, ",", "")
	if len(t) > 12 && isDigits(t) {
		return t
	}
	if !decimalRe.MatchString(t) {
		return t
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return t
	}
	if f == math.Trunc(f) || strings.ContainsAny(t, "eE") {
		f = math.Trunc(f)
		if f == 0 {
			return "0"
		}
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsDigits reports whether s is a non-empty run of ASCII digits.
func IsDigits(s string) bool { return isDigits(s) }

var dropTatweel = runes.Remove(runes.Predicate(func(r rune) bool { return r == 'ـ' }))

var foldLetters = runes.Map(func(r rune) rune {
	switch {
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠')
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰')
	}
	switch r {
	case 'أ', 'إ', 'آ':
		return 'ا'
	case 'ى', 'ئ':
		return 'ي'
	case 'ة':
		return 'ه'
	case 'ؤ':
		return 'و'
	}
	return r
})

// NormalizeKey canonicalizes a value for equality comparison: ASCII digits,
// unified alif/ya/ta-marbuta forms, no tatweel, single spaces.
func NormalizeKey(s string) string {
	if s == "" {
		return ""
	}
	out, _, err := transform.String(transform.Chain(dropTatweel, foldLetters), s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(out), " ")
}

// SearchKey is NormalizeKey lower-cased; index keys and queries use it.
func SearchKey(s string) string {
	return strings.ToLower(NormalizeKey(s))
}

// TextKey is the comparison form of a raw cell: textified, then normalized.
func TextKey(s string) string {
	return NormalizeKey(Textify(s))
}

// FirstNonEmpty returns the first value that survives Textify.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if Textify(v) != "" {
			return v
		}
	}
	return ""
}

// Dash returns "-" for empty values.
func Dash(s string) string {
	if Textify(s) == "" {
		return "-"
	}
	return s
}
