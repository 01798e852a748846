package utils

import (
	"math"
	"strconv"
	"strings"
)

var numCleaner = strings.NewReplacer(
	"\u00a0", "", "\u202f", "", "\u2009", "", " ", "", "\t", "",
	",", "", "\u066c", "", "\u066b", ".",
)

// ParseNumber parses "1,234.5", "١٢٣", "12 500" (NBSP/NNBSP) and similar.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = NormalizeKey(numCleaner.Replace(s))
	if s == "" || s == "-" || s == "." {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// NumericRatio is the share of non-empty values that parse as numbers.
func NumericRatio(vals []string) float64 {
	total, num := 0, 0
	for _, v := range vals {
		if Textify(v) == "" {
			continue
		}
		total++
		if _, ok := ParseNumber(v); ok {
			num++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(num) / float64(total)
}
