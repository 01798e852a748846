package utils

import (
	"math"
	"strings"
	"time"
)

// day-first layouts come before month-first ones
var dateLayouts = []string{
	time.RFC3339,
	"2006-1-2T15:04:05",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006-1-2",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006/1/2",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
	"2-1-2006 15:04:05",
	"2-1-2006 15:04",
	"2-1-2006",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"2006-01-02 03:04PM",
	"02 Jan 2006 15:04",
	"02 Jan 2006",
}

// ParseDateGuess tries the known layouts in order.
func ParseDateGuess(s string) (time.Time, bool) {
	s = strings.TrimSpace(NormalizeKey(s))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ExcelSerialToTime converts a spreadsheet day serial (days since 1899-12-30).
func ExcelSerialToTime(f float64) (time.Time, bool) {
	if math.IsNaN(f) || f < 1 || f > 2958465 {
		return time.Time{}, false
	}
	days := math.Floor(f)
	frac := f - days
	t := excelEpoch.AddDate(0, 0, int(days)).Add(time.Duration(frac * float64(24*time.Hour)))
	return t, true
}

// ParseVisitTime parses either a textual date or an Excel serial.
func ParseVisitTime(s string) (time.Time, bool) {
	if t, ok := ParseDateGuess(s); ok {
		return t, true
	}
	if f, ok := ParseNumber(s); ok {
		return ExcelSerialToTime(f)
	}
	return time.Time{}, false
}
