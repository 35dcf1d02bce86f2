package datanorm

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ignite/offer-diagnostics/internal/domain"
)

// ParseNumber coerces a cell to a float. Empty or invalid cells become 0 and
// ok reports false for invalid non-empty input.
func ParseNumber(raw string) (v float64, ok bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, true
	}
	s = strings.NewReplacer(",", "", "$", "", " ", "").Replace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseCap coerces a cap cell, replacing missing, invalid or non-positive values with def.
func ParseCap(raw string, def float64) float64 {
	v, ok := ParseNumber(raw)
	if !ok || v <= 0 {
		return def
	}
	return v
}

var dateLayouts = []string{
	domain.DateLayout,
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006-1-2",
	"2006/1/2",
	time.RFC3339,
	"20060102",
	"01-02-06",
	"1/2/2006",
}

// ParseDate accepts the common sheet date layouts and Excel serial numbers.
// The result is truncated to the day.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.Day(t), true
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 && serial < 2958466 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return domain.Day(t), true
		}
	}
	return time.Time{}, false
}

// ParseBool reads the truthy spellings found in the reject rule sheet.
func ParseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "t", "1", "yes", "y", "是", "reject":
		return true
	default:
		return false
	}
}

// NormalizeID strips the ".0" suffix that numeric IDs pick up from spreadsheets.
func NormalizeID(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasSuffix(s, ".0") {
		if _, err := strconv.ParseInt(s[:len(s)-2], 10, 64); err == nil {
			return s[:len(s)-2]
		}
	}
	return s
}
