// Package calendar answers workday questions for the priority tiering and
// week-relative windows used by the reports.
package calendar

import (
	"fmt"
	"time"

	"github.com/ignite/offer-diagnostics/internal/domain"
)

// WorkdayChecker is the single question the engines ask of a calendar.
type WorkdayChecker interface {
	IsWorkday(d time.Time) bool
}

// Calendar classifies days as workdays: Monday to Friday, minus holidays,
// plus explicitly configured make-up workdays that fall on a weekend.
type Calendar struct {
	holidays map[time.Time]string
	workdays map[time.Time]bool
	region   string
}

// New builds a calendar. region "us" adds the built-in US federal holidays.
func New(region string, holidays, workdays []time.Time) *Calendar {
	c := &Calendar{
		holidays: make(map[time.Time]string, len(holidays)),
		workdays: make(map[time.Time]bool, len(workdays)),
		region:   region,
	}
	for _, h := range holidays {
		c.holidays[domain.Day(h)] = "configured"
	}
	for _, w := range workdays {
		c.workdays[domain.Day(w)] = true
	}
	return c
}

// FromStrings builds a calendar from YYYY-MM-DD lists as found in config.
func FromStrings(region string, holidays, workdays []string) (*Calendar, error) {
	hs, err := parseDays(holidays)
	if err != nil {
		return nil, fmt.Errorf("parsing holidays: %w", err)
	}
	ws, err := parseDays(workdays)
	if err != nil {
		return nil, fmt.Errorf("parsing workdays: %w", err)
	}
	return New(region, hs, ws), nil
}

func parseDays(in []string) ([]time.Time, error) {
	out := make([]time.Time, 0, len(in))
	for _, s := range in {
		d, err := time.Parse(domain.DateLayout, s)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// IsWorkday reports whether d is a business day.
func (c *Calendar) IsWorkday(d time.Time) bool {
	day := domain.Day(d)
	if c.workdays[day] {
		return true
	}
	if ok, _ := c.Holiday(day); ok {
		return false
	}
	wd := day.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// Holiday returns whether d is a holiday and its name.
func (c *Calendar) Holiday(d time.Time) (bool, string) {
	day := domain.Day(d)
	if name, ok := c.holidays[day]; ok {
		return true, name
	}
	if c.region == "us" {
		return DetectUSHoliday(day)
	}
	return false, ""
}

// StartOfWeek returns the Monday of the week containing d.
func StartOfWeek(d time.Time) time.Time {
	day := domain.Day(d)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// LastThursday returns the Thursday before the week containing d.
func LastThursday(d time.Time) time.Time {
	return StartOfWeek(d).AddDate(0, 0, -4)
}

// WorkdaysSinceMonday counts workdays from this week's Monday through today, inclusive.
func WorkdaysSinceMonday(cal WorkdayChecker, today time.Time) int {
	end := domain.Day(today)
	count := 0
	for d := StartOfWeek(end); !d.After(end); d = d.AddDate(0, 0, 1) {
		if cal.IsWorkday(d) {
			count++
		}
	}
	return count
}
