package calendar

import "time"

type holidayInfo struct {
	Name  string
	Month time.Month
	Day   int
}

var fixedUSHolidays = []holidayInfo{
	{"New Year's Day", time.January, 1},
	{"Juneteenth", time.June, 19},
	{"Independence Day", time.July, 4},
	{"Veterans Day", time.November, 11},
	{"Christmas", time.December, 25},
}

// DetectUSHoliday returns whether the given day is a US federal holiday
// and the holiday name. Covers both fixed and floating holidays.
func DetectUSHoliday(t time.Time) (bool, string) {
	for _, h := range fixedUSHolidays {
		if t.Month() == h.Month && t.Day() == h.Day {
			return true, h.Name
		}
	}

	month := t.Month()
	day := t.Day()
	wd := t.Weekday()

	// MLK Day: 3rd Monday in January
	if month == time.January && wd == time.Monday && nthWeekday(day) == 3 {
		return true, "MLK Day"
	}
	// Presidents' Day: 3rd Monday in February
	if month == time.February && wd == time.Monday && nthWeekday(day) == 3 {
		return true, "Presidents' Day"
	}
	// Memorial Day: last Monday in May
	if month == time.May && wd == time.Monday && day > 24 {
		return true, "Memorial Day"
	}
	// Labor Day: 1st Monday in September
	if month == time.September && wd == time.Monday && nthWeekday(day) == 1 {
		return true, "Labor Day"
	}
	// Columbus Day: 2nd Monday in October
	if month == time.October && wd == time.Monday && nthWeekday(day) == 2 {
		return true, "Columbus Day"
	}
	// Thanksgiving: 4th Thursday in November
	if month == time.November && wd == time.Thursday && nthWeekday(day) == 4 {
		return true, "Thanksgiving"
	}

	return false, ""
}

func nthWeekday(dayOfMonth int) int {
	return (dayOfMonth-1)/7 + 1
}
