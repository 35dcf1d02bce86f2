package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestIsWorkdayWeekends(t *testing.T) {
	c := New("none", nil, nil)

	assert.True(t, c.IsWorkday(day("2026-10-12")))  // Monday
	assert.True(t, c.IsWorkday(day("2026-10-16")))  // Friday
	assert.False(t, c.IsWorkday(day("2026-10-17"))) // Saturday
	assert.False(t, c.IsWorkday(day("2026-10-18"))) // Sunday
}

func TestIsWorkdayHolidaysAndMakeupDays(t *testing.T) {
	c, err := FromStrings("none", []string{"2026-10-01", "2026-10-02"}, []string{"2026-10-10"})
	require.NoError(t, err)

	assert.False(t, c.IsWorkday(day("2026-10-01")))
	assert.False(t, c.IsWorkday(day("2026-10-02")))
	// Saturday configured as a make-up workday
	assert.True(t, c.IsWorkday(day("2026-10-10")))
}

func TestFromStringsRejectsBadDates(t *testing.T) {
	_, err := FromStrings("none", []string{"10/01/2026"}, nil)
	assert.Error(t, err)
}

func TestUSRegion(t *testing.T) {
	c := New("us", nil, nil)

	ok, name := c.Holiday(day("2026-11-26"))
	assert.True(t, ok)
	assert.Equal(t, "Thanksgiving", name)
	assert.False(t, c.IsWorkday(day("2026-11-26")))

	ok, name = c.Holiday(day("2026-09-07"))
	assert.True(t, ok)
	assert.Equal(t, "Labor Day", name)

	ok, _ = New("none", nil, nil).Holiday(day("2026-11-26"))
	assert.False(t, ok)
}

func TestStartOfWeekAndLastThursday(t *testing.T) {
	tests := []struct {
		in       string
		monday   string
		thursday string
	}{
		{"2026-10-12", "2026-10-12", "2026-10-08"},
		{"2026-10-14", "2026-10-12", "2026-10-08"},
		{"2026-10-18", "2026-10-12", "2026-10-08"},
		{"2026-10-19", "2026-10-19", "2026-10-15"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, day(tt.monday), StartOfWeek(day(tt.in)))
			assert.Equal(t, day(tt.thursday), LastThursday(day(tt.in)))
		})
	}
}

func TestWorkdaysSinceMonday(t *testing.T) {
	plain := New("none", nil, nil)
	assert.Equal(t, 1, WorkdaysSinceMonday(plain, day("2026-10-12")))
	assert.Equal(t, 3, WorkdaysSinceMonday(plain, day("2026-10-14")))
	assert.Equal(t, 5, WorkdaysSinceMonday(plain, day("2026-10-17")))

	// Monday holiday pushes the count down by one for the rest of the week.
	withHoliday := New("none", []time.Time{day("2026-10-12")}, nil)
	assert.Equal(t, 0, WorkdaysSinceMonday(withHoliday, day("2026-10-12")))
	assert.Equal(t, 1, WorkdaysSinceMonday(withHoliday, day("2026-10-13")))
}
