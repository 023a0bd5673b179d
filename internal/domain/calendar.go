package domain

import (
	"fmt"
	"time"
)

// MinDate is the earliest day in the OISST v2 high-resolution record.
var MinDate = time.Date(1981, time.September, 1, 0, 0, 0, 0, time.UTC)

// CalendarDay is a (month, day) pair used as the climatology key.
// February 29 is normalized to February 28 before lookup; Normalized
// records that the substitution happened so callers can surface it.
type CalendarDay struct {
	Month      time.Month
	Day        int
	Normalized bool
}

// NewCalendarDay extracts the climatology key from a date, normalizing
// a leap day to February 28.
func NewCalendarDay(date time.Time) CalendarDay {
	d := CalendarDay{Month: date.Month(), Day: date.Day()}
	if d.Month == time.February && d.Day == 29 {
		d.Day = 28
		d.Normalized = true
	}
	return d
}

// Key returns the canonical "MM-DD" form used for memoization.
func (d CalendarDay) Key() string {
	return fmt.Sprintf("%02d-%02d", int(d.Month), d.Day)
}

func (d CalendarDay) String() string { return d.Key() }

// InYear constructs the concrete date for this calendar day in the given
// year. ok is false when the construction would produce February 29 in a
// non-leap year; such years are skipped by the climatology loop.
func (d CalendarDay) InYear(year int) (time.Time, bool) {
	if d.Month == time.February && d.Day == 29 && !IsLeapYear(year) {
		return time.Time{}, false
	}
	return time.Date(year, d.Month, d.Day, 0, 0, 0, 0, time.UTC), true
}

// IsLeapYear reports whether year has a February 29.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// ReferencePeriod is a closed year range defining the climatological
// baseline.
type ReferencePeriod struct {
	StartYear int
	EndYear   int
}

// DefaultReferencePeriod is the WMO 1991-2020 normal period.
var DefaultReferencePeriod = ReferencePeriod{StartYear: 1991, EndYear: 2020}

// Years lists the years of the period in ascending order.
func (p ReferencePeriod) Years() []int {
	years := make([]int, 0, p.EndYear-p.StartYear+1)
	for y := p.StartYear; y <= p.EndYear; y++ {
		years = append(years, y)
	}
	return years
}
