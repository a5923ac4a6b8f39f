// Package datetime provides calendar date utilities: ISO parsing, month
// rollover with month-end clamping and arrears aging.
package datetime

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/loan-arrears/pkg/constants"
)

const (
	// DateLayout is the format expected in config files and is also the output
	// date format.
	DateLayout = constants.DateLayout
)

// ErrMalformedDate is returned when a date input is not a valid ISO date.
var ErrMalformedDate = errors.New("malformed date")

// ParseDate parses an ISO YYYY-MM-DD date into a UTC midnight time.Time.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: expected YYYY-MM-DD", ErrMalformedDate, value)
	}
	return t, nil
}

// MustParseDate parses an ISO date and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseDate(value string) time.Time {
	t, err := ParseDate(value)
	if err != nil {
		panic(err)
	}
	return t
}

// FormatDate renders a date in DateLayout; the zero time renders as "".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the following month normalizes to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddOneMonth returns the same day-of-month in the following month. When that
// day does not exist there (e.g. Jan 31 -> Feb), the last valid day of the
// target month is returned instead. Unlike time.AddDate this never overflows
// into the month after.
func AddOneMonth(t time.Time) time.Time {
	year, month := t.Year(), t.Month()+1
	if month > time.December {
		month = time.January
		year++
	}
	day := t.Day()
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// OffsetMonths applies AddOneMonth n times. Once a date has been clamped to a
// shorter month's end, later rollovers keep that smaller day, so
// OffsetMonths(Jan 31, 2) is Mar 29 (leap year) rather than Mar 31.
func OffsetMonths(t time.Time, n int) time.Time {
	for i := 0; i < n; i++ {
		t = AddOneMonth(t)
	}
	return t
}

// DateBeforeDate returns true if first is strictly before second, comparing
// calendar dates only.
func DateBeforeDate(first, second time.Time) bool {
	fy, fm, fd := first.Date()
	sy, sm, sd := second.Date()
	if fy != sy {
		return fy < sy
	}
	if fm != sm {
		return fm < sm
	}
	return fd < sd
}
