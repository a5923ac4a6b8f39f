package datetime

import "time"

// MonthsLate returns the number of whole calendar months elapsed between the
// expected and the actual payment date. Paying on or before the expected date
// is never late. A partial month, where the actual day-of-month has not yet
// reached the expected one, does not count.
func MonthsLate(expected, actual time.Time) int {
	if !DateBeforeDate(expected, actual) {
		return 0
	}

	months := (actual.Year()-expected.Year())*12 + int(actual.Month()-expected.Month())
	if actual.Day() < expected.Day() {
		months--
	}

	if months < 0 {
		return 0
	}
	return months
}
