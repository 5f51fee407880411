package domain

import "time"

// AcademicYear returns the graduation year of the current senior class.
// August through December count toward the following calendar year.
func AcademicYear(now time.Time) int {
	if now.Month() >= time.August {
		return now.Year() + 1
	}
	return now.Year()
}
