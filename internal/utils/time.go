package utils

import "time"

// FormatLocaleDate renders t as an en-US short date, e.g. 3/14/2025.
func FormatLocaleDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("1/2/2006")
}
