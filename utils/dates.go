package utils

import (
	"fmt"
	"time"
)

// DateLayout is the storage format for calendar dates (order, payment and appointment dates)
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return t, nil
}

// IsValidDate reports whether value is a YYYY-MM-DD calendar date
func IsValidDate(value string) bool {
	_, err := ParseDate(value)
	return err == nil
}

// IsValidTime reports whether value is an HH:MM clock time
func IsValidTime(value string) bool {
	_, err := time.Parse("15:04", value)
	return err == nil
}

// FormatDate renders t as YYYY-MM-DD in t's own location
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// CyclePeriod returns the reporting cycle containing now, evaluated in loc.
// Cycles start on the 26th: on or after the 26th the cycle began this month,
// before it the cycle began on the 26th of the previous month. The period
// ends today.
func CyclePeriod(now time.Time, loc *time.Location) (start, end string) {
	local := now.In(loc)
	year, month, day := local.Date()

	cycleStart := time.Date(year, month, 26, 0, 0, 0, 0, loc)
	if day < 26 {
		cycleStart = cycleStart.AddDate(0, -1, 0)
	}

	return FormatDate(cycleStart), FormatDate(local)
}
