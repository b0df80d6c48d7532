package utils

import (
	"time"
)

// PastDeadline reports whether now is at or after the HH:MM deadline on now's
// local day in loc. A malformed deadline never counts as passed.
func PastDeadline(now time.Time, deadline string, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	parsed, err := time.ParseInLocation("15:04", deadline, loc)
	if err != nil {
		return false
	}

	local := now.In(loc)
	cutoff := time.Date(local.Year(), local.Month(), local.Day(), parsed.Hour(), parsed.Minute(), 0, 0, loc)
	return !local.Before(cutoff)
}
