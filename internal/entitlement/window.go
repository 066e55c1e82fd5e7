package entitlement

import "time"

// Calendar window helpers used by the engine. All comparisons are on
// calendar components in a fixed location, never on elapsed duration:
// 23:59 to 00:01 is a new day even though only two minutes passed, and
// variable month lengths cannot cause drift.

// IsNewDay reports whether now falls on a different calendar day than
// lastResetAt when both are viewed in loc.
func IsNewDay(lastResetAt, now time.Time, loc *time.Location) bool {
	if lastResetAt.IsZero() {
		return true
	}
	a := lastResetAt.In(loc)
	b := now.In(loc)
	return a.Day() != b.Day() || a.Month() != b.Month() || a.Year() != b.Year()
}

// IsNewMonth reports whether now falls on a different calendar month than
// lastResetAt when both are viewed in loc. A new month is always also a
// new day.
func IsNewMonth(lastResetAt, now time.Time, loc *time.Location) bool {
	if lastResetAt.IsZero() {
		return true
	}
	a := lastResetAt.In(loc)
	b := now.In(loc)
	return a.Month() != b.Month() || a.Year() != b.Year()
}

// NextDailyReset returns local midnight of the day after now.
func NextDailyReset(now time.Time, loc *time.Location) time.Time {
	n := now.In(loc)
	return time.Date(n.Year(), n.Month(), n.Day()+1, 0, 0, 0, 0, loc)
}

// NextMonthlyReset returns the first instant of the month after now.
func NextMonthlyReset(now time.Time, loc *time.Location) time.Time {
	n := now.In(loc)
	return time.Date(n.Year(), n.Month()+1, 1, 0, 0, 0, 0, loc)
}
