package entitlement

import (
	"math"
	"time"
)

// Usage months are calendar months in UTC regardless of server locale.

func MonthStart(now time.Time) time.Time {
	n := now.UTC()
	return time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func MonthEnd(now time.Time) time.Time {
	return MonthStart(now).AddDate(0, 1, 0)
}

func MonthKey(now time.Time) string {
	return now.UTC().Format("2006-01")
}

// DaysRemainingInMonth counts the current day as remaining.
func DaysRemainingInMonth(now time.Time) int {
	left := MonthEnd(now).Sub(now.UTC())
	return int(math.Ceil(left.Hours() / 24))
}
