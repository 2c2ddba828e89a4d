package domain

import (
	"fmt"
	"time"
)

// PeriodWindow returns the [start, end) window of the routing period that routingKey falls in.
// Windows are computed in UTC; weekly periods start on Monday.
func PeriodWindow(routingKey time.Time, interval MxScheduledLedgerIntervalType) (time.Time, time.Time, error) {
	t := routingKey.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

	switch interval {
	case IntervalDaily:
		return day, day.AddDate(0, 0, 1), nil
	case IntervalWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown interval type %q", interval)
	}
}
