package accounting

import "time"

// MonthWindow returns the current calendar-month billing window
// [start, next) in UTC, derived from now at query time. The window is
// never persisted, so usage totals reset implicitly at month boundaries
// without a rollover job.
func MonthWindow(now time.Time) (start, next time.Time) {
	now = now.UTC()
	start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	next = start.AddDate(0, 1, 0)
	return start, next
}
