// Package timecalc holds the calendar arithmetic used to bucket entries into
// local days and to render durations.
package timecalc

import (
	"fmt"
	"time"
)

// DayLayout is the key format used for daily summaries.
const DayLayout = "2006-01-02"

// StartOfDay returns local midnight of the day containing t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DayRange returns [midnight, next midnight) for the day containing t.
// The end is computed with AddDate so DST days keep their real length.
func DayRange(t time.Time, loc *time.Location) (time.Time, time.Time) {
	from := StartOfDay(t, loc)
	return from, from.AddDate(0, 0, 1)
}

// LastDays returns the range covering the n most recent local days, today included.
func LastDays(now time.Time, n int, loc *time.Location) (time.Time, time.Time) {
	if n < 1 {
		n = 1
	}
	from, to := DayRange(now, loc)
	return from.AddDate(0, 0, -(n - 1)), to
}

// DayKey formats the local day of t as YYYY-MM-DD.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayLayout)
}

// FormatDuration formats seconds as "1h 40m", "45m" or "30s".
func FormatDuration(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatHHMMSS formats seconds as HH:MM:SS.
func FormatHHMMSS(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
