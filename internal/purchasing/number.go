package purchasing

import (
	"fmt"
	"time"
)

// FormatNumber renders a purchase order number: the calendar day as YYYYMMDD,
// a dash and the zero padded daily sequence.
func FormatNumber(day time.Time, seq int) string {
	return fmt.Sprintf("%s-%03d", day.Format("20060102"), seq)
}

// dayBounds returns the half-open [start, end) interval of the calendar day
// containing t in loc.
func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
