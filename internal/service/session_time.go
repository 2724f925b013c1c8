package service

import (
	"fmt"
	"time"

	"github.com/campushq/timetable-api/internal/models"
)

// parseDate parses a calendar day in the wire layout.
func parseDate(raw string) (time.Time, error) {
	day, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is not in YYYY-MM-DD form", raw)
	}
	return day, nil
}

// parseClock parses a clock time in the wire layout. The result carries
// the zero date, so values from the same day compare directly.
func parseClock(raw string) (time.Time, error) {
	t, err := time.Parse(models.TimeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("time %q is not in HH:MM form", raw)
	}
	return t, nil
}

// overlaps reports whether two half-open intervals [aStart,aEnd) and
// [bStart,bEnd) intersect. Touching boundaries do not overlap.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// deriveEnd adds the subject duration to a parsed start time. Sessions
// may not cross midnight.
func deriveEnd(start time.Time, durationHours int) (time.Time, error) {
	end := start.Add(time.Duration(durationHours) * time.Hour)
	if !end.After(start) || end.Day() != start.Day() {
		return time.Time{}, fmt.Errorf("session starting at %s would run past midnight", start.Format(models.TimeLayout))
	}
	return end, nil
}
