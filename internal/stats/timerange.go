package stats

import (
	"fmt"
	"strings"
	"time"

	"github.com/ramonehamilton/spell-bingo/internal/storage/models"
)

// TimeRange is a half-open period [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// DayRangeFrom returns the day containing ref, offset by offset days.
func DayRangeFrom(ref time.Time, offset int) TimeRange {
	start := midnight(ref).AddDate(0, 0, offset)
	return TimeRange{Start: start, End: start.AddDate(0, 0, 1)}
}

// WeekRangeFrom returns the Monday-to-Sunday week containing ref, offset by
// offset weeks.
func WeekRangeFrom(ref time.Time, offset int) TimeRange {
	weekday := int(ref.Weekday())
	if weekday == 0 {
		weekday = 7 // ISO 8601 Sunday
	}
	start := midnight(ref).AddDate(0, 0, -weekday+1+offset*7)
	return TimeRange{Start: start, End: start.AddDate(0, 0, 7)}
}

// MonthRangeFrom returns the calendar month containing ref, offset by offset
// months.
func MonthRangeFrom(ref time.Time, offset int) TimeRange {
	start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location()).AddDate(0, offset, 0)
	return TimeRange{Start: start, End: start.AddDate(0, 1, 0)}
}

// Periods lists the names ParsePeriod accepts.
var Periods = []string{"today", "yesterday", "week", "last-week", "month", "last-month"}

// ParsePeriod resolves a named period relative to now.
func ParsePeriod(name string, now time.Time) (TimeRange, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "today":
		return DayRangeFrom(now, 0), nil
	case "yesterday":
		return DayRangeFrom(now, -1), nil
	case "week":
		return WeekRangeFrom(now, 0), nil
	case "last-week":
		return WeekRangeFrom(now, -1), nil
	case "month":
		return MonthRangeFrom(now, 0), nil
	case "last-month":
		return MonthRangeFrom(now, -1), nil
	}
	return TimeRange{}, fmt.Errorf("unknown period %q (want one of %s)", name, strings.Join(Periods, ", "))
}

// Apply narrows filter to games started within the range.
func (tr TimeRange) Apply(filter *models.GameFilter) {
	start, end := tr.Start, tr.End
	filter.Since = &start
	filter.Until = &end
}

// Contains reports whether t falls in the range.
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && t.Before(tr.End)
}

// FormatPeriod returns a human-readable description of the period.
func (tr TimeRange) FormatPeriod() string {
	start := tr.Start.Format("2006-01-02")
	end := tr.End.AddDate(0, 0, -1).Format("2006-01-02") // End is exclusive
	if start == end {
		return start
	}
	return fmt.Sprintf("%s to %s", start, end)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
