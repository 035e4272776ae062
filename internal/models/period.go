package models

import "time"

// Period selects a reporting window for order and waste history
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

// ParsePeriod reads a ?period= value. An empty value means today and an
// unrecognised one means all.
func ParsePeriod(s string) Period {
	switch p := Period(s); p {
	case "":
		return PeriodToday
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodYear:
		return p
	default:
		return PeriodAll
	}
}

// Since returns the inclusive lower bound of the window relative to now.
// ok is false for PeriodAll.
func (p Period) Since(now time.Time) (since time.Time, ok bool) {
	y, m, d := now.Date()
	loc := now.Location()
	switch p {
	case PeriodToday:
		return time.Date(y, m, d, 0, 0, 0, 0, loc), true
	case PeriodWeek:
		return now.AddDate(0, 0, -7), true
	case PeriodMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc), true
	case PeriodYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc), true
	default:
		return time.Time{}, false
	}
}
