package common

import (
	"errors"
	"strings"
	"time"
)

const (
	// CompactDateLayout is the YYYYMMDD form the PWS provider expects.
	CompactDateLayout = "20060102"
	// ISODateLayout is the YYYY-MM-DD form used by browser date inputs.
	ISODateLayout = "2006-01-02"
)

// ErrInvalidDate is returned when a date string is neither YYYYMMDD nor YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid date; use YYYYMMDD or YYYY-MM-DD")

// ParseDate parses a calendar day in either compact or ISO form and returns
// midnight of that day in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	layout := CompactDateLayout
	if strings.Contains(s, "-") {
		layout = ISODateLayout
	}
	if len(s) != len(layout) {
		return time.Time{}, ErrInvalidDate
	}
	t, err := time.ParseInLocation(layout, s, loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// CompactDate formats t as YYYYMMDD.
func CompactDate(t time.Time) string {
	return t.Format(CompactDateLayout)
}

// StartOfDay truncates t to midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
