package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the compact yyyymmdd form used for trade dates everywhere.
const DateLayout = "20060102"

// ParseDate parses a yyyymmdd string as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders t as yyyymmdd.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseClock parses HH:MM:SS into the offset from midnight. Hours up to 23 only.
func ParseClock(s string) (time.Duration, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, false
	}
	limits := [3]int{23, 59, 59}
	var v [3]int
	for i, p := range parts {
		if len(p) != 2 {
			return 0, false
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, false
		}
		v[i] = n
	}
	return time.Duration(v[0])*time.Hour + time.Duration(v[1])*time.Minute + time.Duration(v[2])*time.Second, true
}

// Midnight drops the clock part of t in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
