package common

import (
	"strings"
	"time"
)

// HasAny returns true if s contains any of the substrings, ignoring case.
func HasAny(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// FloorHour truncates t to the top of its hour in loc. A nil loc keeps t's own
// location. Hour truncation is done on wall-clock fields so zones with
// non-hour offsets still land on their local hour.
func FloorHour(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// LastHours returns n consecutive hour-aligned instants ending at end
// (inclusive), oldest first. end must already be hour-aligned.
func LastHours(end time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	out := make([]time.Time, n)
	for i := 0; i < n; i++ {
		out[i] = end.Add(-time.Duration(n-1-i) * time.Hour)
	}
	return out
}

// NextHours returns the n hours following start, start+1h first.
func NextHours(start time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i+1) * time.Hour)
	}
	return out
}
