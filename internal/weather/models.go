package weather

import (
	"time"
)

// Station identifies one monitoring station from the roster.
type Station struct {
	ID   string `json:"sid" validate:"required"`
	City string `json:"city"`
	Town string `json:"town"`
	Name string `json:"name"`
}

// Observation is one station-hour record. Nil fields mean the source did not
// report a usable value for that hour.
type Observation struct {
	Timestamp        time.Time // hour-aligned, station time zone
	Temperature      *float64
	RelativeHumidity *float64
	Precipitation    *float64
}

// Series is the time-ordered observation history of a single station.
// After Merge it holds at most one Observation per timestamp.
type Series []Observation

// Latest returns the newest timestamp in the series and false when it is empty.
// It does not assume the series is sorted.
func (s Series) Latest() (time.Time, bool) {
	var latest time.Time
	for i, o := range s {
		if i == 0 || o.Timestamp.After(latest) {
			latest = o.Timestamp
		}
	}
	return latest, len(s) > 0
}

// Range returns the observations with from <= t <= to, preserving order.
func (s Series) Range(from, to time.Time) Series {
	out := make(Series, 0, len(s))
	for _, o := range s {
		if o.Timestamp.Before(from) || o.Timestamp.After(to) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Index is the published roster of stations with the newest data point of each.
type Index struct {
	Stations []IndexEntry `json:"stations"`
}

// IndexEntry is one station line in the Index. Latest is nil when the station
// has no data yet.
type IndexEntry struct {
	SID    string  `json:"sid"`
	City   string  `json:"city"`
	Town   string  `json:"town"`
	Name   string  `json:"name"`
	Latest *string `json:"latest"`
}

func newIndexEntry(st Station, series Series) IndexEntry {
	entry := IndexEntry{
		SID:  st.ID,
		City: st.City,
		Town: st.Town,
		Name: st.Name,
	}
	if latest, ok := series.Latest(); ok {
		s := latest.Format(time.RFC3339)
		entry.Latest = &s
	}
	return entry
}
