package weather

import (
	"sort"
)

// Merge folds incoming observations into an existing series.
//
// Timestamps are the dedup key and the incoming side wins: a freshly fetched
// hour replaces the stored one wholesale, even when its fields are nil. Within
// incoming, a later element wins over an earlier one for the same hour. The
// result is sorted ascending with no duplicate timestamps; neither input is
// modified. Merging the same batch twice yields the same series as merging it
// once.
func Merge(existing, incoming Series) Series {
	byHour := make(map[int64]Observation, len(existing)+len(incoming))
	for _, o := range existing {
		byHour[o.Timestamp.UnixNano()] = o
	}
	for _, o := range incoming {
		byHour[o.Timestamp.UnixNano()] = o
	}

	out := make(Series, 0, len(byHour))
	for _, o := range byHour {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
