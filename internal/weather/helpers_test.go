package weather

import (
	"context"
	"fmt"
	"sync"
	"time"
)

func ptr(v float64) *float64 { return &v }

func hourly(start time.Time, n int) Series {
	out := make(Series, n)
	for i := range out {
		out[i] = Observation{
			Timestamp:        start.Add(time.Duration(i) * time.Hour),
			Temperature:      ptr(float64(20 + i%10)),
			RelativeHumidity: ptr(70),
			Precipitation:    ptr(0),
		}
	}
	return out
}

// fakeFetcher answers from a per-hour table; hours not in the table are NotFound.
type fakeFetcher struct {
	mu      sync.Mutex
	results map[int64]HourResult
	calls   int
	delay   time.Duration
}

func (f *fakeFetcher) FetchHour(ctx context.Context, hour time.Time, stationID string) HourResult {
	f.mu.Lock()
	f.calls++
	res, ok := f.results[hour.Unix()]
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return FailedHour(stationID, hour, ctx.Err())
		}
	}
	if !ok {
		return MissingHour()
	}
	return res
}

// memSeriesStore is a minimal SeriesStore for service tests.
type memSeriesStore struct {
	mu       sync.Mutex
	data     map[string]Series
	saves    int
	saveErrs map[string]error
}

func newMemSeriesStore() *memSeriesStore {
	return &memSeriesStore{data: map[string]Series{}, saveErrs: map[string]error{}}
}

func (s *memSeriesStore) Load(_ context.Context, stationID string) (Series, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	series, ok := s.data[stationID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSeries, stationID)
	}
	return append(Series(nil), series...), nil
}

func (s *memSeriesStore) Save(_ context.Context, stationID string, series Series) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveErrs[stationID]; err != nil {
		return err
	}
	s.saves++
	s.data[stationID] = append(Series(nil), series...)
	return nil
}

// recordingPublisher keeps the last payload per station and the last index.
type recordingPublisher struct {
	mu       sync.Mutex
	payloads map[string]Payload
	index    *Index
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{payloads: map[string]Payload{}}
}

func (p *recordingPublisher) PublishStation(_ context.Context, payload Payload) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads[payload.Station] = payload
	return payload.Station + ".json", nil
}

func (p *recordingPublisher) PublishIndex(_ context.Context, index Index) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.index = &index
	return "index.json", nil
}
