package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/i474232898/weather-station-cache/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory implementation of weather.SeriesStore.
type MemoryStore struct {
	mu sync.RWMutex

	// key: station id
	data map[string]weather.Series
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]weather.Series),
	}
}

// Load returns a copy of the stored series.
func (s *MemoryStore) Load(_ context.Context, stationID string) (weather.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series, ok := s.data[stationID]
	if !ok {
		return nil, fmt.Errorf("%w: station %s", weather.ErrNoSeries, stationID)
	}
	return cloneSeries(series), nil
}

// Save replaces the stored series with a copy of series.
func (s *MemoryStore) Save(_ context.Context, stationID string, series weather.Series) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[stationID] = cloneSeries(series)
	return nil
}

func cloneSeries(in weather.Series) weather.Series {
	out := make(weather.Series, len(in))
	copy(out, in)
	return out
}
