package weather

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds concurrent hour fetches for one station. The upstream
// rate-limits aggressive clients, so fan-out is never unbounded.
const DefaultWorkers = 6

// Collector fetches a set of hours for one station through a bounded pool.
type Collector struct {
	fetcher HourFetcher
	workers int
	logger  *slog.Logger
}

// NewCollector creates a Collector. workers <= 0 falls back to DefaultWorkers.
func NewCollector(fetcher HourFetcher, workers int, logger *slog.Logger) *Collector {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		fetcher: fetcher,
		workers: workers,
		logger:  logger,
	}
}

// Collect fetches every hour concurrently and returns the Found observations in
// no particular order. NotFound hours are dropped. The first transport failure
// cancels the remaining fetches and fails the whole call; no partial result is
// returned.
func (c *Collector) Collect(ctx context.Context, hours []time.Time, stationID string) ([]Observation, error) {
	var (
		mu      sync.Mutex
		found   []Observation
		missing int
		seen    = make(map[int64]struct{}, len(hours))
	)
	startedAt := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for _, hour := range hours {
		key := hour.Unix()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		hour := hour
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res := c.fetcher.FetchHour(gctx, hour, stationID)
			switch res.Status {
			case Found:
				mu.Lock()
				found = append(found, res.Observation)
				mu.Unlock()
			case NotFound:
				mu.Lock()
				missing++
				mu.Unlock()
			default:
				if res.Err != nil {
					return res.Err
				}
				return &TransportError{StationID: stationID, Hour: hour, Err: fmt.Errorf("unexpected fetch status %s", res.Status)}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.logger.Debug("collected hours",
		"station", stationID,
		"requested", len(seen),
		"found", len(found),
		"missing", missing,
		"elapsed", time.Since(startedAt),
	)
	return found, nil
}
