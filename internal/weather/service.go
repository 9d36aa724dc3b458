package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-station-cache/internal/common"
)

// ServiceConfig is fixed for the lifetime of a Service.
type ServiceConfig struct {
	// ExportDays is the length of the published window.
	ExportDays int
	// HoursPerRun is how many hours back from now each run re-fetches.
	HoursPerRun int
	// Location is the station time zone used for hour alignment.
	Location *time.Location
	// FailFast aborts the whole run on the first station failure instead of
	// moving on to the next station.
	FailFast bool
	// DryRun fetches and exports without saving or publishing anything.
	DryRun bool
}

// StationResult summarises one processed station.
type StationResult struct {
	Entry    IndexEntry
	Path     string
	Fetched  int
	Stored   int
	Exported int
}

// Service orchestrates collect -> merge -> export for a station roster.
type Service struct {
	collector *Collector
	store     SeriesStore
	publisher Publisher
	cfg       ServiceConfig
	now       func() time.Time
	logger    *slog.Logger
}

// NewService creates a new Service.
func NewService(collector *Collector, store SeriesStore, publisher Publisher, cfg ServiceConfig, logger *slog.Logger) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		collector: collector,
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger,
	}
}

// WithClock replaces the wall clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Run updates every station in order and publishes a fresh index.
//
// A failing station is logged and reported in the returned error, but does not
// stop the others; its index entry is kept from whatever the cache already
// holds. With FailFast the first failure ends the run and no index is
// published.
func (s *Service) Run(ctx context.Context, stations []Station) (Index, error) {
	return s.runStations(ctx, "update", stations, s.UpdateStation)
}

// ExportAll republishes every station from the cache without fetching.
func (s *Service) ExportAll(ctx context.Context, stations []Station) (Index, error) {
	return s.runStations(ctx, "export", stations, s.ExportStation)
}

func (s *Service) runStations(
	ctx context.Context,
	mode string,
	stations []Station,
	step func(context.Context, Station) (StationResult, error),
) (Index, error) {
	logger := s.logger.With("run_id", uuid.NewString(), "mode", mode)
	logger.Info("run started",
		"stations", len(stations),
		"hours_per_run", s.cfg.HoursPerRun,
		"export_days", s.cfg.ExportDays,
		"dry_run", s.cfg.DryRun,
	)

	index := Index{Stations: make([]IndexEntry, 0, len(stations))}
	var errs []error

	for _, st := range stations {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		res, err := step(ctx, st)
		if err != nil {
			logger.Error("station failed", "station", st.ID, "err", err)
			errs = append(errs, &StationError{StationID: st.ID, Err: err})
			if s.cfg.FailFast {
				return index, errors.Join(errs...)
			}
			if entry, ok := s.lastKnownEntry(ctx, st); ok {
				index.Stations = append(index.Stations, entry)
			}
			continue
		}

		latest := "none"
		if res.Entry.Latest != nil {
			latest = *res.Entry.Latest
		}
		logger.Info("station done",
			"station", st.ID,
			"path", res.Path,
			"latest", latest,
			"fetched", res.Fetched,
			"stored", res.Stored,
			"exported", res.Exported,
		)
		index.Stations = append(index.Stations, res.Entry)
	}

	if !s.cfg.DryRun && ctx.Err() == nil {
		path, err := s.publisher.PublishIndex(ctx, index)
		if err != nil {
			errs = append(errs, fmt.Errorf("publish index: %w", err))
		} else {
			logger.Info("index published", "path", path, "stations", len(index.Stations))
		}
	}

	logger.Info("run finished", "failed", len(errs))
	return index, errors.Join(errs...)
}

// UpdateStation fetches the recent hours for one station, merges them into its
// stored series and publishes the windowed payload.
func (s *Service) UpdateStation(ctx context.Context, st Station) (StationResult, error) {
	now := s.now()
	hours := common.LastHours(common.FloorHour(now, s.cfg.Location), s.cfg.HoursPerRun)

	fresh, err := s.collector.Collect(ctx, hours, st.ID)
	if err != nil {
		return StationResult{}, err
	}

	existing, err := s.store.Load(ctx, st.ID)
	uncached := errors.Is(err, ErrNoSeries)
	if err != nil && !uncached {
		return StationResult{}, fmt.Errorf("load series: %w", err)
	}

	merged := Merge(existing, fresh)
	// A series is only created once something was actually fetched for it.
	if !s.cfg.DryRun && !(uncached && len(fresh) == 0) {
		if err := s.store.Save(ctx, st.ID, merged); err != nil {
			return StationResult{}, fmt.Errorf("save series: %w", err)
		}
	}

	res, err := s.publish(ctx, st, merged, now)
	res.Fetched = len(fresh)
	return res, err
}

// ExportStation publishes a station's payload from the cache alone. It fails
// with ErrNoSeries when the collector has never stored anything for it.
func (s *Service) ExportStation(ctx context.Context, st Station) (StationResult, error) {
	series, err := s.store.Load(ctx, st.ID)
	if err != nil {
		if errors.Is(err, ErrNoSeries) {
			return StationResult{}, fmt.Errorf("no cached series for station %s; run the collector first: %w", st.ID, err)
		}
		return StationResult{}, fmt.Errorf("load series: %w", err)
	}
	return s.publish(ctx, st, series, s.now())
}

// Payload builds a station's payload from the cache without publishing it.
func (s *Service) Payload(ctx context.Context, st Station) (Payload, error) {
	series, err := s.store.Load(ctx, st.ID)
	if err != nil {
		return Payload{}, err
	}
	return Export(st, series, s.now(), s.cfg.ExportDays, s.cfg.Location), nil
}

// History returns the stored observations of a station between from and to,
// both inclusive.
func (s *Service) History(ctx context.Context, stationID string, from, to time.Time) (Series, error) {
	series, err := s.store.Load(ctx, stationID)
	if err != nil {
		return nil, err
	}
	return series.Range(from, to), nil
}

// Index builds the station index from the cache as it is now.
func (s *Service) Index(ctx context.Context, stations []Station) Index {
	index := Index{Stations: make([]IndexEntry, 0, len(stations))}
	for _, st := range stations {
		entry, ok := s.lastKnownEntry(ctx, st)
		if !ok {
			entry = newIndexEntry(st, nil)
		}
		index.Stations = append(index.Stations, entry)
	}
	return index
}

func (s *Service) publish(ctx context.Context, st Station, series Series, now time.Time) (StationResult, error) {
	payload := Export(st, series, now, s.cfg.ExportDays, s.cfg.Location)
	res := StationResult{
		Entry:    newIndexEntry(st, series),
		Stored:   len(series),
		Exported: len(payload.Series),
	}
	if s.cfg.DryRun {
		return res, nil
	}

	path, err := s.publisher.PublishStation(ctx, payload)
	if err != nil {
		return StationResult{}, fmt.Errorf("publish payload: %w", err)
	}
	res.Path = path
	return res, nil
}

func (s *Service) lastKnownEntry(ctx context.Context, st Station) (IndexEntry, bool) {
	series, err := s.store.Load(ctx, st.ID)
	if err != nil || len(series) == 0 {
		return IndexEntry{}, false
	}
	return newIndexEntry(st, series), true
}
