package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/i474232898/weather-station-cache/internal/config"
	"github.com/i474232898/weather-station-cache/internal/logging"
	"github.com/i474232898/weather-station-cache/internal/publish"
	"github.com/i474232898/weather-station-cache/internal/store"
	"github.com/i474232898/weather-station-cache/internal/weather"
	"github.com/i474232898/weather-station-cache/internal/weather/providers"
)

// app holds what every command shares: configuration, logger and the open
// series store.
type app struct {
	cfg       *config.AppConfig
	logger    *slog.Logger
	store     weather.SeriesStore
	closeFunc func() error
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger, closeFunc: func() error { return nil }}
	if err := a.openStore(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) openStore() error {
	switch a.cfg.StoreBackend {
	case config.BackendSQLite:
		s, err := store.OpenSQLite(a.cfg.SQLitePath, a.cfg.Location)
		if err != nil {
			return fmt.Errorf("failed to open sqlite store: %w", err)
		}
		a.store = s
		a.closeFunc = s.Close
	case config.BackendMemory:
		a.store = store.NewMemoryStore()
	default:
		a.store = store.NewCSVStore(a.cfg.DataDir, a.cfg.Location)
	}
	a.logger.Debug("series store ready", "backend", a.cfg.StoreBackend)
	return nil
}

func (a *app) Close() error {
	return a.closeFunc()
}

// provider builds the CWA client on a shared connection pool.
func (a *app) provider() (*providers.CWAProvider, error) {
	if err := a.cfg.RequireToken(); err != nil {
		return nil, err
	}
	httpClient := &http.Client{
		Timeout: a.cfg.HTTPTimeout,
	}
	return providers.NewCWAProvider(httpClient, a.cfg.CWAToken, a.cfg.CWABaseURL, a.cfg.Location), nil
}

func (a *app) service(fetcher weather.HourFetcher, dryRun bool) *weather.Service {
	collector := weather.NewCollector(fetcher, a.cfg.FetchWorkers, a.logger)
	return weather.NewService(
		collector,
		a.store,
		publish.NewJSONPublisher(a.cfg.OutDir),
		weather.ServiceConfig{
			ExportDays:  a.cfg.ExportDays,
			HoursPerRun: a.cfg.HoursPerRun,
			Location:    a.cfg.Location,
			FailFast:    a.cfg.FailFast,
			DryRun:      dryRun,
		},
		a.logger,
	)
}

// stations loads the roster, optionally narrowed to the given ids.
func (a *app) stations(only []string) ([]weather.Station, error) {
	all, err := config.LoadStations(a.cfg.StationsFile)
	if err != nil {
		return nil, err
	}
	if len(only) == 0 {
		return all, nil
	}

	var out []weather.Station
	for _, id := range only {
		found := false
		for _, st := range all {
			if strings.EqualFold(st.ID, id) {
				out = append(out, st)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("station %s is not in %s", id, a.cfg.StationsFile)
		}
	}
	return out, nil
}
