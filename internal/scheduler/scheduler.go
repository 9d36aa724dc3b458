package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-station-cache/internal/weather"
)

// Runner is the part of weather.Service the scheduler drives.
type Runner interface {
	Run(ctx context.Context, stations []weather.Station) (weather.Index, error)
}

// Scheduler periodically refreshes the station cache.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	stations  []weather.Station
	interval  time.Duration
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Scheduler.
func New(stations []weather.Station, interval time.Duration, runner Runner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := gocron.NewScheduler(time.UTC)
	// Never start a run while the previous one is still going.
	s.SingletonModeAll()

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		stations:  stations,
		interval:  interval,
		logger:    logger.With("component", "scheduler"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the periodic job and starts the underlying scheduler. The
// first run starts immediately.
func (s *Scheduler) Start() error {
	if len(s.stations) == 0 {
		s.logger.Warn("no stations configured; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = time.Hour
	}

	_, err := s.scheduler.Every(interval).Do(s.runOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) runOnce() {
	s.logger.Info("running collector job", "stations", len(s.stations))
	started := time.Now()

	index, err := s.runner.Run(s.ctx, s.stations)
	if err != nil {
		s.logger.Error("collector job finished with errors", "err", err, "elapsed", time.Since(started))
		return
	}
	s.logger.Info("collector job completed", "indexed", len(index.Stations), "elapsed", time.Since(started))
}

// Stop cancels a running job and stops the scheduler.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
