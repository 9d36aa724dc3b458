package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/weather-station-cache/internal/api/http"
	"github.com/i474232898/weather-station-cache/internal/scheduler"
	"github.com/i474232898/weather-station-cache/internal/weather"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the collector on a schedule and serve the cache over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Bool("no-collect", false, "serve the existing cache without scheduling collector runs")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	stations, err := a.stations(nil)
	if err != nil {
		return err
	}

	noCollect, _ := cmd.Flags().GetBool("no-collect")
	var fetcher weather.HourFetcher
	if !noCollect {
		provider, err := a.provider()
		if err != nil {
			return err
		}
		fetcher = provider
	}
	svc := a.service(fetcher, false)

	if !noCollect {
		sched := scheduler.New(stations, a.cfg.FetchInterval, svc, a.logger)
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
	}

	app := httpapi.NewApp(appName)
	httpapi.RegisterRoutes(app, svc, stations, a.cfg.OutDir)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "port", a.cfg.Port)
		errCh <- app.Listen(":" + a.cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-cmd.Context().Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		a.logger.Error("error during shutdown", "err", err)
	}
	return nil
}
