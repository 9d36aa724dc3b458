package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{
		"CWA_TOKEN", "CWA_BASE_URL", "EXPORT_DAYS", "HOURS_PER_RUN", "FETCH_WORKERS",
		"HTTP_TIMEOUT", "STATION_TZ", "DATA_DIR", "OUT_DIR", "STATIONS_FILE",
		"STORE_BACKEND", "SQLITE_PATH", "FETCH_INTERVAL", "FAIL_FAST", "PORT",
		"APP_ENV", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ExportDays != 30 || cfg.HoursPerRun != 168 || cfg.FetchWorkers != 6 {
		t.Fatalf("unexpected numeric defaults: %+v", cfg)
	}
	if cfg.HTTPTimeout != 15*time.Second || cfg.FetchInterval != time.Hour {
		t.Fatalf("unexpected duration defaults: %s %s", cfg.HTTPTimeout, cfg.FetchInterval)
	}
	if cfg.Location.String() != "Asia/Taipei" {
		t.Fatalf("expected Asia/Taipei, got %s", cfg.Location)
	}
	if cfg.StoreBackend != BackendCSV || cfg.SQLitePath != "data/series.db" {
		t.Fatalf("unexpected store defaults: %s %s", cfg.StoreBackend, cfg.SQLitePath)
	}
	if !errors.Is(cfg.RequireToken(), ErrMissingToken) {
		t.Fatal("expected missing token error")
	}
}

func TestLoadOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CWA_TOKEN", " CWA-123 ")
	t.Setenv("EXPORT_DAYS", "7")
	t.Setenv("STORE_BACKEND", "SQLite")
	t.Setenv("FAIL_FAST", "true")
	t.Setenv("STATION_TZ", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CWAToken != "CWA-123" || cfg.RequireToken() != nil {
		t.Fatalf("unexpected token %q", cfg.CWAToken)
	}
	if cfg.ExportDays != 7 || cfg.StoreBackend != BackendSQLite || !cfg.FailFast {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	chdir(t, t.TempDir())
	cases := map[string]string{
		"STORE_BACKEND":  "postgres",
		"HTTP_TIMEOUT":   "soon",
		"STATION_TZ":     "Mars/Olympus",
		"FETCH_WORKERS":  "0",
		"FETCH_INTERVAL": "10s",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}

func TestParseStations(t *testing.T) {
	roster := "\ufeff# stations tracked by the dashboard\n" +
		"station_id,city,township,display_name\n" +
		"C0A520, 新北市,板橋區,板橋\n" +
		"\n" +
		"466920,臺北市,中正區,臺北\n"

	stations, err := ParseStations(strings.NewReader(roster))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stations) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(stations))
	}
	if got := stations[0]; got.ID != "C0A520" || got.City != "新北市" || got.Town != "板橋區" || got.Name != "板橋" {
		t.Fatalf("unexpected first station %+v", got)
	}
}

func TestParseStationsErrors(t *testing.T) {
	cases := map[string]string{
		"no sid column": "city,town\nA,B\n",
		"empty sid":     "sid,city\n,Taipei\n",
		"duplicate":     "sid\nC0A520\nc0a520\n",
		"header only":   "sid,city,town,name\n",
		"empty file":    "",
	}
	for name, roster := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseStations(strings.NewReader(roster)); err == nil {
				t.Fatalf("expected error for %q", roster)
			}
		})
	}
}

func TestLoadStationsMissingFile(t *testing.T) {
	_, err := LoadStations(filepath.Join(t.TempDir(), "absent.csv"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore cwd: %v", err)
		}
	})
}
