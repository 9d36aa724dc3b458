package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Store backends accepted by STORE_BACKEND.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

var ErrMissingToken = errors.New("CWA_TOKEN is not set")

type AppConfig struct {
	// CWAToken authorises calls to the CWA open data API. Only commands that
	// talk to the network require it.
	CWAToken   string
	CWABaseURL string `validate:"required,url"`

	// ExportDays is the length of the published window in days.
	ExportDays int `validate:"gte=1"`
	// HoursPerRun is how many hours back each run re-fetches.
	HoursPerRun  int `validate:"gte=1"`
	FetchWorkers int `validate:"gte=1,lte=64"`

	HTTPTimeout time.Duration `validate:"gt=0"`
	// Location is the station time zone (STATION_TZ).
	Location *time.Location `validate:"required"`

	DataDir      string `validate:"required"`
	OutDir       string `validate:"required"`
	StationsFile string `validate:"required"`
	StoreBackend string `validate:"oneof=csv sqlite memory"`
	SQLitePath   string

	// FetchInterval controls how often serve mode runs the collector.
	FetchInterval time.Duration `validate:"gte=1m"`
	FailFast      bool

	Port     string `validate:"required,numeric"`
	AppEnv   string
	LogLevel string `validate:"oneof=debug info warn error"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "err", err)
	}
	cfg := &AppConfig{}

	cfg.CWAToken = strings.TrimSpace(os.Getenv("CWA_TOKEN"))
	cfg.CWABaseURL = getenvDefault("CWA_BASE_URL", "https://opendata.cwa.gov.tw")

	cfg.ExportDays = getenvInt("EXPORT_DAYS", 30)
	cfg.HoursPerRun = getenvInt("HOURS_PER_RUN", 168)
	cfg.FetchWorkers = getenvInt("FETCH_WORKERS", 6)

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", "1h"); err != nil {
		return nil, err
	}

	tz := getenvDefault("STATION_TZ", "Asia/Taipei")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid STATION_TZ: %w", err)
	}
	cfg.Location = loc

	cfg.DataDir = getenvDefault("DATA_DIR", "data")
	cfg.OutDir = getenvDefault("OUT_DIR", "docs/data")
	cfg.StationsFile = getenvDefault("STATIONS_FILE", "stations.csv")
	cfg.StoreBackend = strings.ToLower(getenvDefault("STORE_BACKEND", BackendCSV))
	cfg.SQLitePath = getenvDefault("SQLITE_PATH", cfg.DataDir+"/series.db")
	cfg.FailFast = getenvBool("FAIL_FAST", false)

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.AppEnv = getenvDefault("APP_ENV", "dev")
	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", "info"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags of the configuration.
func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// RequireToken fails when no CWA token is configured.
func (c *AppConfig) RequireToken() error {
	if c.CWAToken == "" {
		return ErrMissingToken
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
