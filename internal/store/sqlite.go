package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/i474232898/weather-station-cache/internal/weather"
)

//go:embed sql/schema.sql
var schemaSQL string

//go:embed sql/get-series.sql
var getSeriesSQL string

//go:embed sql/get-observations.sql
var getObservationsSQL string

//go:embed sql/upsert-series.sql
var upsertSeriesSQL string

//go:embed sql/delete-observations.sql
var deleteObservationsSQL string

//go:embed sql/insert-observation.sql
var insertObservationSQL string

// Fixed-width UTC layout so that text ordering in SQLite matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore keeps every station's series in one SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	loc *time.Location
}

// OpenSQLite opens (creating if needed) a database file and prepares the schema.
func OpenSQLite(path string, loc *time.Location) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	s, err := NewSQLiteStore(db, loc)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an open database and applies the schema.
func NewSQLiteStore(db *sql.DB, loc *time.Location) (*SQLiteStore, error) {
	if loc == nil {
		loc = time.UTC
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db, loc: loc}, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load returns a station's series ordered by timestamp. A station that was
// never saved yields weather.ErrNoSeries.
func (s *SQLiteStore) Load(ctx context.Context, stationID string) (weather.Series, error) {
	var savedAt string
	err := s.db.QueryRowContext(ctx, getSeriesSQL, stationID).Scan(&savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: station %s", weather.ErrNoSeries, stationID)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup series %q: %w", stationID, err)
	}

	rows, err := s.db.QueryContext(ctx, getObservationsSQL, stationID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close observation rows", "error", err)
		}
	}()

	series := weather.Series{}
	for rows.Next() {
		var (
			ts             string
			temp, rh, rain sql.NullFloat64
		)
		if err := rows.Scan(&ts, &temp, &rh, &rain); err != nil {
			return nil, err
		}
		t, err := time.Parse(sqliteTimeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		series = append(series, weather.Observation{
			Timestamp:        t.In(s.loc),
			Temperature:      nullFloat(temp),
			RelativeHumidity: nullFloat(rh),
			Precipitation:    nullFloat(rain),
		})
	}
	return series, rows.Err()
}

// Save replaces a station's series in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, stationID string, series weather.Series) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC().Format(sqliteTimeLayout)
	if _, err = tx.ExecContext(ctx, upsertSeriesSQL, stationID, now); err != nil {
		return fmt.Errorf("upsert series: %w", err)
	}
	if _, err = tx.ExecContext(ctx, deleteObservationsSQL, stationID); err != nil {
		return fmt.Errorf("delete observations: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertObservationSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range series {
		ts := o.Timestamp.UTC().Format(sqliteTimeLayout)
		if _, err = stmt.ExecContext(ctx, stationID, ts, nullable(o.Temperature), nullable(o.RelativeHumidity), nullable(o.Precipitation)); err != nil {
			return fmt.Errorf("insert observation %s: %w", ts, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullable(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
