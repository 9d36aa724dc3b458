package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/i474232898/weather-station-cache/internal/weather"
)

var csvHeader = []string{"timestamp", "temperature", "relative_humidity", "precipitation"}

// Accepted header names per column, including the legacy names of older cache
// files.
var csvColumnAliases = [][]string{
	{"timestamp", "datetime"},
	{"temperature"},
	{"relative_humidity", "rh"},
	{"precipitation", "precip"},
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var errInvalidStationID = errors.New("invalid station id")

// CSVStore keeps one CSV file per station under dir.
type CSVStore struct {
	dir string
	loc *time.Location
}

// NewCSVStore creates a store rooted at dir. Timestamps without an offset are
// read in loc, and every loaded timestamp is returned in loc.
func NewCSVStore(dir string, loc *time.Location) *CSVStore {
	if loc == nil {
		loc = time.UTC
	}
	return &CSVStore{dir: dir, loc: loc}
}

// Path returns the file backing a station's series.
func (s *CSVStore) Path(stationID string) string {
	return filepath.Join(s.dir, stationID+"_hourly.csv")
}

// Load reads a station's series, sorted by timestamp.
func (s *CSVStore) Load(_ context.Context, stationID string) (weather.Series, error) {
	if err := checkStationID(stationID); err != nil {
		return nil, err
	}

	path := s.Path(stationID)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", weather.ErrNoSeries, path)
		}
		return nil, err
	}
	defer f.Close()

	series, err := s.decode(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return series, nil
}

// Save rewrites a station's file atomically: the new content is written to a
// temporary file in the same directory and renamed over the old one.
func (s *CSVStore) Save(_ context.Context, stationID string, series weather.Series) error {
	if err := checkStationID(stationID); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", s.dir, err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, o := range series {
		row := []string{
			o.Timestamp.In(s.loc).Format(time.RFC3339),
			formatCell(o.Temperature),
			formatCell(o.RelativeHumidity),
			formatCell(o.Precipitation),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	path := s.Path(stationID)
	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *CSVStore) decode(r io.Reader) (weather.Series, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return weather.Series{}, nil
	}
	if err != nil {
		return nil, err
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var series weather.Series
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		ts, err := s.parseTimestamp(cell(rec, cols[0]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		series = append(series, weather.Observation{
			Timestamp:        ts,
			Temperature:      parseCell(cell(rec, cols[1])),
			RelativeHumidity: parseCell(cell(rec, cols[2])),
			Precipitation:    parseCell(cell(rec, cols[3])),
		})
	}

	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Timestamp.Before(series[j].Timestamp)
	})
	return series, nil
}

func (s *CSVStore) parseTimestamp(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, v, s.loc); err == nil {
			return t.In(s.loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", v)
}

// resolveColumns maps each known column to its index in header; -1 when a
// value column is absent. The timestamp column is mandatory.
func resolveColumns(header []string) ([4]int, error) {
	cols := [4]int{-1, -1, -1, -1}
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		for c, aliases := range csvColumnAliases {
			for _, alias := range aliases {
				if name == alias && cols[c] < 0 {
					cols[c] = i
				}
			}
		}
	}
	if cols[0] < 0 {
		return cols, fmt.Errorf("missing timestamp column in header %v", header)
	}
	return cols, nil
}

func cell(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}

func parseCell(v string) *float64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func formatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func checkStationID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q", errInvalidStationID, id)
	}
	return nil
}
