package config

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/weather-station-cache/internal/weather"
)

var ErrEmptyRoster = errors.New("station roster is empty")

var rosterAliases = map[string]string{
	"sid":          "sid",
	"station_id":   "sid",
	"city":         "city",
	"town":         "town",
	"township":     "town",
	"name":         "name",
	"display_name": "name",
}

// LoadStations reads the station roster CSV at path. Lines starting with '#'
// are ignored; every row needs a station id and ids must be unique.
func LoadStations(path string) ([]weather.Station, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()

	stations, err := ParseStations(f)
	if err != nil {
		return nil, fmt.Errorf("roster %s: %w", path, err)
	}
	return stations, nil
}

// ParseStations reads a roster from r.
func ParseStations(r io.Reader) ([]weather.Station, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(3); err == nil && bytes.Equal(prefix, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyRoster
	}
	if err != nil {
		return nil, err
	}

	cols := map[string]int{}
	for i, name := range header {
		if key, ok := rosterAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
			if _, dup := cols[key]; !dup {
				cols[key] = i
			}
		}
	}
	if _, ok := cols["sid"]; !ok {
		return nil, fmt.Errorf("header %v has no sid column", header)
	}

	validate := validator.New()
	seen := map[string]struct{}{}
	var stations []weather.Station
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)

		st := weather.Station{
			ID:   field(rec, cols, "sid"),
			City: field(rec, cols, "city"),
			Town: field(rec, cols, "town"),
			Name: field(rec, cols, "name"),
		}
		if err := validate.Struct(st); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		key := strings.ToUpper(st.ID)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("line %d: duplicate station %s", line, st.ID)
		}
		seen[key] = struct{}{}
		stations = append(stations, st)
	}

	if len(stations) == 0 {
		return nil, ErrEmptyRoster
	}
	return stations, nil
}

func field(rec []string, cols map[string]int, key string) string {
	i, ok := cols[key]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
