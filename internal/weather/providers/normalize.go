package providers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/clbanning/mxj/v2"

	"github.com/i474232898/weather-station-cache/internal/common"
	"github.com/i474232898/weather-station-cache/internal/weather"
)

// maxBodyBytes caps a single dataset download. A full hourly snapshot of all
// stations is a few MB.
const maxBodyBytes = 64 << 20

var errEmptyDocument = errors.New("dataset document is empty")

// missingCodes are the values CWA uses for "no reading" in numeric fields.
var missingCodes = map[float64]struct{}{
	-99:   {},
	-98:   {},
	-999:  {},
	-9999: {},
}

// decodeBody reads a dataset response into a generic document. JSON is tried
// first; XML (declared or detected) is converted with element names as keys.
func decodeBody(resp *http.Response) (map[string]any, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var jsonErr error
	if !common.HasAny(resp.Header.Get("Content-Type"), "xml") {
		var doc map[string]any
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if jsonErr = dec.Decode(&doc); jsonErr == nil {
			if doc == nil {
				return nil, errEmptyDocument
			}
			return doc, nil
		}
	}

	m, err := mxj.NewMapXml(body)
	if err != nil {
		if jsonErr != nil {
			return nil, fmt.Errorf("body is neither JSON (%v) nor XML: %w", jsonErr, err)
		}
		return nil, fmt.Errorf("decode xml: %w", err)
	}
	return map[string]any(m), nil
}

// stationRecords returns the station list of a dataset document as a uniform
// slice, whatever wrapper the response format used. The list lives under
// records.Station (JSON) or cwaopendata.dataset.Station (XML/file download),
// and a lone station may be an object rather than a one-element list.
func stationRecords(doc map[string]any) []map[string]any {
	raw := lookup(doc, "records", "Station")
	if raw == nil {
		raw = lookup(doc, "cwaopendata", "dataset", "Station")
	}

	switch v := raw.(type) {
	case map[string]any:
		return []map[string]any{v}
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

// findStation picks the record whose id matches stationID, ignoring case.
func findStation(records []map[string]any, stationID string) (map[string]any, bool) {
	for _, rec := range records {
		if strings.EqualFold(recordStationID(rec), stationID) {
			return rec, true
		}
	}
	return nil, false
}

func recordStationID(rec map[string]any) string {
	for _, key := range []string{"StationId", "StationID"} {
		if s := textValue(rec[key]); s != "" {
			return s
		}
	}
	return ""
}

// observationFrom extracts the hour's readings from a station record. Any
// field that is missing or unparsable is left nil; the record itself never
// fails.
func observationFrom(rec map[string]any, hour time.Time) weather.Observation {
	elements := asMap(rec["WeatherElement"])
	now := asMap(elements["Now"])

	return weather.Observation{
		Timestamp:        hour,
		Temperature:      parseReading(elements["AirTemperature"]),
		RelativeHumidity: parseReading(elements["RelativeHumidity"]),
		Precipitation:    parseReading(now["Precipitation"]),
	}
}

// parseReading converts a JSON/XML value to a reading. Non-numeric values
// (including trace "T" and fault "X" markers) and missing-data codes yield nil.
func parseReading(v any) *float64 {
	var (
		f   float64
		err error
	)
	switch t := v.(type) {
	case float64:
		f = t
	case json.Number:
		f, err = t.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(t), 64)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case map[string]any:
		return parseReading(t["#text"])
	default:
		return nil
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	if _, missing := missingCodes[f]; missing {
		return nil
	}
	return &f
}

func lookup(doc map[string]any, path ...string) any {
	var cur any = doc
	for _, key := range path {
		m := asMap(cur)
		if m == nil {
			return nil
		}
		cur = m[key]
	}
	return cur
}

func asMap(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case mxj.Map:
		return m
	default:
		return nil
	}
}

func textValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case map[string]any:
		return textValue(t["#text"])
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
