package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-station-cache/internal/weather"
)

const (
	// DefaultCWABaseURL is the Central Weather Administration open data host.
	DefaultCWABaseURL = "https://opendata.cwa.gov.tw"

	// observationDataset is the automatic weather station hourly dataset.
	observationDataset = "O-A0001-001"
)

var errMissingToken = errors.New("cwa authorization token is not configured")

// StationInfo describes a station listed by the realtime dataset.
type StationInfo struct {
	ID     string `json:"sid"`
	Name   string `json:"name"`
	County string `json:"county"`
	Town   string `json:"town"`
}

// CWAProvider reads hourly station observations from the CWA open data API.
// The history endpoint serves one hour of all stations per request.
type CWAProvider struct {
	name    string
	token   string
	baseURL string
	loc     *time.Location
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewCWAProvider creates a provider. Hours are addressed in loc, the time zone
// the archive is organised by (Asia/Taipei for CWA).
func NewCWAProvider(client *http.Client, token, baseURL string, loc *time.Location) *CWAProvider {
	if baseURL == "" {
		baseURL = DefaultCWABaseURL
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CWAProvider{
		name:    "cwa",
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		loc:     loc,
		httpCfg: defaultHTTPConfig(client),
		circuit: newCircuitBreaker("cwa"),
	}
}

func (p *CWAProvider) Name() string {
	return p.name
}

// WithBackoff overrides the retry policy.
func (p *CWAProvider) WithBackoff(b BackoffConfig) *CWAProvider {
	p.httpCfg.Backoff = b
	return p
}

// FetchHour implements weather.HourFetcher.
func (p *CWAProvider) FetchHour(ctx context.Context, hour time.Time, stationID string) weather.HourResult {
	if p.token == "" {
		return weather.FailedHour(stationID, hour, errMissingToken)
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("Authorization", p.token)
		values.Set("downloadType", "WEB")
		values.Set("format", "JSON")

		path := hour.In(p.loc).Format("2006/01/02/15") + "/00/00"
		u := fmt.Sprintf("%s/historyapi/v1/getData/%s/%s?%s", p.baseURL, observationDataset, path, values.Encode())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if errors.Is(err, ErrNotFound) {
		return weather.MissingHour()
	}
	if err != nil {
		return weather.FailedHour(stationID, hour, err)
	}
	defer resp.Body.Close()

	doc, err := decodeBody(resp)
	if err != nil {
		return weather.FailedHour(stationID, hour, err)
	}

	rec, ok := findStation(stationRecords(doc), stationID)
	if !ok {
		return weather.MissingHour()
	}
	return weather.FoundHour(observationFrom(rec, hour.In(p.loc)))
}

// ListStations returns the stations currently reporting to the realtime
// dataset, optionally filtered by county and town name. Empty filters match
// everything.
func (p *CWAProvider) ListStations(ctx context.Context, county, town string) ([]StationInfo, error) {
	if p.token == "" {
		return nil, errMissingToken
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("Authorization", p.token)

		u := fmt.Sprintf("%s/api/v1/rest/datastore/%s?%s", p.baseURL, observationDataset, values.Encode())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	defer resp.Body.Close()

	doc, err := decodeBody(resp)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}

	var out []StationInfo
	for _, rec := range stationRecords(doc) {
		geo := asMap(rec["GeoInfo"])
		info := StationInfo{
			ID:     recordStationID(rec),
			Name:   textValue(rec["StationName"]),
			County: textValue(geo["CountyName"]),
			Town:   textValue(geo["TownName"]),
		}
		if county != "" && info.County != county {
			continue
		}
		if town != "" && info.Town != town {
			continue
		}
		out = append(out, info)
	}
	return out, nil
}
