package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/i474232898/weather-station-cache/internal/store"
	"github.com/i474232898/weather-station-cache/internal/weather"
)

var testStations = []weather.Station{
	{ID: "C0A520", City: "新北市", Town: "板橋區", Name: "板橋"},
	{ID: "466920", City: "臺北市", Town: "中正區", Name: "臺北"},
}

func ptr(v float64) *float64 { return &v }

func newTestService(t *testing.T) *weather.Service {
	t.Helper()
	memStore := store.NewMemoryStore()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	series := weather.Series{
		{Timestamp: base, Temperature: ptr(24), RelativeHumidity: ptr(80), Precipitation: ptr(0)},
		{Timestamp: base.Add(time.Hour), Temperature: ptr(25)},
		{Timestamp: base.Add(2 * time.Hour), Temperature: ptr(26), Precipitation: ptr(1.5)},
	}
	if err := memStore.Save(context.Background(), "C0A520", series); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	svc := weather.NewService(nil, memStore, nil, weather.ServiceConfig{ExportDays: 30, Location: time.UTC}, nil)
	return svc.WithClock(func() time.Time { return base.Add(3 * time.Hour) })
}

func doGet(t *testing.T, target string, dataDir string) (*http.Response, []byte) {
	t.Helper()
	app := NewApp("test")
	RegisterRoutes(app, newTestService(t), testStations, dataDir)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}

func TestHealth(t *testing.T) {
	resp, _ := doGet(t, "/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func TestStationsIndex(t *testing.T) {
	resp, body := doGet(t, "/api/v1/stations", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var index weather.Index
	if err := json.Unmarshal(body, &index); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(index.Stations) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(index.Stations))
	}
	if index.Stations[0].Latest == nil || *index.Stations[0].Latest != "2024-05-01T02:00:00Z" {
		t.Fatalf("unexpected latest for first station: %v", index.Stations[0].Latest)
	}
	if index.Stations[1].Latest != nil {
		t.Fatalf("expected null latest for station without data, got %s", *index.Stations[1].Latest)
	}
}

func TestStationPayload(t *testing.T) {
	resp, body := doGet(t, "/api/v1/stations/c0a520", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var payload weather.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Station != "C0A520" || len(payload.Series) != 3 {
		t.Fatalf("unexpected payload: station=%s series=%d", payload.Station, len(payload.Series))
	}
	if len(payload.Forecast.Day) != weather.ShortHorizonHours {
		t.Fatalf("expected %d forecast hours, got %d", weather.ShortHorizonHours, len(payload.Forecast.Day))
	}
}

func TestStationNotFound(t *testing.T) {
	// Unknown to the roster.
	resp, _ := doGet(t, "/api/v1/stations/NOPE", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}

	// In the roster but never collected.
	resp, _ = doGet(t, "/api/v1/stations/466920", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

// TestHistoryValidation verifies that the history endpoint requires an
// ordered from/to pair.
func TestHistoryValidation(t *testing.T) {
	for _, target := range []string{
		"/api/v1/stations/C0A520/history",
		"/api/v1/stations/C0A520/history?from=2024-05-01T00:00:00Z",
		"/api/v1/stations/C0A520/history?from=yesterday&to=today",
		"/api/v1/stations/C0A520/history?from=1714536000&to=1714532400",
	} {
		resp, _ := doGet(t, target, "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected status %d, got %d", target, http.StatusBadRequest, resp.StatusCode)
		}
	}
}

func TestHistoryRange(t *testing.T) {
	// 2024-05-01T01:00:00Z .. 2024-05-01T02:00:00Z
	resp, body := doGet(t, "/api/v1/stations/C0A520/history?from=1714525200&to=2024-05-01T10:00:00%2B08:00", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, resp.StatusCode, body)
	}

	var got struct {
		Observations []historyPoint `json:"observations"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Observations) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(got.Observations))
	}
	if got.Observations[0].Rain != nil {
		t.Fatalf("expected raw null rain in history, got %v", *got.Observations[0].Rain)
	}
}

func TestStaticData(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.json"), []byte(`{"stations":[]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	resp, body := doGet(t, "/data/index.json", dir)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if string(body) != `{"stations":[]}` {
		t.Fatalf("unexpected body %s", body)
	}
}
