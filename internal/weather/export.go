package weather

import (
	"time"

	"github.com/i474232898/weather-station-cache/internal/common"
)

// Forecast horizon sizes in hours. The keys are what the front end's three
// chart views are named after, not the length of the grid behind them.
const (
	ShortHorizonHours  = 8
	MediumHorizonHours = 3 * 24
	LongHorizonHours   = 7 * 24
)

// Payload is the per-station document published for the front end. Field
// names and presence are part of the published contract.
type Payload struct {
	Station     string        `json:"station"`
	City        string        `json:"city"`
	Town        string        `json:"town"`
	Name        string        `json:"name"`
	GeneratedAt string        `json:"generated_at"`
	Series      []SeriesPoint `json:"series"`
	Forecast    ForecastGrid  `json:"forecast"`
}

// SeriesPoint is one observed hour. Temperature and humidity stay null when
// unknown; rain is always a number.
type SeriesPoint struct {
	T    string   `json:"t"`
	Temp *float64 `json:"temp"`
	RH   *float64 `json:"rh"`
	Rain float64  `json:"rain"`
}

// ForecastPoint is a future hour on the chart axis. Values are always null.
type ForecastPoint struct {
	T    string   `json:"t"`
	Temp *float64 `json:"temp"`
	RH   *float64 `json:"rh"`
}

// ForecastGrid holds the placeholder time axis for the three chart views.
type ForecastGrid struct {
	Day   []ForecastPoint `json:"24h"`
	Week  []ForecastPoint `json:"7d"`
	Month []ForecastPoint `json:"30d"`
}

// Export builds the published payload for a station.
//
// The window is anchored on the newest observation in series, not on now, so
// a stale cache still yields a self-consistent window:
// [latest - days, latest], both ends inclusive. The forecast grid, by
// contrast, starts from now floored to the hour in loc.
//
// A missing rain reading is exported as 0 (no rain recorded); missing
// temperature and humidity are exported as null.
func Export(st Station, series Series, now time.Time, days int, loc *time.Location) Payload {
	return Payload{
		Station:     st.ID,
		City:        st.City,
		Town:        st.Town,
		Name:        st.Name,
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Series:      seriesPoints(Window(series, days)),
		Forecast:    NewForecastGrid(now, loc),
	}
}

// Window returns the observations within days of the newest one, sorted the
// same way as series.
func Window(series Series, days int) Series {
	end, ok := series.Latest()
	if !ok {
		return Series{}
	}
	start := end.Add(-time.Duration(days) * 24 * time.Hour)
	return series.Range(start, end)
}

// NewForecastGrid builds the three placeholder horizons starting the hour after
// now's hour.
func NewForecastGrid(now time.Time, loc *time.Location) ForecastGrid {
	anchor := common.FloorHour(now, loc)
	return ForecastGrid{
		Day:   forecastPoints(anchor, ShortHorizonHours),
		Week:  forecastPoints(anchor, MediumHorizonHours),
		Month: forecastPoints(anchor, LongHorizonHours),
	}
}

func forecastPoints(anchor time.Time, n int) []ForecastPoint {
	hours := common.NextHours(anchor, n)
	out := make([]ForecastPoint, len(hours))
	for i, h := range hours {
		out[i] = ForecastPoint{T: h.Format(time.RFC3339)}
	}
	return out
}

func seriesPoints(series Series) []SeriesPoint {
	out := make([]SeriesPoint, 0, len(series))
	for _, o := range series {
		p := SeriesPoint{
			T:    o.Timestamp.Format(time.RFC3339),
			Temp: copyFloat(o.Temperature),
			RH:   copyFloat(o.RelativeHumidity),
		}
		if o.Precipitation != nil {
			p.Rain = *o.Precipitation
		}
		out = append(out, p)
	}
	return out
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
