package weather

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// FetchStatus is the closed set of outcomes of a single hour fetch.
type FetchStatus int

const (
	// Found means the station reported data for the hour.
	Found FetchStatus = iota
	// NotFound covers hours the source has no data for (future, not yet
	// published, or gaps). It is an expected outcome, not an error.
	NotFound
	// TransportFailed means the source could not be asked or its answer could
	// not be read. The enclosing collection must fail.
	TransportFailed
)

func (s FetchStatus) String() string {
	switch s {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case TransportFailed:
		return "transport_failed"
	default:
		return fmt.Sprintf("FetchStatus(%d)", int(s))
	}
}

// HourResult is what an HourFetcher returns for one station-hour.
// Observation is set only for Found, Err only for TransportFailed.
type HourResult struct {
	Status      FetchStatus
	Observation Observation
	Err         error
}

// FoundHour builds a Found result.
func FoundHour(obs Observation) HourResult {
	return HourResult{Status: Found, Observation: obs}
}

// MissingHour builds a NotFound result.
func MissingHour() HourResult {
	return HourResult{Status: NotFound}
}

// FailedHour builds a TransportFailed result wrapping err in a TransportError.
func FailedHour(stationID string, hour time.Time, err error) HourResult {
	return HourResult{
		Status: TransportFailed,
		Err:    &TransportError{StationID: stationID, Hour: hour, Err: err},
	}
}

// HourFetcher abstracts the upstream observation source: given an hour-aligned
// timestamp and a station id it returns exactly one HourResult.
type HourFetcher interface {
	FetchHour(ctx context.Context, hour time.Time, stationID string) HourResult
}

// SeriesStore is the durable per-station series storage.
type SeriesStore interface {
	// Load returns the stored series for a station, or ErrNoSeries when nothing
	// has been saved for it yet.
	Load(ctx context.Context, stationID string) (Series, error)
	// Save replaces the stored series for a station. Readers never observe a
	// partially written series.
	Save(ctx context.Context, stationID string, series Series) error
}

// Publisher writes the externally consumed documents.
type Publisher interface {
	PublishStation(ctx context.Context, payload Payload) (string, error)
	PublishIndex(ctx context.Context, index Index) (string, error)
}

var (
	// ErrNoSeries is returned when a station has no cached series yet.
	ErrNoSeries = errors.New("no cached series")
)

// TransportError reports a failed fetch of one station-hour.
type TransportError struct {
	StationID string
	Hour      time.Time
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch station %s hour %s: %v", e.StationID, e.Hour.Format(time.RFC3339), e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StationError attributes a failure to the station being processed.
type StationError struct {
	StationID string
	Err       error
}

func (e *StationError) Error() string {
	return fmt.Sprintf("station %s: %v", e.StationID, e.Err)
}

func (e *StationError) Unwrap() error {
	return e.Err
}
