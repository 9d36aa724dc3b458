package weather

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/weather-station-cache/internal/common"
)

func TestCollectToleratesGaps(t *testing.T) {
	end := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	hours := common.LastHours(end, 5)

	f := &fakeFetcher{results: map[int64]HourResult{}}
	for i, h := range hours {
		if i == 1 || i == 3 {
			continue // NotFound
		}
		f.results[h.Unix()] = FoundHour(Observation{Timestamp: h, Temperature: ptr(float64(i))})
	}

	got, err := NewCollector(f, 2, nil).Collect(context.Background(), hours, "C0A520")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 observations, got %d", len(got))
	}
	if merged := Merge(nil, got); len(merged) != 3 {
		t.Fatalf("expected merged series of 3, got %d", len(merged))
	}
}

func TestCollectFailsOnTransportError(t *testing.T) {
	end := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	hours := common.LastHours(end, 24)

	f := &fakeFetcher{results: map[int64]HourResult{}, delay: time.Millisecond}
	for _, h := range hours {
		f.results[h.Unix()] = FoundHour(Observation{Timestamp: h})
	}
	f.results[hours[7].Unix()] = FailedHour("C0A520", hours[7], errors.New("connection reset"))

	got, err := NewCollector(f, 6, nil).Collect(context.Background(), hours, "C0A520")
	if err == nil {
		t.Fatal("expected error")
	}
	if got != nil {
		t.Fatalf("expected no partial result, got %d observations", len(got))
	}
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
	if te.StationID != "C0A520" || !te.Hour.Equal(hours[7]) {
		t.Fatalf("unexpected error attribution: %+v", te)
	}
}

func TestCollectDeduplicatesHours(t *testing.T) {
	h := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f := &fakeFetcher{results: map[int64]HourResult{h.Unix(): FoundHour(Observation{Timestamp: h})}}

	got, err := NewCollector(f, 0, nil).Collect(context.Background(), []time.Time{h, h, h.In(time.FixedZone("CST", 8*3600))}, "X")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || f.calls != 1 {
		t.Fatalf("expected one fetch and one observation, got calls=%d observations=%d", f.calls, len(got))
	}
}

func TestCollectHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hours := common.LastHours(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), 10)
	f := &fakeFetcher{results: map[int64]HourResult{}}

	if _, err := NewCollector(f, 2, nil).Collect(ctx, hours, "X"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type statusFetcher FetchStatus

func (s statusFetcher) FetchHour(context.Context, time.Time, string) HourResult {
	return HourResult{Status: FetchStatus(s)}
}

func TestCollectRejectsUnknownStatus(t *testing.T) {
	hours := []time.Time{time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}

	_, err := NewCollector(statusFetcher(TransportFailed), 1, nil).Collect(context.Background(), hours, "X")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError for a failure without cause, got %v", err)
	}
}

// peakFetcher records the highest number of concurrent FetchHour calls.
type peakFetcher struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (f *peakFetcher) FetchHour(_ context.Context, hour time.Time, _ string) HourResult {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(f.delay)
	return FoundHour(Observation{Timestamp: hour})
}

func TestCollectBoundsConcurrency(t *testing.T) {
	hours := common.LastHours(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), 48)

	cases := []struct {
		workers int
		want    int32
	}{
		{workers: 1, want: 1},
		{workers: 4, want: 4},
		{workers: 0, want: DefaultWorkers},
	}
	for _, tc := range cases {
		f := &peakFetcher{delay: 20 * time.Millisecond}
		got, err := NewCollector(f, tc.workers, nil).Collect(context.Background(), hours, "X")
		if err != nil {
			t.Fatalf("workers=%d: unexpected error: %v", tc.workers, err)
		}
		if len(got) != len(hours) {
			t.Fatalf("workers=%d: expected %d observations, got %d", tc.workers, len(hours), len(got))
		}
		if peak := f.peak.Load(); peak != tc.want {
			t.Fatalf("workers=%d: expected peak concurrency %d, got %d", tc.workers, tc.want, peak)
		}
	}
}
