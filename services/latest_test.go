package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"airguard/models"

	"go.uber.org/zap"
)

// chartFetcherStub satisfies ChartFetcher for aggregator and worker tests.
type chartFetcherStub struct {
	bundle *models.ChartBundle
	err    error
	calls  int
}

func (s *chartFetcherStub) FetchChartBundle(ctx context.Context) (*models.ChartBundle, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.bundle, nil
}

func sampleWith(tempC, humidity, flammable, tvoc, co, battery float64) models.TelemetrySample {
	return models.TelemetrySample{
		Temperature:    tempC,
		Humidity:       humidity,
		FlammableGases: flammable,
		TVOC:           tvoc,
		CO:             co,
		BatteryLife:    battery,
	}
}

func TestRefreshRebuildsAllSeriesAtomically(t *testing.T) {
	samples := make([]models.TelemetrySample, 48)
	for i := range samples {
		samples[i] = sampleWith(20, 50, 100, 200, 1, 80)
	}
	stub := &chartFetcherStub{bundle: &models.ChartBundle{HistoricalSamples: samples}}

	agg := NewLatestAggregator(stub, zap.NewNop())
	agg.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	agg.Refresh(context.Background())

	for _, m := range models.Metrics {
		s := agg.Series(m)
		if s.Len() != 48 {
			t.Fatalf("metric %s: points = %d, want 48", m, s.Len())
		}
		if len(s.Labels) != s.Len() {
			t.Fatalf("metric %s: labels = %d, points = %d, want equal", m, len(s.Labels), s.Len())
		}
		// x positions reflect the half-hour cadence: sample i plots at i/2.
		for i, p := range s.Points {
			if p.X != float64(i)/2 {
				t.Fatalf("metric %s point %d: x = %v, want %v", m, i, p.X, float64(i)/2)
			}
		}
	}
	if !agg.HasData() {
		t.Fatal("expected HasData after successful refresh")
	}
}

func TestRefreshConvertsTemperatureToFahrenheit(t *testing.T) {
	stub := &chartFetcherStub{bundle: &models.ChartBundle{
		HistoricalSamples: []models.TelemetrySample{
			sampleWith(0, 50, 0, 0, 0, 90),
			sampleWith(100, 50, 0, 0, 0, 90),
		},
	}}
	agg := NewLatestAggregator(stub, zap.NewNop())
	agg.Refresh(context.Background())

	tempSeries := agg.Series(models.MetricTemperature)
	if got := tempSeries.Points[0].Y; got != 32 {
		t.Errorf("0°C converted to %v°F, want 32", got)
	}
	if got := tempSeries.Points[1].Y; got != 212 {
		t.Errorf("100°C converted to %v°F, want 212", got)
	}

	// Humidity passes through unconverted.
	humSeries := agg.Series(models.MetricHumidity)
	if got := humSeries.Points[0].Y; got != 50 {
		t.Errorf("humidity = %v, want 50", got)
	}

	latest := agg.Latest()
	if latest == nil {
		t.Fatal("expected latest snapshot")
	}
	if latest.Temperature != 212 {
		t.Errorf("latest snapshot temperature = %v°F, want 212", latest.Temperature)
	}
	if agg.Battery() != 90 {
		t.Errorf("battery = %v, want 90", agg.Battery())
	}
}

func TestRefreshFailureKeepsStaleSeries(t *testing.T) {
	stub := &chartFetcherStub{bundle: &models.ChartBundle{
		HistoricalSamples: []models.TelemetrySample{sampleWith(20, 50, 100, 200, 1, 80)},
	}}
	agg := NewLatestAggregator(stub, zap.NewNop())
	agg.Refresh(context.Background())

	if agg.Series(models.MetricCO).Len() != 1 {
		t.Fatal("expected one point after first refresh")
	}

	stub.err = errors.New("connection refused")
	agg.Refresh(context.Background())

	if agg.Series(models.MetricCO).Len() != 1 {
		t.Fatal("failed refresh should keep the stale series")
	}
	if agg.IsLoading() {
		t.Fatal("loading flag should be cleared after a failed refresh")
	}
	if !agg.HasData() {
		t.Fatal("HasData should survive a failed refresh")
	}
}

func TestRefreshEmptyBundleKeepsLatestNil(t *testing.T) {
	stub := &chartFetcherStub{bundle: &models.ChartBundle{}}
	agg := NewLatestAggregator(stub, zap.NewNop())
	agg.Refresh(context.Background())

	if agg.Latest() != nil {
		t.Fatal("expected nil latest for empty bundle")
	}
	if agg.HasData() {
		t.Fatal("empty bundle should not mark data present")
	}
}

func TestSeriesReturnsIndependentCopy(t *testing.T) {
	stub := &chartFetcherStub{bundle: &models.ChartBundle{
		HistoricalSamples: []models.TelemetrySample{sampleWith(20, 50, 100, 200, 1, 80)},
	}}
	agg := NewLatestAggregator(stub, zap.NewNop())
	agg.Refresh(context.Background())

	s := agg.Series(models.MetricHumidity)
	s.Points[0].Y = -1

	if agg.Series(models.MetricHumidity).Points[0].Y == -1 {
		t.Fatal("mutating a returned series must not affect internal state")
	}
}
