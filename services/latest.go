package services

import (
	"context"
	"sync"
	"time"

	"airguard/models"

	"go.uber.org/zap"
)

// ChartFetcher is the slice of the remote client the latest aggregator needs.
type ChartFetcher interface {
	FetchChartBundle(ctx context.Context) (*models.ChartBundle, error)
}

// Half-hour sampling cadence folded into chart x-units: sample i plots at x = i/2.
const historicalSamplesPerHour = 2

// hourLabelLayout formats the per-sample axis labels covering the last 24
// hours and ending now.
const hourLabelLayout = "15:04"

// LatestAggregator owns the "current" time series for every metric. Each
// refresh replaces all series atomically from a fresh chart bundle; a failed
// refresh keeps the previous (stale-but-valid) series in place.
type LatestAggregator struct {
	client ChartFetcher
	logger *zap.Logger
	now    func() time.Time

	mu      chan struct{} // single-flight guard: overlapping Refresh calls coalesce
	stateMu sync.RWMutex
	loading bool
	series  map[models.Metric]*models.MetricSeries
	latest  *models.TelemetrySample
	battery float64
	hasData bool
}

// NewLatestAggregator builds an aggregator with empty series.
func NewLatestAggregator(client ChartFetcher, logger *zap.Logger) *LatestAggregator {
	guard := make(chan struct{}, 1)
	guard <- struct{}{}
	return &LatestAggregator{
		client: client,
		logger: logger,
		now:    time.Now,
		mu:     guard,
		series: models.EmptySeriesSet(),
	}
}

// Refresh fetches a chart bundle and rebuilds all series. Overlapping calls
// coalesce: if a refresh is already in flight, the call returns immediately.
// Errors are logged and leave prior series untouched.
func (a *LatestAggregator) Refresh(ctx context.Context) {
	select {
	case <-a.mu:
	default:
		a.logger.Debug("Refresh already in flight, coalescing")
		return
	}
	defer func() { a.mu <- struct{}{} }()

	a.setLoading(true)
	defer a.setLoading(false)

	bundle, err := a.client.FetchChartBundle(ctx)
	if err != nil {
		a.logger.Error("Chart refresh failed, keeping stale series", zap.Error(err))
		return
	}

	series, latest, battery := a.build(bundle)

	a.stateMu.Lock()
	a.series = series
	a.latest = latest
	if latest != nil {
		a.battery = battery
		a.hasData = true
	}
	a.stateMu.Unlock()
}

// build constructs the full replacement state away from the published state,
// so observers never see a partially rebuilt series.
func (a *LatestAggregator) build(bundle *models.ChartBundle) (map[models.Metric]*models.MetricSeries, *models.TelemetrySample, float64) {
	samples := bundle.HistoricalSamples
	n := len(samples)

	series := models.EmptySeriesSet()
	labels := a.hourLabels(n)

	for i, sample := range samples {
		x := float64(i) / historicalSamplesPerHour
		series[models.MetricTemperature].Points = append(series[models.MetricTemperature].Points,
			models.Point{X: x, Y: models.CelsiusToFahrenheit(sample.Temperature)})
		series[models.MetricHumidity].Points = append(series[models.MetricHumidity].Points,
			models.Point{X: x, Y: sample.Humidity})
		series[models.MetricFlammable].Points = append(series[models.MetricFlammable].Points,
			models.Point{X: x, Y: sample.FlammableGases})
		series[models.MetricTVOC].Points = append(series[models.MetricTVOC].Points,
			models.Point{X: x, Y: sample.TVOC})
		series[models.MetricCO].Points = append(series[models.MetricCO].Points,
			models.Point{X: x, Y: sample.CO})
	}
	for _, m := range models.Metrics {
		series[m].Labels = append(series[m].Labels, labels...)
	}

	sample, ok := bundle.Latest()
	if !ok {
		return series, nil, 0
	}
	display := sample
	display.Temperature = models.CelsiusToFahrenheit(sample.Temperature)
	return series, &display, sample.BatteryLife
}

// hourLabels derives n axis labels as a walk through the last 24 hours
// ending now. This is a display approximation, not a per-sample timestamp
// mapping: the bundle's own event times are ignored here.
func (a *LatestAggregator) hourLabels(n int) []string {
	now := a.now()
	labels := make([]string, n)
	step := time.Hour / historicalSamplesPerHour
	for i := 0; i < n; i++ {
		labels[i] = now.Add(-time.Duration(n-1-i) * step).Format(hourLabelLayout)
	}
	return labels
}

// Run refreshes immediately and then on a fixed cadence until ctx is
// cancelled. The loop lives for the owning scope's lifetime; there is no
// separate stop operation.
func (a *LatestAggregator) Run(ctx context.Context, interval time.Duration) {
	a.logger.Info("Latest-series auto-refresh started", zap.Duration("interval", interval))
	defer a.logger.Info("Latest-series auto-refresh stopped")

	for {
		a.Refresh(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

func (a *LatestAggregator) setLoading(v bool) {
	a.stateMu.Lock()
	a.loading = v
	a.stateMu.Unlock()
}

// IsLoading reports whether a refresh is in flight.
func (a *LatestAggregator) IsLoading() bool {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.loading
}

// HasData reports whether any refresh has ever completed successfully.
func (a *LatestAggregator) HasData() bool {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.hasData
}

// Series returns an independent copy of one metric's current series.
func (a *LatestAggregator) Series(metric models.Metric) *models.MetricSeries {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	s, ok := a.series[metric]
	if !ok {
		return &models.MetricSeries{}
	}
	return s.Clone()
}

// Latest returns the most recent single-sample snapshot (temperature already
// in Fahrenheit), or nil before the first successful refresh.
func (a *LatestAggregator) Latest() *models.TelemetrySample {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	if a.latest == nil {
		return nil
	}
	copied := *a.latest
	return &copied
}

// Battery returns the most recent battery reading.
func (a *LatestAggregator) Battery() float64 {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.battery
}
