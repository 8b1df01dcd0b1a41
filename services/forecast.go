package services

import (
	"context"
	"sync"
	"time"

	"airguard/models"

	"go.uber.org/zap"
)

// ForecastFetcher is the slice of the remote client the forecast aggregator
// needs.
type ForecastFetcher interface {
	FetchForecast(ctx context.Context, days float64) (*models.ForecastBundle, error)
}

// Axis labels keep every 4th timeline entry and blank the rest to avoid
// crowding; blanks stay in place so index alignment with points holds.
const axisLabelStride = 4

// forecastLabelLayout formats forecast timeline labels.
const forecastLabelLayout = "15:04"

// ForecastAggregator owns the "predicted" series for every metric plus a
// single-level "previous prediction" snapshot for comparison. Each fetch
// demotes the current series to previous before building the new one.
type ForecastAggregator struct {
	client ForecastFetcher
	logger *zap.Logger
	now    func() time.Time

	guard chan struct{} // single-flight: overlapping FetchAndBuild calls coalesce

	mu          sync.RWMutex
	current     map[models.Metric]*models.MetricSeries
	previous    map[models.Metric]*models.MetricSeries
	fullLabels  []string
	hasPrevious bool
	loading     bool
	errMsg      string
}

// NewForecastAggregator builds an aggregator with empty series.
func NewForecastAggregator(client ForecastFetcher, logger *zap.Logger) *ForecastAggregator {
	guard := make(chan struct{}, 1)
	guard <- struct{}{}
	return &ForecastAggregator{
		client:   client,
		logger:   logger,
		now:      time.Now,
		guard:    guard,
		current:  models.EmptySeriesSet(),
		previous: models.EmptySeriesSet(),
	}
}

// FetchAndBuild fetches a forecast for the requested day count and rebuilds
// the current series. If a current forecast already holds data it is
// deep-copied into the previous slot first, overwriting any earlier
// snapshot. On failure the error message is recorded for display and the
// pre-fetch series stay in place.
func (f *ForecastAggregator) FetchAndBuild(ctx context.Context, days float64) {
	select {
	case <-f.guard:
	default:
		f.logger.Debug("Forecast fetch already in flight, coalescing")
		return
	}
	defer func() { f.guard <- struct{}{} }()

	f.mu.Lock()
	f.loading = true
	if f.currentHasDataLocked() {
		f.previous = models.CloneSeriesSet(f.current)
		f.hasPrevious = true
	}
	f.mu.Unlock()

	bundle, err := f.client.FetchForecast(ctx, days)
	if err != nil {
		f.logger.Error("Forecast fetch failed", zap.Error(err), zap.Float64("days", days))
		f.mu.Lock()
		f.loading = false
		f.errMsg = "forecast unavailable: " + err.Error()
		f.mu.Unlock()
		return
	}

	series, fullLabels := f.build(bundle)

	f.mu.Lock()
	f.current = series
	f.fullLabels = fullLabels
	f.loading = false
	f.errMsg = ""
	f.mu.Unlock()
}

// build constructs replacement series from a decoded bundle. The timeline
// starts at now rounded down to the nearest step boundary and walks forward
// one step per index.
func (f *ForecastAggregator) build(bundle *models.ForecastBundle) (map[models.Metric]*models.MetricSeries, []string) {
	stepMinutes := bundle.EffectiveStepMinutes()
	start := roundDownToStep(f.now(), stepMinutes)

	steps := bundle.ForecastStepCount
	fullLabels := make([]string, steps)
	axisLabels := make([]string, steps)
	for i := 0; i < steps; i++ {
		at := start.Add(time.Duration(i*stepMinutes) * time.Minute)
		fullLabels[i] = at.Format(forecastLabelLayout)
		if i%axisLabelStride == 0 {
			axisLabels[i] = fullLabels[i]
		}
	}

	series := models.EmptySeriesSet()
	for _, m := range models.Metrics {
		values := bundle.MetricValues(m)
		if values == nil {
			continue
		}
		s := series[m]
		for i, v := range values {
			y := v
			if m == models.MetricTemperature {
				y = models.CelsiusToFahrenheit(v)
			}
			s.Points = append(s.Points, models.Point{X: float64(i), Y: y})
			if i < len(axisLabels) {
				s.Labels = append(s.Labels, axisLabels[i])
			} else {
				s.Labels = append(s.Labels, "")
			}
		}
	}
	return series, fullLabels
}

// roundDownToStep zeroes seconds and rounds minutes down to the nearest
// stepMinutes boundary. The boundary deliberately tracks the bundle's own
// step size rather than a fixed 15 minutes, so a response with a non-default
// cadence still gets a timeline aligned to its points; with the default step
// the two readings are identical.
func roundDownToStep(t time.Time, stepMinutes int) time.Time {
	minute := t.Minute() - t.Minute()%stepMinutes
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), minute, 0, 0, t.Location())
}

func (f *ForecastAggregator) currentHasDataLocked() bool {
	for _, s := range f.current {
		if s.Len() > 0 {
			return true
		}
	}
	return false
}

// ClearComparison wipes the previous-series snapshot. Current series are
// untouched.
func (f *ForecastAggregator) ClearComparison() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.previous = models.EmptySeriesSet()
	f.hasPrevious = false
}

// IsLoading reports whether a fetch is in flight.
func (f *ForecastAggregator) IsLoading() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.loading
}

// Err returns the user-visible error message from the last failed fetch, or
// "" after a success.
func (f *ForecastAggregator) Err() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.errMsg
}

// HasPreviousData reports whether a previous-prediction snapshot is held.
func (f *ForecastAggregator) HasPreviousData() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.hasPrevious
}

// CurrentSeries returns an independent copy of one metric's current forecast.
func (f *ForecastAggregator) CurrentSeries(metric models.Metric) *models.MetricSeries {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, ok := f.current[metric]
	if !ok {
		return &models.MetricSeries{}
	}
	return s.Clone()
}

// PreviousSeries returns an independent copy of one metric's previous
// forecast snapshot.
func (f *ForecastAggregator) PreviousSeries(metric models.Metric) *models.MetricSeries {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, ok := f.previous[metric]
	if !ok {
		return &models.MetricSeries{}
	}
	return s.Clone()
}

// FullLabels returns the full-resolution timeline labels kept for tooltips.
func (f *ForecastAggregator) FullLabels() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, len(f.fullLabels))
	copy(out, f.fullLabels)
	return out
}
