package models

// Metric identifies one charted sensor channel.
type Metric string

const (
	MetricTemperature Metric = "temperature"
	MetricHumidity    Metric = "humidity"
	MetricFlammable   Metric = "flammable_gases"
	MetricTVOC        Metric = "tvoc"
	MetricCO          Metric = "co"
)

// Metrics lists all charted channels in display order.
var Metrics = []Metric{
	MetricTemperature,
	MetricHumidity,
	MetricFlammable,
	MetricTVOC,
	MetricCO,
}

// Point is one chart sample position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MetricSeries is the charting unit: points plus x-axis labels aligned 1:1
// by index. A series is always published whole, never mid-rebuild.
type MetricSeries struct {
	Points []Point  `json:"points"`
	Labels []string `json:"labels"`
}

// Len returns the number of points in the series.
func (s *MetricSeries) Len() int {
	return len(s.Points)
}

// Clone returns an independent deep copy of the series.
func (s *MetricSeries) Clone() *MetricSeries {
	out := &MetricSeries{
		Points: make([]Point, len(s.Points)),
		Labels: make([]string, len(s.Labels)),
	}
	copy(out.Points, s.Points)
	copy(out.Labels, s.Labels)
	return out
}

// CloneSeriesSet deep-copies a per-metric series map.
func CloneSeriesSet(in map[Metric]*MetricSeries) map[Metric]*MetricSeries {
	out := make(map[Metric]*MetricSeries, len(in))
	for m, s := range in {
		out[m] = s.Clone()
	}
	return out
}

// EmptySeriesSet returns a fresh per-metric map of empty series.
func EmptySeriesSet() map[Metric]*MetricSeries {
	out := make(map[Metric]*MetricSeries, len(Metrics))
	for _, m := range Metrics {
		out[m] = &MetricSeries{}
	}
	return out
}
