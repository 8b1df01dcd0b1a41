package models

import (
	"encoding/json"
	"fmt"
)

// TelemetrySample is one instantaneous sensor reading as delivered by the
// aggregation endpoint and the message bus. Field names are case-sensitive
// on the wire.
type TelemetrySample struct {
	Temperature    float64 `json:"Temperature"`    // °C at this layer
	Humidity       float64 `json:"Humidity"`       // %
	FlammableGases float64 `json:"FlammableGases"` // ppm
	TVOC           float64 `json:"TVOC"`           // ppb
	CO             float64 `json:"CO"`             // ppm
	BatteryLife    float64 `json:"BatteryLife"`    // %, 0-100
	EventTimeUTC   string  `json:"EventProcessedUtcTime"`
}

// CelsiusToFahrenheit converts a Celsius reading for display and threshold
// evaluation, which both operate in Fahrenheit.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// TelemetryBody carries the five sensor fields of a bus envelope. All five
// are required; an envelope missing any of them is rejected whole.
type TelemetryBody struct {
	Temperature    float64
	Humidity       float64
	FlammableGases float64
	TVOC           float64
	CO             float64
}

// UnmarshalJSON rejects bodies with missing or non-numeric required fields
// instead of defaulting them to zero.
func (b *TelemetryBody) UnmarshalJSON(data []byte) error {
	var raw map[string]json.Number
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	fields := []struct {
		key string
		dst *float64
	}{
		{"Temperature", &b.Temperature},
		{"Humidity", &b.Humidity},
		{"FlammableGases", &b.FlammableGases},
		{"TVOC", &b.TVOC},
		{"CO", &b.CO},
	}
	for _, f := range fields {
		n, ok := raw[f.key]
		if !ok {
			return fmt.Errorf("telemetry body missing field %q", f.key)
		}
		v, err := n.Float64()
		if err != nil {
			return fmt.Errorf("telemetry body field %q is not numeric: %w", f.key, err)
		}
		*f.dst = v
	}
	return nil
}

// TelemetryEnvelope is the JSON wrapper carrying one sample from the bus.
type TelemetryEnvelope struct {
	Body         TelemetryBody `json:"body"`
	EnqueuedTime string        `json:"enqueuedTime"`
}

// ChartBundle is one "current data" fetch: historical samples oldest→newest
// (nominally 48) plus the server's own predictive tail (nominally 96).
// It fully replaces prior state on every successful fetch.
type ChartBundle struct {
	HistoricalSamples []TelemetrySample `json:"historicalSamples"`
	PredictiveSamples []TelemetrySample `json:"predictiveSamples"`
}

// Latest returns the most recent historical sample, or false when the
// bundle carries no history.
func (c *ChartBundle) Latest() (TelemetrySample, bool) {
	if len(c.HistoricalSamples) == 0 {
		return TelemetrySample{}, false
	}
	return c.HistoricalSamples[len(c.HistoricalSamples)-1], true
}

// ForecastBundle is one "prediction" fetch. Per-metric arrays are aligned by
// index to a synthetic timeline; an absent array means no data for that
// metric in this response.
type ForecastBundle struct {
	DaysRequested     float64   `json:"daysRequested"`
	ForecastStepCount int       `json:"forecastStepCount"`
	StepMinutes       int       `json:"stepMinutes"`
	Temperature       []float64 `json:"temperature"`
	Humidity          []float64 `json:"humidity"`
	Flammable         []float64 `json:"flammable"`
	TVOC              []float64 `json:"tvoc"`
	CO                []float64 `json:"co"`
}

// DefaultForecastStepMinutes is the sampling interval assumed when the
// response omits stepMinutes.
const DefaultForecastStepMinutes = 15

// EffectiveStepMinutes returns the bundle's step size, defaulting when absent.
func (f *ForecastBundle) EffectiveStepMinutes() int {
	if f.StepMinutes <= 0 {
		return DefaultForecastStepMinutes
	}
	return f.StepMinutes
}

// MetricValues returns the forecast array for one metric.
func (f *ForecastBundle) MetricValues(m Metric) []float64 {
	switch m {
	case MetricTemperature:
		return f.Temperature
	case MetricHumidity:
		return f.Humidity
	case MetricFlammable:
		return f.Flammable
	case MetricTVOC:
		return f.TVOC
	case MetricCO:
		return f.CO
	default:
		return nil
	}
}
