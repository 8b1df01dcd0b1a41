package services

import (
	"context"
	"fmt"

	"airguard/models"

	"go.uber.org/zap"
)

// Fixed safety thresholds. All comparisons are strict.
const (
	ThresholdTempLowF      = 60.0   // °F
	ThresholdTempHighF     = 80.0   // °F
	ThresholdHumidityHigh  = 60.0   // %
	ThresholdHumidityLow   = 20.0   // %
	ThresholdTVOCHigh      = 500.0  // ppb
	ThresholdCOHigh        = 9.0    // ppm
	ThresholdFlammableHigh = 1000.0 // ppm
	ThresholdBatteryLow    = 20.0   // %
)

// EvaluateSample checks one telemetry sample against every safety threshold.
// Checks are independent; multiple alerts may fire for a single sample. The
// sample's temperature is Celsius and is converted before comparison.
func EvaluateSample(sample *models.TelemetrySample) []*models.AlertEvent {
	var alerts []*models.AlertEvent

	tempF := models.CelsiusToFahrenheit(sample.Temperature)
	if tempF < ThresholdTempLowF {
		alerts = append(alerts, models.NewAlertEvent(
			models.AlertTemperatureLow, models.SeverityDefault,
			"Low temperature",
			fmt.Sprintf("Temperature %.1f°F is below %.0f°F", tempF, ThresholdTempLowF),
			tempF, ThresholdTempLowF))
	}
	if tempF > ThresholdTempHighF {
		alerts = append(alerts, models.NewAlertEvent(
			models.AlertTemperatureHigh, models.SeverityHigh,
			"High temperature",
			fmt.Sprintf("Temperature %.1f°F exceeds %.0f°F", tempF, ThresholdTempHighF),
			tempF, ThresholdTempHighF))
	}

	if sample.Humidity > ThresholdHumidityHigh {
		alerts = append(alerts, models.NewAlertEvent(
			models.AlertHumidityHigh, models.SeverityDefault,
			"High humidity",
			fmt.Sprintf("Humidity %.1f%% exceeds %.0f%%", sample.Humidity, ThresholdHumidityHigh),
			sample.Humidity, ThresholdHumidityHigh))
	}
	if sample.Humidity < ThresholdHumidityLow {
		alerts = append(alerts, models.NewAlertEvent(
			models.AlertHumidityLow, models.SeverityDefault,
			"Low humidity",
			fmt.Sprintf("Humidity %.1f%% is below %.0f%%", sample.Humidity, ThresholdHumidityLow),
			sample.Humidity, ThresholdHumidityLow))
	}

	if sample.TVOC > ThresholdTVOCHigh {
		alerts = append(alerts, models.NewAlertEvent(
			models.AlertTVOCHigh, models.SeverityHigh,
			"Poor air quality",
			fmt.Sprintf("TVOC %.0f ppb exceeds %.0f ppb", sample.TVOC, ThresholdTVOCHigh),
			sample.TVOC, ThresholdTVOCHigh))
	}

	if sample.CO > ThresholdCOHigh {
		alerts = append(alerts, models.NewAlertEvent(
			models.AlertCOHigh, models.SeverityCritical,
			"Carbon monoxide detected",
			fmt.Sprintf("CO %.2f ppm exceeds %.0f ppm", sample.CO, ThresholdCOHigh),
			sample.CO, ThresholdCOHigh))
	}

	if sample.FlammableGases > ThresholdFlammableHigh {
		alerts = append(alerts, models.NewAlertEvent(
			models.AlertFlammableHigh, models.SeverityCritical,
			"Flammable gas detected",
			fmt.Sprintf("Flammable gases %.0f ppm exceed %.0f ppm", sample.FlammableGases, ThresholdFlammableHigh),
			sample.FlammableGases, ThresholdFlammableHigh))
	}

	if sample.BatteryLife < ThresholdBatteryLow {
		alerts = append(alerts, models.NewAlertEvent(
			models.AlertBatteryLow, models.SeverityLow,
			"Sensor battery low",
			fmt.Sprintf("Battery %.0f%% is below %.0f%%", sample.BatteryLife, ThresholdBatteryLow),
			sample.BatteryLife, ThresholdBatteryLow))
	}

	return alerts
}

// AlertSink delivers a batch of alerts raised by one evaluation.
type AlertSink interface {
	Deliver(ctx context.Context, alerts []*models.AlertEvent) error
}

// ThresholdWorker is the body of the background monitoring check: one run
// fetches the latest chart bundle, evaluates the most recent sample, and
// raises categorized alerts. Transport and decode errors report a retry
// outcome so the scheduler's back-off governs the re-attempt.
type ThresholdWorker struct {
	client   ChartFetcher
	notifier AlertSink
	logger   *zap.Logger
}

// NewThresholdWorker builds the worker. notifier may be nil, in which case
// alerts are only logged.
func NewThresholdWorker(client ChartFetcher, notifier AlertSink, logger *zap.Logger) *ThresholdWorker {
	return &ThresholdWorker{
		client:   client,
		notifier: notifier,
		logger:   logger,
	}
}

// Run executes one tick.
func (w *ThresholdWorker) Run(ctx context.Context) Outcome {
	bundle, err := w.client.FetchChartBundle(ctx)
	if err != nil {
		w.logger.Error("Monitoring check failed to fetch chart bundle", zap.Error(err))
		return OutcomeRetry
	}

	latest, ok := bundle.Latest()
	if !ok {
		// Nothing to evaluate yet; the tick still completes normally.
		w.logger.Info("Monitoring check found no historical samples")
		return OutcomeSuccess
	}

	alerts := EvaluateSample(&latest)
	if len(alerts) == 0 {
		w.logger.Debug("Monitoring check passed, no thresholds crossed")
		return OutcomeSuccess
	}

	w.logger.Warn("Thresholds crossed",
		zap.Int("alert_count", len(alerts)),
		zap.Float64("temperature_f", models.CelsiusToFahrenheit(latest.Temperature)),
		zap.Float64("humidity", latest.Humidity),
		zap.Float64("tvoc", latest.TVOC),
		zap.Float64("co", latest.CO),
		zap.Float64("flammable", latest.FlammableGases),
		zap.Float64("battery", latest.BatteryLife))

	if w.notifier != nil {
		if err := w.notifier.Deliver(ctx, alerts); err != nil {
			// Alert delivery failure does not fail the tick; the evaluation
			// itself succeeded and the next tick will re-raise if still firing.
			w.logger.Error("Failed to deliver alerts", zap.Error(err))
		}
	}

	return OutcomeSuccess
}
