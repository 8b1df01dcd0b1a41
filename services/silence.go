package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"airguard/models"

	"go.uber.org/zap"
)

// SilenceWatchdog raises a general alert when the message bus goes quiet for
// longer than the configured timeout, and a recovery notice when telemetry
// resumes. It observes envelopes via Mark, typically wired as a bus sink.
type SilenceWatchdog struct {
	notifier AlertSink
	logger   *zap.Logger
	timeout  time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastSeen time.Time
	silent   bool
	seenAny  bool
}

// NewSilenceWatchdog builds a watchdog; Start arms it.
func NewSilenceWatchdog(notifier AlertSink, timeout time.Duration, logger *zap.Logger) *SilenceWatchdog {
	return &SilenceWatchdog{
		notifier: notifier,
		logger:   logger,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Mark records that a telemetry envelope arrived. If the bus was in the
// silent state, a recovery alert is raised.
func (w *SilenceWatchdog) Mark() {
	w.mu.Lock()
	wasSilent := w.silent
	var down time.Duration
	if wasSilent {
		down = w.now().Sub(w.lastSeen)
	}
	w.lastSeen = w.now()
	w.silent = false
	w.seenAny = true
	w.mu.Unlock()

	if wasSilent {
		w.logger.Info("Telemetry resumed", zap.Duration("down_duration", down))
		w.raise(models.NewAlertEvent(
			models.AlertGeneral, models.SeverityDefault,
			"Telemetry resumed",
			fmt.Sprintf("Sensor data is flowing again after %s of silence", down.Round(time.Second)),
			down.Seconds(), w.timeout.Seconds()))
	}
}

// Start checks for silence on a fixed cadence until ctx is cancelled.
func (w *SilenceWatchdog) Start(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	w.logger.Info("Bus-silence watchdog started", zap.Duration("timeout", w.timeout))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Bus-silence watchdog stopped")
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *SilenceWatchdog) check() {
	w.mu.Lock()
	if !w.seenAny || w.silent {
		w.mu.Unlock()
		return
	}
	quiet := w.now().Sub(w.lastSeen)
	if quiet <= w.timeout {
		w.mu.Unlock()
		return
	}
	w.silent = true
	w.mu.Unlock()

	w.logger.Warn("No telemetry received within timeout",
		zap.Duration("quiet_for", quiet),
		zap.Duration("timeout", w.timeout))

	w.raise(models.NewAlertEvent(
		models.AlertGeneral, models.SeverityHigh,
		"Telemetry stopped",
		fmt.Sprintf("No sensor data for %s; the sensor or broker may be down", quiet.Round(time.Second)),
		quiet.Seconds(), w.timeout.Seconds()))
}

func (w *SilenceWatchdog) raise(alert *models.AlertEvent) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.Deliver(context.Background(), []*models.AlertEvent{alert}); err != nil {
		w.logger.Error("Failed to deliver watchdog alert", zap.Error(err))
	}
}
