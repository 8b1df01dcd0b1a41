package services

import (
	"testing"
	"time"

	"airguard/models"

	"go.uber.org/zap"
)

func newTestWatchdog(sink AlertSink) (*SilenceWatchdog, *time.Time) {
	w := NewSilenceWatchdog(sink, 2*time.Minute, zap.NewNop())
	clock := time.Date(2025, 9, 9, 13, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }
	return w, &clock
}

func TestWatchdogQuietBeforeFirstEnvelope(t *testing.T) {
	sink := &alertSinkStub{}
	w, clock := newTestWatchdog(sink)

	*clock = clock.Add(time.Hour)
	w.check()

	if len(sink.batches) != 0 {
		t.Fatal("no alert expected before any telemetry was ever seen")
	}
}

func TestWatchdogAlertsPastTimeout(t *testing.T) {
	sink := &alertSinkStub{}
	w, clock := newTestWatchdog(sink)

	w.Mark()

	*clock = clock.Add(90 * time.Second)
	w.check()
	if len(sink.batches) != 0 {
		t.Fatal("no alert expected inside the timeout")
	}

	*clock = clock.Add(time.Minute)
	w.check()
	if len(sink.batches) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(sink.batches))
	}
	alert := sink.batches[0][0]
	if alert.Category != models.AlertGeneral {
		t.Errorf("category = %v, want general", alert.Category)
	}
	if alert.Severity != models.SeverityHigh {
		t.Errorf("severity = %v, want high", alert.Severity)
	}
}

func TestWatchdogAlertsOnceWhileSilent(t *testing.T) {
	sink := &alertSinkStub{}
	w, clock := newTestWatchdog(sink)

	w.Mark()
	*clock = clock.Add(5 * time.Minute)
	w.check()
	*clock = clock.Add(5 * time.Minute)
	w.check()

	if len(sink.batches) != 1 {
		t.Fatalf("deliveries = %d, want a single silence alert", len(sink.batches))
	}
}

func TestWatchdogRaisesRecoveryOnResume(t *testing.T) {
	sink := &alertSinkStub{}
	w, clock := newTestWatchdog(sink)

	w.Mark()
	*clock = clock.Add(5 * time.Minute)
	w.check()

	*clock = clock.Add(time.Minute)
	w.Mark()

	if len(sink.batches) != 2 {
		t.Fatalf("deliveries = %d, want silence alert then recovery", len(sink.batches))
	}
	recovery := sink.batches[1][0]
	if recovery.Severity != models.SeverityDefault {
		t.Errorf("recovery severity = %v, want default", recovery.Severity)
	}

	// Fully recovered: a later quiet spell alerts again.
	*clock = clock.Add(5 * time.Minute)
	w.check()
	if len(sink.batches) != 3 {
		t.Fatalf("deliveries = %d, want a fresh silence alert", len(sink.batches))
	}
}
