package services

import (
	"context"
	"net"
	"sync"
	"time"

	"airguard/storage"

	"go.uber.org/zap"
)

// Outcome is the result a unit of background work reports to the scheduler.
type Outcome int

const (
	// OutcomeSuccess completes the tick; the scheduler chains the next one.
	OutcomeSuccess Outcome = iota
	// OutcomeRetry re-runs the same tick after linear back-off.
	OutcomeRetry
)

// Work is one schedulable unit of background work.
type Work func(ctx context.Context) Outcome

// JobState mirrors the lifecycle of the uniquely named scheduled job.
type JobState int

const (
	JobIdle JobState = iota
	JobEnqueued
	JobRunning
)

const (
	// monitorJobName is the unique work name; scheduling it again replaces
	// any existing instance rather than stacking a second one.
	monitorJobName = "threshold-check"

	// retryBackoffBase grows linearly with the attempt count.
	retryBackoffBase = 10 * time.Second

	maxRetryAttempts = 5

	// How often the network precondition is re-probed while unsatisfied.
	connectivityProbeInterval = 5 * time.Second
)

// MonitorScheduler runs the threshold check as a self-chaining one-shot job.
// A platform periodic timer would bottom out at a coarse minimum period, so
// each completed tick arms the next one explicitly; that allows the
// sub-minute cadences this system is tested with. The desired interval is
// persisted and re-read immediately before each next tick is armed, so a
// Start with a new interval always supersedes an in-flight chain.
type MonitorScheduler struct {
	settings *storage.SettingsStore
	logger   *zap.Logger
	work     Work

	// online reports whether the network precondition is satisfied.
	online func() bool

	// unit scales persisted interval seconds into wall time; tests shrink it.
	unit time.Duration
	// retryBackoff is the linear back-off base per failed attempt.
	retryBackoff time.Duration
	// probeEvery is how often the network precondition is re-checked.
	probeEvery time.Duration

	mu       sync.Mutex
	state    JobState
	timer    *time.Timer
	gen      int // incremented on every Start/Stop; stale chains see it and die
	baseCtx  context.Context
	cancelFn context.CancelFunc
}

// NewMonitorScheduler builds a scheduler around the persisted settings store.
func NewMonitorScheduler(settings *storage.SettingsStore, work Work, logger *zap.Logger) *MonitorScheduler {
	return &MonitorScheduler{
		settings:     settings,
		logger:       logger,
		work:         work,
		online:       probeConnectivity,
		unit:         time.Second,
		retryBackoff: retryBackoffBase,
		probeEvery:   connectivityProbeInterval,
	}
}

// probeConnectivity is a cheap network-reachability check.
func probeConnectivity() bool {
	conn, err := net.DialTimeout("tcp", "1.1.1.1:443", 3*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Start persists the desired interval and (re)schedules the unique job with
// an initial delay of one interval. Any previously scheduled instance is
// replaced; there is never more than one chain.
func (s *MonitorScheduler) Start(intervalSeconds int64) error {
	if err := s.settings.PutInt(storage.KeyCheckIntervalSeconds, intervalSeconds); err != nil {
		return err
	}
	if err := s.settings.PutBool(storage.KeyMonitoringEnabled, true); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.replaceLocked()

	ctx, cancel := context.WithCancel(context.Background())
	s.baseCtx = ctx
	s.cancelFn = cancel
	gen := s.gen

	delay := time.Duration(intervalSeconds) * s.unit
	s.armLocked(gen, delay, 0)

	s.logger.Info("Monitoring scheduled",
		zap.String("job", monitorJobName),
		zap.Int64("interval_seconds", intervalSeconds))
	return nil
}

// Stop cancels the scheduled job. Idempotent; an in-flight tick is not
// interrupted, but it will not chain a successor.
func (s *MonitorScheduler) Stop() {
	if err := s.settings.PutBool(storage.KeyMonitoringEnabled, false); err != nil {
		s.logger.Error("Failed to persist monitoring off state", zap.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == JobIdle && s.cancelFn == nil {
		s.logger.Info("Monitoring already stopped")
		return
	}
	s.replaceLocked()
	s.state = JobIdle
	s.logger.Info("Monitoring stopped", zap.String("job", monitorJobName))
}

// replaceLocked retires the current chain: stops the pending timer, cancels
// the chain context, and bumps the generation so any in-flight run skips its
// reschedule.
func (s *MonitorScheduler) replaceLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancelFn != nil {
		s.cancelFn()
		s.cancelFn = nil
	}
}

// armLocked schedules one tick of the chain after delay.
func (s *MonitorScheduler) armLocked(gen int, delay time.Duration, attempt int) {
	s.state = JobEnqueued
	s.timer = time.AfterFunc(delay, func() {
		s.runTick(gen, attempt)
	})
}

// runTick executes one tick: wait out the network precondition, run the
// work, then either chain the next tick (success) or re-arm the same tick
// with linear back-off (retry).
func (s *MonitorScheduler) runTick(gen int, attempt int) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	ctx := s.baseCtx
	s.state = JobRunning
	s.mu.Unlock()

	if !s.waitForNetwork(ctx) {
		return
	}

	// The work body gets its own context: a Stop takes effect before the
	// next run, it never interrupts a tick already in flight.
	outcome := s.work(context.Background())

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		// Superseded while running; drop the chain.
		return
	}

	switch outcome {
	case OutcomeRetry:
		next := attempt + 1
		if next > maxRetryAttempts {
			s.logger.Error("Monitoring tick exhausted retries, resuming normal cadence",
				zap.Int("attempts", next))
			s.chainNextLocked(gen)
			return
		}
		backoff := time.Duration(next) * s.retryBackoff
		s.logger.Warn("Monitoring tick will retry",
			zap.Int("attempt", next),
			zap.Duration("backoff", backoff))
		s.armLocked(gen, backoff, next)
	default:
		s.chainNextLocked(gen)
	}
}

// chainNextLocked arms the next regular tick. The interval is re-read from
// the settings store here, at the last possible moment, so the newest
// persisted value always wins over the one this chain started with.
func (s *MonitorScheduler) chainNextLocked(gen int) {
	interval := time.Duration(s.settings.CheckInterval()) * s.unit
	s.armLocked(gen, interval, 0)
}

// waitForNetwork blocks until the connectivity precondition holds or the
// chain is cancelled.
func (s *MonitorScheduler) waitForNetwork(ctx context.Context) bool {
	for !s.online() {
		s.logger.Info("Waiting for network connectivity")
		select {
		case <-ctx.Done():
			return false
		case <-time.After(s.probeEvery):
		}
	}
	return true
}

// IsActive reports whether the unique job is currently enqueued or running.
func (s *MonitorScheduler) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == JobEnqueued || s.state == JobRunning
}

// TriggerImmediateCheck enqueues one ad-hoc run of the same work body with
// the same network precondition. It is independent of the scheduled chain
// and leaves the persisted interval untouched. A failed run retries with the
// same linear back-off, bounded by the retry cap.
func (s *MonitorScheduler) TriggerImmediateCheck() {
	s.logger.Info("Immediate check requested")
	go func() {
		ctx := context.Background()
		for attempt := 0; ; attempt++ {
			if !s.waitForNetwork(ctx) {
				return
			}
			if s.work(ctx) != OutcomeRetry {
				return
			}
			if attempt+1 > maxRetryAttempts {
				s.logger.Error("Immediate check exhausted retries")
				return
			}
			time.Sleep(time.Duration(attempt+1) * s.retryBackoff)
		}
	}()
}
