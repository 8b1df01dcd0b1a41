package services

import (
	"sync"

	"airguard/models"
)

// LiveReadings holds the most recent bus-delivered value for each metric as
// display text. Writes arrive on the message-bus client's I/O goroutine, so
// all access is mutex-guarded; subscribers are notified synchronously after
// each write and must not block.
type LiveReadings struct {
	mu     sync.RWMutex
	values map[models.Metric]string
	subs   []func(metric models.Metric, value string)
}

// NewLiveReadings creates an empty fan-out state.
func NewLiveReadings() *LiveReadings {
	return &LiveReadings{
		values: make(map[models.Metric]string, len(models.Metrics)),
	}
}

// Set stores a metric's display value and notifies subscribers.
func (l *LiveReadings) Set(metric models.Metric, value string) {
	l.mu.Lock()
	l.values[metric] = value
	subs := make([]func(models.Metric, string), len(l.subs))
	copy(subs, l.subs)
	l.mu.Unlock()

	for _, fn := range subs {
		fn(metric, value)
	}
}

// Get returns the current display value for a metric, or "" when no reading
// has arrived yet.
func (l *LiveReadings) Get(metric models.Metric) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.values[metric]
}

// Subscribe registers a callback invoked on every subsequent write.
func (l *LiveReadings) Subscribe(fn func(metric models.Metric, value string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = append(l.subs, fn)
}
