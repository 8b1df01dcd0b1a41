package services

import (
	"context"
	"sync"
	"time"

	"airguard/models"

	"go.uber.org/zap"
)

// BatchSink persists one batch of telemetry envelopes.
type BatchSink interface {
	WriteBatch(ctx context.Context, batch []*models.TelemetryEnvelope) error
}

// ArchiveWriter buffers bus envelopes and flushes them to a sink when the
// buffer fills or a timeout elapses, whichever comes first. A failed flush
// retries a bounded number of times with linear back-off; after that the
// batch is dropped and logged.
type ArchiveWriter struct {
	sink         BatchSink
	logger       *zap.Logger
	maxBatchSize int
	batchTimeout time.Duration
	// retrySleep is the linear back-off base between failed flush attempts.
	retrySleep time.Duration

	mu     sync.Mutex
	buffer []*models.TelemetryEnvelope
}

// NewArchiveWriter builds a writer; it does nothing until Start is called.
func NewArchiveWriter(sink BatchSink, maxBatchSize int, batchTimeout time.Duration, logger *zap.Logger) *ArchiveWriter {
	return &ArchiveWriter{
		sink:         sink,
		logger:       logger,
		maxBatchSize: maxBatchSize,
		batchTimeout: batchTimeout,
		retrySleep:   time.Second,
		buffer:       make([]*models.TelemetryEnvelope, 0, maxBatchSize),
	}
}

// Start consumes envelopes until ctx is cancelled or the channel closes,
// flushing any remainder on the way out.
func (w *ArchiveWriter) Start(ctx context.Context, envelopes <-chan *models.TelemetryEnvelope) {
	w.logger.Info("Archive writer started",
		zap.Int("max_batch_size", w.maxBatchSize),
		zap.Duration("batch_timeout", w.batchTimeout))

	timer := time.NewTimer(w.batchTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Archive writer stopping")
			w.flush(context.Background())
			return

		case envelope, ok := <-envelopes:
			if !ok {
				w.logger.Warn("Archive channel closed")
				w.flush(context.Background())
				return
			}
			if w.add(envelope) >= w.maxBatchSize {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				w.flush(ctx)
				timer.Reset(w.batchTimeout)
			}

		case <-timer.C:
			w.flush(ctx)
			timer.Reset(w.batchTimeout)
		}
	}
}

// add appends to the buffer and returns the new size.
func (w *ArchiveWriter) add(envelope *models.TelemetryEnvelope) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buffer = append(w.buffer, envelope)
	return len(w.buffer)
}

// BufferLen returns the current buffer size.
func (w *ArchiveWriter) BufferLen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buffer)
}

// flush takes the current buffer and writes it, retrying on failure.
func (w *ArchiveWriter) flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.buffer) == 0 {
		w.mu.Unlock()
		return
	}
	batch := make([]*models.TelemetryEnvelope, len(w.buffer))
	copy(batch, w.buffer)
	w.buffer = w.buffer[:0]
	w.mu.Unlock()

	maxRetries := 3
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = w.sink.WriteBatch(ctx, batch)
		if err == nil {
			w.logger.Debug("Flushed archive batch", zap.Int("batch_size", len(batch)))
			return
		}
		w.logger.Error("Failed to flush archive batch",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Int("batch_size", len(batch)),
			zap.Error(err))
		if attempt < maxRetries {
			time.Sleep(time.Duration(attempt) * w.retrySleep)
		}
	}

	w.logger.Error("Dropping archive batch after exhausted retries",
		zap.Int("batch_size", len(batch)),
		zap.Error(err))
}
