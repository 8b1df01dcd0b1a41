package services

import (
	"context"
	"fmt"
	"time"

	"airguard/config"
	"airguard/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// archiveRef is the RTDB collection holding archived telemetry envelopes.
const archiveRef = "telemetry-archive"

// FirebaseArchive writes batches of bus telemetry into Firebase Realtime
// Database for later inspection. It is an optional sink; the monitoring
// pipeline runs without it.
type FirebaseArchive struct {
	client *db.Client
	logger *zap.Logger
}

// archivedSample is the persisted record shape.
type archivedSample struct {
	Temperature    float64 `json:"temperature"`
	Humidity       float64 `json:"humidity"`
	FlammableGases float64 `json:"flammable_gases"`
	TVOC           float64 `json:"tvoc"`
	CO             float64 `json:"co"`
	EnqueuedTime   string  `json:"enqueued_time"`
	ArchivedAt     string  `json:"archived_at"`
}

// NewFirebaseArchive connects to the configured RTDB instance and verifies
// reachability with a bounded linear retry.
func NewFirebaseArchive(cfg *config.Config, logger *zap.Logger) (*FirebaseArchive, error) {
	ctx := context.Background()

	conf := &firebase.Config{DatabaseURL: cfg.FirebaseDbUrl}
	opt := option.WithCredentialsJSON([]byte(cfg.FirebaseServiceAccountJSON))

	app, err := firebase.NewApp(ctx, conf, opt)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("get database client: %w", err)
	}

	fa := &FirebaseArchive{client: client, logger: logger}
	if err := fa.testConnection(ctx); err != nil {
		return nil, fmt.Errorf("firebase connection test failed: %w", err)
	}
	return fa, nil
}

func (fa *FirebaseArchive) testConnection(ctx context.Context) error {
	maxRetries := 3
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		var probe interface{}
		err = fa.client.NewRef("/").Get(ctx, &probe)
		if err == nil {
			fa.logger.Info("Firebase connection successful")
			return nil
		}
		fa.logger.Warn("Firebase connection failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(err))
		if attempt < maxRetries {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}
	return fmt.Errorf("failed to connect to Firebase after %d attempts: %w", maxRetries, err)
}

// WriteBatch pushes one batch of envelopes into the archive collection.
func (fa *FirebaseArchive) WriteBatch(ctx context.Context, batch []*models.TelemetryEnvelope) error {
	ref := fa.client.NewRef(archiveRef)
	now := time.Now().UTC().Format(time.RFC3339)

	for _, envelope := range batch {
		record := archivedSample{
			Temperature:    envelope.Body.Temperature,
			Humidity:       envelope.Body.Humidity,
			FlammableGases: envelope.Body.FlammableGases,
			TVOC:           envelope.Body.TVOC,
			CO:             envelope.Body.CO,
			EnqueuedTime:   envelope.EnqueuedTime,
			ArchivedAt:     now,
		}
		if _, err := ref.Push(ctx, record); err != nil {
			return fmt.Errorf("push archive record: %w", err)
		}
	}

	fa.logger.Debug("Archived telemetry batch", zap.Int("batch_size", len(batch)))
	return nil
}

// Close releases the archive handle. The RTDB client needs no explicit
// shutdown; this exists for symmetric lifecycle wiring.
func (fa *FirebaseArchive) Close() error {
	fa.logger.Info("Closing Firebase archive")
	return nil
}
