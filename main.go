package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"airguard/config"
	"airguard/log"
	"airguard/models"
	"airguard/services"
	"airguard/storage"

	"go.uber.org/zap"
)

func main() {
	// Initialize structured logger
	logger := log.GetInstance()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if cfg.APIBaseURL == "" {
		logger.Fatal("API_BASE_URL is required")
	}

	// Durable settings (persisted check interval, monitoring state)
	settings, err := storage.Open(cfg.SettingsDBPath)
	if err != nil {
		logger.Fatal("Failed to open settings store", zap.Error(err))
	}
	defer settings.Close()

	// Remote prediction/aggregation client
	remote := services.NewRemoteClient(cfg.APIBaseURL, logger)

	// Alert delivery
	var notifier *services.TelegramNotifier
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notifier, err = services.NewTelegramNotifier(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram notifier", zap.Error(err))
		}
		if err := notifier.SendStartupMessage(); err != nil {
			logger.Warn("Failed to send startup message", zap.Error(err))
		}
	} else {
		logger.Warn("Telegram not configured, alerts will only be logged")
	}

	// Background monitoring: threshold evaluator chained by the scheduler
	var sink services.AlertSink
	if notifier != nil {
		sink = notifier
	}
	worker := services.NewThresholdWorker(remote, sink, logger)
	scheduler := services.NewMonitorScheduler(settings, worker.Run, logger)

	logger.Info("Air-quality monitoring service starting",
		zap.String("api_base_url", cfg.APIBaseURL),
		zap.String("mqtt_broker", cfg.MQTTBrokerURL),
		zap.String("mqtt_topic", cfg.MQTTTopic),
		zap.Int("default_check_interval", cfg.DefaultCheckInterval),
		zap.Float64("temp_low_f", services.ThresholdTempLowF),
		zap.Float64("temp_high_f", services.ThresholdTempHighF),
		zap.Float64("humidity_low", services.ThresholdHumidityLow),
		zap.Float64("humidity_high", services.ThresholdHumidityHigh),
		zap.Float64("tvoc_high", services.ThresholdTVOCHigh),
		zap.Float64("co_high", services.ThresholdCOHigh),
		zap.Float64("flammable_high", services.ThresholdFlammableHigh),
		zap.Float64("battery_low", services.ThresholdBatteryLow))

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Live bus readings fanned out to observers
	readings := services.NewLiveReadings()
	readings.Subscribe(func(metric models.Metric, value string) {
		logger.Debug("Live reading", zap.String("metric", string(metric)), zap.String("value", value))
	})

	// Bus-silence watchdog
	watchdog := services.NewSilenceWatchdog(sink,
		time.Duration(cfg.SilenceTimeoutSeconds)*time.Second, logger)
	go watchdog.Start(ctx)

	// Optional telemetry archive: bus envelopes batched into Firebase
	var archiveChan chan *models.TelemetryEnvelope
	if cfg.FirebaseDbUrl != "" && cfg.FirebaseServiceAccountJSON != "" {
		archive, err := services.NewFirebaseArchive(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Firebase archive", zap.Error(err))
		}
		defer archive.Close()

		archiveChan = make(chan *models.TelemetryEnvelope, 100)
		writer := services.NewArchiveWriter(archive, cfg.FirebaseBatchSize,
			time.Duration(cfg.FirebaseBatchTimeout)*time.Second, logger)
		go writer.Start(ctx, archiveChan)
	}

	// Envelope sink shared by both ingestion paths
	envelopeSink := func(envelope *models.TelemetryEnvelope) {
		watchdog.Mark()
		if archiveChan != nil {
			select {
			case archiveChan <- envelope:
			default:
				logger.Warn("Archive channel full, dropping envelope")
			}
		}
	}

	// Message-bus listener
	bus := services.NewBusListener(cfg, readings, logger)
	if err := bus.Connect(); err != nil {
		logger.Fatal("Failed to connect to MQTT broker", zap.Error(err))
	}
	defer bus.Disconnect()
	if err := bus.StartListening(envelopeSink); err != nil {
		logger.Fatal("Failed to subscribe to telemetry topic", zap.Error(err))
	}

	// Monitoring toggles arrive as control commands from the UI
	err = bus.StartControl(cfg.MQTTControlTopic, func(command string) {
		handleControl(command, scheduler, settings, bus, cfg, logger)
	})
	if err != nil {
		logger.Fatal("Failed to subscribe to control topic", zap.Error(err))
	}

	// Optional AMQP ingestion (MQTT bridged through RabbitMQ)
	if cfg.AMQPURL != "" {
		ingest, err := services.NewAMQPIngest(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize AMQP ingestion", zap.Error(err))
		}
		defer ingest.Close()
		go func() {
			if err := ingest.Consume(ctx, envelopeSink); err != nil {
				logger.Error("AMQP consumer stopped", zap.Error(err))
			}
		}()
	}

	// Chart polling aggregators
	latest := services.NewLatestAggregator(remote, logger)
	go latest.Run(ctx, time.Duration(cfg.ChartPollSeconds)*time.Second)

	forecast := services.NewForecastAggregator(remote, logger)
	go forecast.FetchAndBuild(ctx, cfg.ForecastDefaultDays)

	// Resume background monitoring if it was on before the restart, or start
	// it fresh when autostart is configured.
	if settings.GetBool(storage.KeyMonitoringEnabled, false) || cfg.MonitorAutostart {
		if err := scheduler.Start(settings.CheckInterval()); err != nil {
			logger.Error("Failed to start monitoring", zap.Error(err))
		}
	}

	logger.Info("Service started, waiting for telemetry")

	// Wait for shutdown signal
	<-sigChan
	logger.Info("Shutdown signal received, stopping services")

	// Do not call scheduler.Stop() here: that is the user-facing toggle and
	// would persist monitoring as disabled across the restart.
	cancel()

	// Give the archive writer and consumers a moment to flush
	time.Sleep(2 * time.Second)

	logger.Info("Air-quality monitoring service stopped")
}

// handleControl dispatches one UI control command: "start <seconds>",
// "stop", "check_now", or "status". Status replies are published back on the
// control topic's /status sibling.
func handleControl(command string, scheduler *services.MonitorScheduler, settings *storage.SettingsStore, bus *services.BusListener, cfg *config.Config, logger *zap.Logger) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "start":
		interval := settings.CheckInterval()
		if len(fields) > 1 {
			if n, err := strconv.ParseInt(fields[1], 10, 64); err == nil && n > 0 {
				interval = n
			}
		}
		if err := scheduler.Start(interval); err != nil {
			logger.Error("Failed to start monitoring", zap.Error(err))
		}
	case "stop":
		scheduler.Stop()
	case "check_now":
		scheduler.TriggerImmediateCheck()
	case "status":
		status := "inactive"
		if scheduler.IsActive() {
			status = "active"
		}
		bus.Publish(cfg.MQTTControlTopic+"/status", []byte(status))
	default:
		logger.Warn("Unknown control command", zap.String("command", command))
	}
}
