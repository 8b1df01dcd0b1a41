package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries every tunable the services need. Values come from the
// environment, optionally seeded from a .env file.
type Config struct {
	// Message bus
	MQTTBrokerURL string
	MQTTUsername  string
	MQTTPassword  string
	MQTTClientID  string
	MQTTTopic     string

	// Control surface for the monitoring toggles
	MQTTControlTopic string

	// Optional AMQP ingestion (brokers that bridge MQTT into RabbitMQ)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Remote prediction/aggregation service
	APIBaseURL string

	// Telegram alert delivery
	TelegramBotToken string
	TelegramChatID   string

	// Firebase telemetry archive (optional)
	FirebaseDbUrl              string
	FirebaseServiceAccountJSON string
	FirebaseBatchSize          int
	FirebaseBatchTimeout       int // seconds

	// Settings store
	SettingsDBPath string

	// Cadences
	ChartPollSeconds      int
	DefaultCheckInterval  int // seconds, background monitoring
	SilenceTimeoutSeconds int // bus-silence watchdog
	MonitorAutostart      bool
	ForecastDefaultDays   float64
}

// LoadConfig reads configuration from the environment. A missing .env file
// is not an error.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		MQTTBrokerURL: getEnv("MQTT_BROKER_URL", "tcp://localhost:1883"),
		MQTTUsername:  getEnv("MQTT_USERNAME", ""),
		MQTTPassword:  getEnv("MQTT_PASSWORD", ""),
		MQTTClientID:  getEnv("MQTT_CLIENT_ID", "airguard-service"),
		MQTTTopic:     getEnv("MQTT_TOPIC", "telemetry/air"),

		MQTTControlTopic: getEnv("MQTT_CONTROL_TOPIC", "airguard/control"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "airguard"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "telemetry_queue"),

		APIBaseURL: getEnv("API_BASE_URL", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		FirebaseDbUrl:              getEnv("FIREBASE_DB_URL", ""),
		FirebaseServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		FirebaseBatchSize:          getEnvInt("FIREBASE_BATCH_SIZE", 20),
		FirebaseBatchTimeout:       getEnvInt("FIREBASE_BATCH_TIMEOUT", 30),

		SettingsDBPath: getEnv("SETTINGS_DB_PATH", "./airguard.db"),

		ChartPollSeconds:      getEnvInt("CHART_POLL_SECONDS", 6),
		DefaultCheckInterval:  getEnvInt("DEFAULT_CHECK_INTERVAL", 30),
		SilenceTimeoutSeconds: getEnvInt("SILENCE_TIMEOUT_SECONDS", 120),
		MonitorAutostart:      getEnvBool("MONITOR_AUTOSTART", false),
		ForecastDefaultDays:   getEnvFloat("FORECAST_DEFAULT_DAYS", 1.0),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
