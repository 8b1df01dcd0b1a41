package services

import (
	"strconv"
	"time"

	"airguard/config"
	"airguard/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// EnvelopeSink receives every successfully parsed bus envelope.
type EnvelopeSink func(envelope *models.TelemetryEnvelope)

// atLeastOnce is the QoS for every subscribe and publish. The broker
// redelivers on a missed ack instead of silently dropping the message.
const atLeastOnce = 1

// BusListener maintains the single persistent MQTT connection for the
// process. Inbound payloads on the telemetry topic are decoded as UTF-8
// text, parsed as envelopes, and fanned out to the live readings plus any
// registered sink. Parse failures are logged and dropped.
type BusListener struct {
	config   *config.Config
	logger   *zap.Logger
	client   mqtt.Client
	readings *LiveReadings
}

// NewBusListener builds the listener without connecting.
func NewBusListener(cfg *config.Config, readings *LiveReadings, logger *zap.Logger) *BusListener {
	b := &BusListener{
		config:   cfg,
		logger:   logger,
		readings: readings,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTTBrokerURL)
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetUsername(cfg.MQTTUsername)
	opts.SetPassword(cfg.MQTTPassword)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)

	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("Connected to MQTT broker", zap.String("broker", cfg.MQTTBrokerURL))
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Error("MQTT connection lost", zap.Error(err))
	}

	b.client = mqtt.NewClient(opts)
	return b
}

// Connect establishes the broker connection, blocking until the connect
// handshake completes or fails.
func (b *BusListener) Connect() error {
	token := b.client.Connect()
	token.Wait()
	return token.Error()
}

// StartListening subscribes to the fixed telemetry topic. Each inbound
// message is parsed; on success the five body fields are published to the
// live readings as text and the envelope handed to sink (which may be nil).
func (b *BusListener) StartListening(sink EnvelopeSink) error {
	handler := func(client mqtt.Client, msg mqtt.Message) {
		raw := string(msg.Payload())
		envelope := ParseEnvelope(raw)
		if envelope == nil {
			b.logger.Warn("Dropping unparseable bus message",
				zap.String("topic", msg.Topic()),
				zap.Int("payload_bytes", len(msg.Payload())))
			return
		}

		b.fanOut(&envelope.Body)

		if sink != nil {
			sink(envelope)
		}
	}

	token := b.client.Subscribe(b.config.MQTTTopic, atLeastOnce, handler)
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}

	b.logger.Info("Listening for telemetry", zap.String("topic", b.config.MQTTTopic))
	return nil
}

// fanOut publishes the body fields to the observable scalar slots.
func (b *BusListener) fanOut(body *models.TelemetryBody) {
	set := func(m models.Metric, v float64) {
		b.readings.Set(m, strconv.FormatFloat(v, 'f', -1, 64))
	}
	set(models.MetricTemperature, body.Temperature)
	set(models.MetricHumidity, body.Humidity)
	set(models.MetricFlammable, body.FlammableGases)
	set(models.MetricTVOC, body.TVOC)
	set(models.MetricCO, body.CO)
}

// StartControl subscribes to a control topic carrying plain-text commands
// (the mobile UI publishes its monitoring toggles here).
func (b *BusListener) StartControl(topic string, handler func(command string)) error {
	token := b.client.Subscribe(topic, atLeastOnce, func(client mqtt.Client, msg mqtt.Message) {
		handler(string(msg.Payload()))
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}
	b.logger.Info("Listening for control commands", zap.String("topic", topic))
	return nil
}

// Publish sends a control message, fire-and-forget. Delivery failure is
// logged, not returned, so callers never block on broker health.
func (b *BusListener) Publish(topic string, payload []byte) {
	token := b.client.Publish(topic, atLeastOnce, false, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			b.logger.Error("Failed to publish control message",
				zap.String("topic", topic),
				zap.Error(token.Error()))
		}
	}()
}

// Disconnect closes the broker connection. Safe to call repeatedly; a
// second call just logs and returns.
func (b *BusListener) Disconnect() {
	if !b.client.IsConnected() {
		b.logger.Info("MQTT already disconnected")
		return
	}
	b.client.Disconnect(250)
	b.logger.Info("MQTT disconnected")
}
