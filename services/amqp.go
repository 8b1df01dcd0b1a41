package services

import (
	"context"
	"fmt"
	"time"

	"airguard/config"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPIngest consumes telemetry envelopes from a RabbitMQ queue. Some broker
// deployments bridge the MQTT topic into AMQP (via the amq.topic exchange);
// this path feeds the same envelope sink as the direct MQTT listener.
type AMQPIngest struct {
	config    *config.Config
	logger    *zap.Logger
	conn      *amqp.Connection
	channel   *amqp.Channel
	reconnect chan bool
	isClosing bool
}

// NewAMQPIngest connects and declares the queue topology.
func NewAMQPIngest(cfg *config.Config, logger *zap.Logger) (*AMQPIngest, error) {
	service := &AMQPIngest{
		config:    cfg,
		logger:    logger,
		reconnect: make(chan bool),
	}
	if err := service.connect(); err != nil {
		return nil, err
	}
	return service, nil
}

func (a *AMQPIngest) connect() error {
	var err error

	a.logger.Info("Connecting to AMQP broker", zap.String("url", a.config.AMQPURL))

	maxRetries := 5
	for attempt := 1; attempt <= maxRetries; attempt++ {
		a.conn, err = amqp.Dial(a.config.AMQPURL)
		if err == nil {
			break
		}
		a.logger.Warn("Failed to connect to AMQP broker",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(err))
		if attempt < maxRetries {
			time.Sleep(time.Duration(attempt) * 2 * time.Second)
		}
	}
	if err != nil {
		return fmt.Errorf("connect to AMQP after %d attempts: %w", maxRetries, err)
	}

	a.channel, err = a.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}

	if err := a.channel.Qos(10, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}

	err = a.channel.ExchangeDeclare(
		a.config.AMQPExchange,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	queue, err := a.channel.QueueDeclare(
		a.config.AMQPQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := a.channel.QueueBind(queue.Name, a.config.AMQPQueue, a.config.AMQPExchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	// MQTT-bridged messages arrive through amq.topic.
	if err := a.channel.QueueBind(queue.Name, a.config.AMQPQueue, "amq.topic", false, nil); err != nil {
		return fmt.Errorf("bind queue to MQTT exchange: %w", err)
	}

	a.logger.Info("AMQP topology ready",
		zap.String("queue", queue.Name),
		zap.String("exchange", a.config.AMQPExchange))

	go a.handleReconnect()

	return nil
}

func (a *AMQPIngest) handleReconnect() {
	for {
		closeErr := <-a.conn.NotifyClose(make(chan *amqp.Error))
		if a.isClosing {
			a.logger.Info("AMQP connection closed gracefully")
			return
		}
		a.logger.Error("AMQP connection lost", zap.Error(closeErr))

		for {
			a.logger.Info("Attempting to reconnect to AMQP broker")
			if err := a.connect(); err == nil {
				a.logger.Info("Reconnected to AMQP broker")
				a.reconnect <- true
				break
			} else {
				a.logger.Error("Failed to reconnect", zap.Error(err))
				time.Sleep(5 * time.Second)
			}
		}
	}
}

// Consume reads queue messages until ctx is cancelled, handing each parsed
// envelope to sink. Unparseable payloads are acked and dropped; they would
// never become parseable on redelivery.
func (a *AMQPIngest) Consume(ctx context.Context, sink EnvelopeSink) error {
	for {
		msgs, err := a.channel.Consume(
			a.config.AMQPQueue,
			"airguard-service", // consumer tag
			false,              // manual ack
			false,              // exclusive
			false,              // no-local
			false,              // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("register consumer: %w", err)
		}

		a.logger.Info("Consuming telemetry from AMQP queue",
			zap.String("queue", a.config.AMQPQueue))

	consumeLoop:
		for {
			select {
			case <-ctx.Done():
				a.logger.Info("Stopping AMQP consumer")
				return nil

			case <-a.reconnect:
				a.logger.Info("Reconnection detected, restarting consumer")
				break consumeLoop

			case msg, ok := <-msgs:
				if !ok {
					a.logger.Warn("AMQP message channel closed")
					time.Sleep(1 * time.Second)
					break consumeLoop
				}

				envelope := ParseEnvelope(string(msg.Body))
				if envelope == nil {
					a.logger.Warn("Dropping unparseable AMQP message",
						zap.String("message_id", msg.MessageId),
						zap.Int("body_bytes", len(msg.Body)))
					msg.Ack(false)
					continue
				}

				sink(envelope)
				msg.Ack(false)
			}
		}
	}
}

// Close shuts the connection down gracefully.
func (a *AMQPIngest) Close() error {
	a.isClosing = true
	a.logger.Info("Closing AMQP connection")

	if a.channel != nil {
		if err := a.channel.Close(); err != nil {
			a.logger.Error("Error closing channel", zap.Error(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("Error closing connection", zap.Error(err))
			return err
		}
	}
	return nil
}
