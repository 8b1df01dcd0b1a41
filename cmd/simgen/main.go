package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

var (
	rps        = flag.Int("rps", 1, "Messages to publish per second")
	anomaly    = flag.Float64("anomaly", 0.1, "Probability of an anomalous sample (0.0-1.0)")
	mqttBroker = flag.String("broker", "localhost:1883", "MQTT broker address (host:port)")
	mqttUser   = flag.String("user", "", "MQTT username")
	mqttPass   = flag.String("pass", "", "MQTT password")
	mqttTopic  = flag.String("topic", "telemetry/air", "MQTT topic to publish to")
)

// Generator produces realistic air-quality envelopes with optional anomalies.
type Generator struct {
	anomalyProbability float64
	baseTemp           float64 // °C
	baseHumidity       float64 // %
	baseTVOC           float64 // ppb
	baseCO             float64 // ppm
	baseFlammable      float64 // ppm
}

func NewGenerator(anomalyProb float64) *Generator {
	return &Generator{
		anomalyProbability: anomalyProb,
		baseTemp:           22.0,
		baseHumidity:       45.0,
		baseTVOC:           150.0,
		baseCO:             1.0,
		baseFlammable:      100.0,
	}
}

// busEnvelope mirrors the wire shape the service ingests.
type busEnvelope struct {
	Body         busBody `json:"body"`
	EnqueuedTime string  `json:"enqueuedTime"`
}

type busBody struct {
	Temperature    float64 `json:"Temperature"`
	Humidity       float64 `json:"Humidity"`
	FlammableGases float64 `json:"FlammableGases"`
	TVOC           float64 `json:"TVOC"`
	CO             float64 `json:"CO"`
}

// Generate builds one envelope. With probability anomalyProbability one or
// more metrics are pushed past their safety thresholds.
func (g *Generator) Generate() (*busEnvelope, bool) {
	isAnomaly := rand.Float64() < g.anomalyProbability

	temp := g.baseTemp + rand.Float64()*4.0 - 2.0
	humidity := g.baseHumidity + rand.Float64()*10.0 - 5.0
	tvoc := g.baseTVOC + rand.Float64()*100.0 - 50.0
	co := g.baseCO + rand.Float64()*1.0
	flammable := g.baseFlammable + rand.Float64()*100.0 - 50.0

	if isAnomaly {
		switch rand.Intn(5) {
		case 0:
			if rand.Float64() < 0.5 {
				temp = 32.0 + rand.Float64()*8.0 // well above 80°F
			} else {
				temp = 5.0 + rand.Float64()*5.0 // well below 60°F
			}
		case 1:
			if rand.Float64() < 0.5 {
				humidity = 65.0 + rand.Float64()*25.0
			} else {
				humidity = 5.0 + rand.Float64()*10.0
			}
		case 2:
			tvoc = 550.0 + rand.Float64()*500.0
		case 3:
			co = 10.0 + rand.Float64()*20.0
		case 4:
			flammable = 1100.0 + rand.Float64()*2000.0
		}
	}

	// Timestamp in the producer's wire format, including the timezone comment.
	now := time.Now()
	enqueued := now.Format("Mon Jan 02 2006 15:04:05 GMT-0700") + " (" + now.Format("MST") + ")"

	return &busEnvelope{
		Body: busBody{
			Temperature:    math.Round(temp*10) / 10,
			Humidity:       math.Round(humidity*10) / 10,
			FlammableGases: math.Round(flammable*10) / 10,
			TVOC:           math.Round(tvoc*10) / 10,
			CO:             math.Round(co*100) / 100,
		},
		EnqueuedTime: enqueued,
	}, isAnomaly
}

func main() {
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Telemetry generator started",
		zap.Int("rps", *rps),
		zap.Float64("anomaly_probability", *anomaly),
		zap.String("mqtt_broker", *mqttBroker),
		zap.String("mqtt_topic", *mqttTopic))

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", *mqttBroker))
	opts.SetClientID("airguard-simgen")
	opts.SetUsername(*mqttUser)
	opts.SetPassword(*mqttPass)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)

	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("Connected to MQTT broker", zap.String("broker", *mqttBroker))
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Error("MQTT connection lost", zap.Error(err))
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		logger.Fatal("Failed to connect to MQTT broker", zap.Error(token.Error()))
	}
	defer client.Disconnect(250)

	gen := NewGenerator(*anomaly)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	interval := time.Second / time.Duration(*rps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	messageCount := 0
	anomalyCount := 0
	startTime := time.Now()

	statsTicker := time.NewTicker(60 * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			elapsed := time.Since(startTime)
			logger.Info("Generator stopped",
				zap.Int("total_messages", messageCount),
				zap.Int("anomalies_generated", anomalyCount),
				zap.Duration("uptime", elapsed))
			return

		case <-ticker.C:
			envelope, isAnomaly := gen.Generate()
			if isAnomaly {
				anomalyCount++
			}

			payload, err := json.Marshal(envelope)
			if err != nil {
				logger.Error("Failed to marshal envelope", zap.Error(err))
				continue
			}

			token := client.Publish(*mqttTopic, 1, false, payload)
			if token.Wait() && token.Error() != nil {
				logger.Error("Failed to publish", zap.Error(token.Error()))
				continue
			}
			messageCount++

			if messageCount%100 == 0 {
				logger.Info("Messages published",
					zap.Int("count", messageCount),
					zap.Int("anomalies", anomalyCount))
			}

		case <-statsTicker.C:
			rate := float64(messageCount) / time.Since(startTime).Seconds()
			logger.Info("Statistics",
				zap.Int("total_messages", messageCount),
				zap.Int("anomalies", anomalyCount),
				zap.Float64("avg_rate_msg_per_sec", rate),
				zap.Duration("uptime", time.Since(startTime)))
		}
	}
}
