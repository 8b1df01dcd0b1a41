// archdump prints the telemetry archive from Firebase RTDB. Handy for
// checking what the batch writer has persisted.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"

	firebase "firebase.google.com/go/v4"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

type archivedSample struct {
	Temperature    float64 `json:"temperature"`
	Humidity       float64 `json:"humidity"`
	FlammableGases float64 `json:"flammable_gases"`
	TVOC           float64 `json:"tvoc"`
	CO             float64 `json:"co"`
	EnqueuedTime   string  `json:"enqueued_time"`
	ArchivedAt     string  `json:"archived_at"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: error loading .env file: %v", err)
	}

	serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON")
	dbURL := os.Getenv("FIREBASE_DB_URL")
	if serviceAccountJSON == "" {
		log.Fatal("FIREBASE_SERVICE_ACCOUNT_JSON environment variable is not set")
	}
	if dbURL == "" {
		log.Fatal("FIREBASE_DB_URL environment variable is not set")
	}

	ctx := context.Background()

	conf := &firebase.Config{DatabaseURL: dbURL}
	opt := option.WithCredentialsJSON([]byte(serviceAccountJSON))
	app, err := firebase.NewApp(ctx, conf, opt)
	if err != nil {
		log.Fatalf("Error initializing Firebase app: %v", err)
	}

	client, err := app.Database(ctx)
	if err != nil {
		log.Fatalf("Error getting database client: %v", err)
	}

	var entries map[string]archivedSample
	if err := client.NewRef("telemetry-archive").Get(ctx, &entries); err != nil {
		log.Fatalf("Error reading telemetry archive: %v", err)
	}

	fmt.Printf("Total entries found: %d\n", len(entries))

	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		e := entries[key]
		fmt.Printf("%s  archived=%s  enqueued=%s\n", key, e.ArchivedAt, e.EnqueuedTime)
		fmt.Printf("  temp=%.1f°C humidity=%.1f%% flammable=%.1fppm tvoc=%.1fppb co=%.2fppm\n",
			e.Temperature, e.Humidity, e.FlammableGases, e.TVOC, e.CO)
	}
}
