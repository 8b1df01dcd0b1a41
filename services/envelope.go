package services

import (
	"encoding/json"
	"strings"
	"time"

	"airguard/models"
)

// enqueuedTimeLayout matches the bus timestamp format, e.g.
// "Tue Sep 09 2025 13:02:14 GMT-0500". The parenthesized timezone-name
// comment some producers append is stripped before parsing.
const enqueuedTimeLayout = "Mon Jan 02 2006 15:04:05 GMT-0700"

// ParseEnvelope decodes a raw bus payload into a telemetry envelope. Any
// decode failure, including a missing or non-numeric body field, returns nil;
// the caller drops the message and moves on. This boundary never panics.
func ParseEnvelope(raw string) *models.TelemetryEnvelope {
	var decoded struct {
		Body         *models.TelemetryBody `json:"body"`
		EnqueuedTime string                `json:"enqueuedTime"`
	}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil
	}
	if decoded.Body == nil {
		return nil
	}
	return &models.TelemetryEnvelope{
		Body:         *decoded.Body,
		EnqueuedTime: decoded.EnqueuedTime,
	}
}

// ParseEnqueuedInstant parses a bus enqueued-time string into an instant.
// Returns ok=false on any format failure.
func ParseEnqueuedInstant(s string) (time.Time, bool) {
	// The trailing comment in strings like
	// "Tue Sep 09 2025 13:02:14 GMT-0500 (Central Daylight Time)" is not
	// part of the parseable portion.
	if idx := strings.Index(s, " ("); idx >= 0 {
		s = s[:idx]
	}
	t, err := time.Parse(enqueuedTimeLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
