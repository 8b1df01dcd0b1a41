package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertCategory identifies the notification slot an alert occupies. A new
// alert of the same category replaces the previous undismissed one.
type AlertCategory string

const (
	AlertTemperatureHigh AlertCategory = "temperature_high"
	AlertTemperatureLow  AlertCategory = "temperature_low"
	AlertHumidityHigh    AlertCategory = "humidity_high"
	AlertHumidityLow     AlertCategory = "humidity_low"
	AlertTVOCHigh        AlertCategory = "tvoc_high"
	AlertCOHigh          AlertCategory = "co_high"
	AlertFlammableHigh   AlertCategory = "flammable_high"
	AlertBatteryLow      AlertCategory = "battery_low"
	AlertGeneral         AlertCategory = "general"
)

// AlertSeverity orders alerts for delivery priority.
type AlertSeverity int

const (
	SeverityLow AlertSeverity = iota
	SeverityDefault
	SeverityHigh
	SeverityCritical
)

// AlertEvent is a categorized, human-readable notification. Ephemeral; it is
// delivered once per triggering evaluation and never persisted.
type AlertEvent struct {
	ID        string        `json:"id"`
	Category  AlertCategory `json:"category"`
	Severity  AlertSeverity `json:"severity"`
	Title     string        `json:"title"`
	Body      string        `json:"body"`
	Value     float64       `json:"value"`
	Threshold float64       `json:"threshold"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewAlertEvent builds an alert with a fresh ID and timestamp.
func NewAlertEvent(category AlertCategory, severity AlertSeverity, title, body string, value, threshold float64) *AlertEvent {
	return &AlertEvent{
		ID:        uuid.NewString(),
		Category:  category,
		Severity:  severity,
		Title:     title,
		Body:      body,
		Value:     value,
		Threshold: threshold,
		Timestamp: time.Now(),
	}
}

// Emoji returns the marker used in notification text for this category.
func (a *AlertEvent) Emoji() string {
	switch a.Category {
	case AlertTemperatureHigh:
		return "🔥"
	case AlertTemperatureLow:
		return "🧊"
	case AlertHumidityHigh:
		return "💧"
	case AlertHumidityLow:
		return "🏜️"
	case AlertTVOCHigh:
		return "💨"
	case AlertCOHigh:
		return "☠️"
	case AlertFlammableHigh:
		return "⛽"
	case AlertBatteryLow:
		return "🪫"
	default:
		return "⚠️"
	}
}

// SeverityMarker returns the color marker for notification formatting.
func (a *AlertEvent) SeverityMarker() string {
	switch a.Severity {
	case SeverityCritical:
		return "🔴"
	case SeverityHigh:
		return "🟠"
	case SeverityDefault:
		return "🟡"
	default:
		return "⚪"
	}
}
