// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/sweeney/honey-warmer/internal/logic"
)

// Topics are the MQTT topics the warmer publishes to.
type Topics struct {
	Temperature string // rounded degrees Fahrenheit
	Humidity    string // rounded percent relative humidity
	Debug       string // human readable diagnostics
	System      string // JSON lifecycle events
}

// DefaultTopics returns the topics the warmer dashboards subscribe to.
func DefaultTopics() Topics {
	return Topics{
		Temperature: "/dht/temp",
		Humidity:    "/dht/humidity",
		Debug:       "/debug",
		System:      "honey-warmer/system",
	}
}

// Debug messages.
const (
	MessageConnected = "Honey warmer connected!"
	MessageTimeout   = "ERROR: Temperature timeout! Shutting down!"
)

// System event names.
const (
	EventStartup   = "STARTUP"
	EventShutdown  = "SHUTDOWN"
	EventHeartbeat = "HEARTBEAT"
	EventFault     = "FAULT"
)

// Publisher publishes telemetry and events to MQTT.
type Publisher interface {
	// PublishTelemetry sends the temperature and humidity values.
	// Returns error if publishing fails (should not crash the process).
	PublishTelemetry(t logic.Telemetry) error

	// PublishDebug sends a diagnostic message to the debug topic.
	PublishDebug(msg string) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, fault, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "FAULT"
	Reason     string // e.g., "SIGTERM", "SENSOR_TIMEOUT"
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// FormatValue renders a telemetry value with one decimal place.
func FormatValue(v float64) []byte {
	return []byte(strconv.FormatFloat(logic.Round1(v), 'f', 1, 64))
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
