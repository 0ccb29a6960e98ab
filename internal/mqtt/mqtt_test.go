package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sweeney/honey-warmer/internal/logic"
)

func TestDefaultTopics(t *testing.T) {
	topics := DefaultTopics()
	require.Equal(t, "/dht/temp", topics.Temperature)
	require.Equal(t, "/dht/humidity", topics.Humidity)
	require.Equal(t, "/debug", topics.Debug)
	require.Equal(t, "honey-warmer/system", topics.System)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{78.08, "78.1"},
		{91.4, "91.4"},
		{105, "105.0"},
		{41.25, "41.3"},
		{-3.04, "-3.0"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, string(FormatValue(tt.v)), "v=%v", tt.v)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		Event:     EventShutdown,
		Reason:    "MQTT_DISCONNECT",
	}

	payload, err := FormatSystemPayload(event)
	require.NoError(t, err)
	require.Equal(t, `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"SHUTDOWN","reason":"MQTT_DISCONNECT"}}`, string(payload))
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 9, 30, 0, 0, loc),
		Event:     EventHeartbeat,
	})
	require.NoError(t, err)

	var parsed SystemPayload
	require.NoError(t, json.Unmarshal(payload, &parsed))
	require.Equal(t, "2026-02-10T08:30:00Z", parsed.System.Timestamp, "converted to UTC")
	require.NotContains(t, string(payload), "reason")
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"FAULT"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: EventFault, RawPayload: raw})
	require.NoError(t, err)
	require.Equal(t, raw, payload)
}

func TestFakePublisherTelemetry(t *testing.T) {
	f := NewFakePublisher()

	require.NoError(t, f.PublishTelemetry(logic.Telemetry{TemperatureF: 78.08, Humidity: 41.26}))

	require.Len(t, f.Telemetry, 1)
	require.Equal(t, []Message{
		{Topic: "/dht/temp", Payload: "78.1"},
		{Topic: "/dht/humidity", Payload: "41.3"},
	}, f.Messages)
}

func TestFakePublisherDebugAndSystem(t *testing.T) {
	f := NewFakePublisher()

	require.NoError(t, f.PublishDebug(MessageConnected))
	require.NoError(t, f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: EventStartup, Retained: true}))

	require.Equal(t, []string{MessageConnected}, f.Debug)
	require.Equal(t, []string{EventStartup}, f.SystemEventNames())
	require.True(t, f.SystemEvents[0].Retained)
	require.Len(t, f.SystemPayloads, 1)
	require.Equal(t, "/debug", f.Messages[0].Topic)
	require.Equal(t, "honey-warmer/system", f.Messages[1].Topic)
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("telemetry down")
	f.PublishDebugError = errors.New("debug down")
	f.PublishSystemError = errors.New("system down")

	require.Error(t, f.PublishTelemetry(logic.Telemetry{}))
	require.Error(t, f.PublishDebug("x"))
	require.Error(t, f.PublishSystem(SystemEvent{Event: EventFault}))
	require.Empty(t, f.Messages, "nothing recorded on error")
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.Connected = true
	require.NoError(t, f.PublishDebug("x"))
	require.NoError(t, f.Close())
	f.PublishError = errors.New("err")

	f.Reset()

	require.Empty(t, f.Debug)
	require.Empty(t, f.Messages)
	require.False(t, f.Closed)
	require.False(t, f.Connected)
	require.NoError(t, f.PublishTelemetry(logic.Telemetry{}))
}

func TestFakePublisherImplementsInterfaces(t *testing.T) {
	var _ Publisher = NewFakePublisher()
	var _ ConnectionStatus = NewFakePublisher()
	var _ Publisher = (*RealPublisher)(nil)
	var _ ConnectionStatus = (*RealPublisher)(nil)
}
