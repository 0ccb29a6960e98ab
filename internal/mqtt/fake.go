package mqtt

import (
	"github.com/sweeney/honey-warmer/internal/logic"
)

// Message is a published topic/payload pair.
type Message struct {
	Topic   string
	Payload string
}

// FakePublisher records published messages for test assertions.
type FakePublisher struct {
	// Topics used when recording Messages.
	Topics Topics

	// Telemetry contains every published reading.
	Telemetry []logic.Telemetry

	// Debug contains every diagnostic message.
	Debug []string

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// Messages contains every publish in order, as it would appear on the wire.
	Messages []Message

	// PublishError, if set, will be returned by PublishTelemetry.
	PublishError error

	// PublishDebugError, if set, will be returned by PublishDebug.
	PublishDebugError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Topics: DefaultTopics()}
}

// PublishTelemetry records the reading.
func (f *FakePublisher) PublishTelemetry(t logic.Telemetry) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	f.Telemetry = append(f.Telemetry, t)
	f.Messages = append(f.Messages,
		Message{Topic: f.Topics.Temperature, Payload: string(FormatValue(t.TemperatureF))},
		Message{Topic: f.Topics.Humidity, Payload: string(FormatValue(t.Humidity))},
	)
	return nil
}

// PublishDebug records the diagnostic message.
func (f *FakePublisher) PublishDebug(msg string) error {
	if f.PublishDebugError != nil {
		return f.PublishDebugError
	}

	f.Debug = append(f.Debug, msg)
	f.Messages = append(f.Messages, Message{Topic: f.Topics.Debug, Payload: msg})
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}

	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	f.Messages = append(f.Messages, Message{Topic: f.Topics.System, Payload: string(payload)})
	return nil
}

// SystemEventNames returns the Event field of every recorded system event.
func (f *FakePublisher) SystemEventNames() []string {
	names := make([]string, len(f.SystemEvents))
	for i, e := range f.SystemEvents {
		names[i] = e.Event
	}
	return names
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded messages and injected errors.
func (f *FakePublisher) Reset() {
	f.Telemetry = nil
	f.Debug = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Messages = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishDebugError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
