package sensor

import (
	"errors"

	"github.com/sweeney/honey-warmer/internal/logic"
)

// FakeSensor is a test double that returns scripted readings.
type FakeSensor struct {
	// Samples contains scripted readings to return.
	// Each call to Read() consumes the next sample.
	Samples []logic.Reading

	// index tracks current position in Samples
	index int

	// Calls counts Read() invocations.
	Calls int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, is returned by Read() together with an invalid reading.
	ReadError error
}

// NewFakeSensor creates a FakeSensor with the given samples.
func NewFakeSensor(samples ...logic.Reading) *FakeSensor {
	return &FakeSensor{Samples: samples}
}

// Valid returns a valid reading.
func Valid(tempC, humidity float64) logic.Reading {
	return logic.Reading{TemperatureC: tempC, Humidity: humidity, Valid: true}
}

// Misses returns n invalid readings.
func Misses(n int) []logic.Reading {
	return make([]logic.Reading, n)
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeSensor) Read() (logic.Reading, error) {
	f.Calls++

	if f.ReadError != nil {
		return logic.Reading{}, f.ReadError
	}

	if len(f.Samples) == 0 {
		return logic.Reading{}, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// Close marks the sensor as closed.
func (f *FakeSensor) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the sensor to the beginning of samples.
func (f *FakeSensor) Reset() {
	f.index = 0
	f.Calls = 0
	f.Closed = false
}
