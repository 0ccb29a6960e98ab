// Package gpio drives the relay outputs with hardware abstraction.
// The real implementations use the Linux GPIO character device or
// memory-mapped BCM registers. The fake implementation allows testing
// without hardware.
package gpio

import "fmt"

// Channel names a relay output.
type Channel string

const (
	Plate1 Channel = "PLATE1" // relay J4
	Plate2 Channel = "PLATE2" // relay J5
	Fan    Channel = "FAN"    // relay J3
)

// Channels lists every output in line-request order.
var Channels = []Channel{Plate1, Plate2, Fan}

// Level is the requested state of one channel.
type Level struct {
	Channel Channel
	On      bool
}

// On returns an on level for ch.
func On(ch Channel) Level { return Level{Channel: ch, On: true} }

// Off returns an off level for ch.
func Off(ch Channel) Level { return Level{Channel: ch, On: false} }

// Pins maps channels to BCM line offsets.
type Pins struct {
	Plate1 int
	Plate2 int
	Fan    int
}

// Default pin assignment (BCM numbering).
const (
	DefaultPinPlate1 = 6  // physical pin 31
	DefaultPinPlate2 = 26 // physical pin 37
	DefaultPinFan    = 22 // physical pin 15
)

func (p Pins) offsets() []int {
	return []int{p.Plate1, p.Plate2, p.Fan}
}

// Writer sets relay outputs.
type Writer interface {
	// Write applies all levels in a single request where the hardware
	// allows, so the appliance never observes a partial decision.
	Write(levels ...Level) error

	// Close de-energises every output and releases GPIO resources.
	Close() error
}

func channelIndex(ch Channel) (int, error) {
	for i, c := range Channels {
		if c == ch {
			return i, nil
		}
	}
	return 0, fmt.Errorf("gpio: unknown channel %q", ch)
}

func boolToValue(on bool) int {
	if on {
		return 1
	}
	return 0
}
