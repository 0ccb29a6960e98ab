//go:build linux

package gpio

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
)

// RPIOWriter drives relays through memory-mapped BCM GPIO registers.
// Unlike RealWriter, pins are written one after another.
type RPIOWriter struct {
	pins      map[Channel]rpio.Pin
	activeLow bool
}

// NewRPIOWriter maps /dev/gpiomem and configures the relay pins as outputs, off.
func NewRPIOWriter(pins Pins, activeLow bool) (*RPIOWriter, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open rpio: %w", err)
	}

	w := &RPIOWriter{
		pins: map[Channel]rpio.Pin{
			Plate1: rpio.Pin(pins.Plate1),
			Plate2: rpio.Pin(pins.Plate2),
			Fan:    rpio.Pin(pins.Fan),
		},
		activeLow: activeLow,
	}
	for _, ch := range Channels {
		p := w.pins[ch]
		p.Output()
		p.Write(w.state(false))
	}
	return w, nil
}

func (w *RPIOWriter) state(on bool) rpio.State {
	if on != w.activeLow {
		return rpio.High
	}
	return rpio.Low
}

// Write sets the given channels in order.
func (w *RPIOWriter) Write(levels ...Level) error {
	for _, l := range levels {
		if _, err := channelIndex(l.Channel); err != nil {
			return err
		}
	}
	for _, l := range levels {
		w.pins[l.Channel].Write(w.state(l.On))
	}
	return nil
}

// Close drives every output off, returns pins to input with pull-down and
// unmaps the registers.
func (w *RPIOWriter) Close() error {
	for _, ch := range Channels {
		p := w.pins[ch]
		p.Write(w.state(false))
		p.Input()
		p.PullDown()
	}
	if err := rpio.Close(); err != nil {
		return fmt.Errorf("close rpio: %w", err)
	}
	return nil
}
