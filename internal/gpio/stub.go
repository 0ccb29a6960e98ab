//go:build !linux

package gpio

import "errors"

// RealWriter is not available on non-Linux platforms.
type RealWriter struct{}

// NewRealWriter returns an error on non-Linux platforms.
func NewRealWriter(chip string, pins Pins, activeLow bool) (*RealWriter, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Write is not implemented on non-Linux platforms.
func (w *RealWriter) Write(levels ...Level) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (w *RealWriter) Close() error {
	return nil
}

// RPIOWriter is not available on non-Linux platforms.
type RPIOWriter struct{}

// NewRPIOWriter returns an error on non-Linux platforms.
func NewRPIOWriter(pins Pins, activeLow bool) (*RPIOWriter, error) {
	return nil, errors.New("gpio: rpio not supported on this platform (requires Linux)")
}

// Write is not implemented on non-Linux platforms.
func (w *RPIOWriter) Write(levels ...Level) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (w *RPIOWriter) Close() error {
	return nil
}
