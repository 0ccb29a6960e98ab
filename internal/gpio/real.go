//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "honey-warmer"

// RealWriter drives relays through the Linux GPIO character device.
// All three lines belong to one request so a Write updates them together.
type RealWriter struct {
	lines  *gpiocdev.Lines
	values []int
}

// NewRealWriter requests the relay lines as outputs, initially off.
func NewRealWriter(chip string, pins Pins, activeLow bool) (*RealWriter, error) {
	values := make([]int, len(Channels))

	opts := []gpiocdev.LineReqOption{
		gpiocdev.WithConsumer(consumer),
		gpiocdev.AsOutput(values...),
	}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	lines, err := gpiocdev.RequestLines(chip, pins.offsets(), opts...)
	if err != nil {
		return nil, fmt.Errorf("request output lines %v on %s: %w", pins.offsets(), chip, err)
	}

	return &RealWriter{
		lines:  lines,
		values: values,
	}, nil
}

// Write sets the given channels; channels not listed keep their level.
func (w *RealWriter) Write(levels ...Level) error {
	next := make([]int, len(w.values))
	copy(next, w.values)

	for _, l := range levels {
		i, err := channelIndex(l.Channel)
		if err != nil {
			return err
		}
		next[i] = boolToValue(l.On)
	}

	if err := w.lines.SetValues(next); err != nil {
		return fmt.Errorf("set output lines: %w", err)
	}
	w.values = next
	return nil
}

// Close drives every output off, then reconfigures the lines to input with
// pull-down (matching Pi boot defaults) before releasing them so the relays
// stay de-energised across a restart.
func (w *RealWriter) Close() error {
	var errs []error

	if w.lines == nil {
		return nil
	}
	if err := w.lines.SetValues(make([]int, len(Channels))); err != nil {
		errs = append(errs, fmt.Errorf("drive outputs off: %w", err))
	}
	if err := w.lines.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure lines: %w", err))
	}
	if err := w.lines.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close lines: %w", err))
	}

	return errors.Join(errs...)
}
