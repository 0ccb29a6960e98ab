package gpio

import "fmt"

// FakeWriter is a test double that records every write.
type FakeWriter struct {
	// Writes contains the levels of each successful Write call, in order.
	Writes [][]Level

	// Levels is the current state of each channel.
	Levels map[Channel]bool

	// WriteError, if set, will be returned by Write() and nothing is recorded.
	WriteError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeWriter creates a FakeWriter with every channel off.
func NewFakeWriter() *FakeWriter {
	f := &FakeWriter{}
	f.Reset()
	return f
}

// Write records the levels.
func (f *FakeWriter) Write(levels ...Level) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	for _, l := range levels {
		if _, err := channelIndex(l.Channel); err != nil {
			return err
		}
	}

	rec := make([]Level, len(levels))
	copy(rec, levels)
	f.Writes = append(f.Writes, rec)

	for _, l := range levels {
		f.Levels[l.Channel] = l.On
	}
	return nil
}

// Close turns every channel off and marks the writer as closed.
func (f *FakeWriter) Close() error {
	for _, ch := range Channels {
		f.Levels[ch] = false
	}
	f.Closed = true
	return nil
}

// Count returns how many writes set ch to on.
func (f *FakeWriter) Count(ch Channel, on bool) int {
	n := 0
	for _, w := range f.Writes {
		for _, l := range w {
			if l.Channel == ch && l.On == on {
				n++
			}
		}
	}
	return n
}

// Last returns the most recent write, or nil.
func (f *FakeWriter) Last() []Level {
	if len(f.Writes) == 0 {
		return nil
	}
	return f.Writes[len(f.Writes)-1]
}

// String renders the current levels, e.g. "PLATE1=ON PLATE2=OFF FAN=OFF".
func (f *FakeWriter) String() string {
	s := ""
	for i, ch := range Channels {
		if i > 0 {
			s += " "
		}
		state := "OFF"
		if f.Levels[ch] {
			state = "ON"
		}
		s += fmt.Sprintf("%s=%s", ch, state)
	}
	return s
}

// Reset clears recorded writes and turns every channel off.
func (f *FakeWriter) Reset() {
	f.Writes = nil
	f.Levels = map[Channel]bool{Plate1: false, Plate2: false, Fan: false}
	f.WriteError = nil
	f.Closed = false
}
