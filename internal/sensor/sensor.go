// Package sensor provides temperature/humidity acquisition with hardware abstraction.
// A single Read is one attempt; retrying is the caller's job.
package sensor

import "github.com/sweeney/honey-warmer/internal/logic"

// Sensor performs single-shot temperature/humidity reads.
type Sensor interface {
	// Read makes one acquisition attempt. A plain sensor miss returns a
	// reading with Valid=false and, when the cause is known, an error.
	// It never panics for a miss.
	Read() (logic.Reading, error)

	// Close releases the device.
	Close() error
}
