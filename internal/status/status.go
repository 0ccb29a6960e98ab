// Package status provides a thread-safe status tracker for the honey-warmer daemon.
// It is written by the control loop and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/honey-warmer/internal/logic"
)

// Controller states.
const (
	StateRunning  = "RUNNING"
	StateShutdown = "SHUTDOWN"
)

// NetworkInfo contains network state as written by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	TargetTempF    float64
	ToleranceF     float64
	TwoPlateOffset float64
	FanOnTempF     float64
	SamplePeriodMs int64
	ReadTimeoutMs  int64
	HeartbeatMs    int64
	SensorDriver   string
	OutputDriver   string
	Broker         string
	HTTPAddr       string
}

// GateStatus is the observable state of one hysteresis gate.
type GateStatus struct {
	Name    string
	Rising  float64
	Falling float64
	Active  bool
	Armed   bool
}

// Outputs is the last level written to each relay.
type Outputs struct {
	Plate1 bool
	Plate2 bool
	Fan    bool
}

// Counts tracks control loop activity since startup.
type Counts struct {
	Cycles        int
	SensorMisses  int
	OutputErrors  int
	PublishErrors int
}

// Control is what the control loop reports after each cycle.
type Control struct {
	State        string
	TemperatureF float64 // rounded
	Humidity     float64 // rounded
	LastReading  time.Time
	Stage        logic.Stage
	Outputs      Outputs
	Gates        []GateStatus
	Counts       Counts
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Control
	Fault         string
	FaultTime     time.Time
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// HasReading reports whether at least one valid reading was taken.
func (s Snapshot) HasReading() bool {
	return !s.LastReading.IsZero()
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Control:   Control{State: StateRunning},
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update replaces the control loop state.
func (t *Tracker) Update(c Control) {
	gates := make([]GateStatus, len(c.Gates))
	copy(gates, c.Gates)
	c.Gates = gates

	t.mu.Lock()
	t.snap.Control = c
	t.mu.Unlock()
}

// SetFault records the fail-safe reason. The first fault wins.
func (t *Tracker) SetFault(reason string, at time.Time) {
	t.mu.Lock()
	if t.snap.Fault == "" {
		t.snap.Fault = reason
		t.snap.FaultTime = at
	}
	t.snap.State = StateShutdown
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Gates = make([]GateStatus, len(t.snap.Gates))
	copy(s.Gates, t.snap.Gates)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
