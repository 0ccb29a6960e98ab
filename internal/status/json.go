package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	State         string       `json:"state"`
	Fault         *FaultJSON   `json:"fault,omitempty"`
	Reading       *ReadingJSON `json:"reading,omitempty"`
	Stage         string       `json:"stage"`
	Outputs       OutputsJSON  `json:"outputs"`
	Gates         []GateJSON   `json:"gates"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// FaultJSON describes the fail-safe shutdown.
type FaultJSON struct {
	Reason    string `json:"reason"`
	Timestamp string `json:"timestamp"`
}

// ReadingJSON is the last valid reading.
type ReadingJSON struct {
	TemperatureF float64 `json:"temperature_f"`
	Humidity     float64 `json:"humidity"`
	Timestamp    string  `json:"timestamp"`
}

// OutputsJSON reports relay levels as ON/OFF.
type OutputsJSON struct {
	Plate1 string `json:"plate1"`
	Plate2 string `json:"plate2"`
	Fan    string `json:"fan"`
}

// GateJSON is the JSON representation of one gate.
type GateJSON struct {
	Name    string  `json:"name"`
	Rising  float64 `json:"rising"`
	Falling float64 `json:"falling"`
	Active  bool    `json:"active"`
	Armed   bool    `json:"armed"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of loop counters.
type CountsJSON struct {
	Cycles        int `json:"cycles"`
	SensorMisses  int `json:"sensor_misses"`
	OutputErrors  int `json:"output_errors"`
	PublishErrors int `json:"publish_errors"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TargetTempF    float64 `json:"target_temp_f"`
	ToleranceF     float64 `json:"tolerance_f"`
	TwoPlateOffset float64 `json:"two_plate_offset_f"`
	FanOnTempF     float64 `json:"fan_on_temp_f"`
	SamplePeriodMs int64   `json:"sample_period_ms"`
	ReadTimeoutMs  int64   `json:"read_timeout_ms"`
	HeartbeatMs    int64   `json:"heartbeat_ms"`
	SensorDriver   string  `json:"sensor_driver"`
	OutputDriver   string  `json:"output_driver"`
	Broker         string  `json:"broker"`
	HTTPAddr       string  `json:"http_addr"`
}

// OnOff renders a relay level.
func OnOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func buildInner(snap Snapshot) StatusInner {
	stage := string(snap.Stage)
	if stage == "" {
		stage = "UNKNOWN"
	}

	inner := StatusInner{
		State: snap.State,
		Stage: stage,
		Outputs: OutputsJSON{
			Plate1: OnOff(snap.Outputs.Plate1),
			Plate2: OnOff(snap.Outputs.Plate2),
			Fan:    OnOff(snap.Outputs.Fan),
		},
		Gates:         make([]GateJSON, 0, len(snap.Gates)),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Cycles:        snap.Counts.Cycles,
			SensorMisses:  snap.Counts.SensorMisses,
			OutputErrors:  snap.Counts.OutputErrors,
			PublishErrors: snap.Counts.PublishErrors,
		},
		Config: ConfigJSON{
			TargetTempF:    snap.Config.TargetTempF,
			ToleranceF:     snap.Config.ToleranceF,
			TwoPlateOffset: snap.Config.TwoPlateOffset,
			FanOnTempF:     snap.Config.FanOnTempF,
			SamplePeriodMs: snap.Config.SamplePeriodMs,
			ReadTimeoutMs:  snap.Config.ReadTimeoutMs,
			HeartbeatMs:    snap.Config.HeartbeatMs,
			SensorDriver:   snap.Config.SensorDriver,
			OutputDriver:   snap.Config.OutputDriver,
			Broker:         snap.Config.Broker,
			HTTPAddr:       snap.Config.HTTPAddr,
		},
	}
	if inner.State == "" {
		inner.State = StateRunning
	}

	for _, g := range snap.Gates {
		inner.Gates = append(inner.Gates, GateJSON{
			Name:    g.Name,
			Rising:  g.Rising,
			Falling: g.Falling,
			Active:  g.Active,
			Armed:   g.Armed,
		})
	}

	if snap.HasReading() {
		inner.Reading = &ReadingJSON{
			TemperatureF: snap.TemperatureF,
			Humidity:     snap.Humidity,
			Timestamp:    snap.LastReading.UTC().Format(time.RFC3339),
		}
	}

	if snap.Fault != "" {
		inner.Fault = &FaultJSON{
			Reason:    snap.Fault,
			Timestamp: snap.FaultTime.UTC().Format(time.RFC3339),
		}
	}

	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}

	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
