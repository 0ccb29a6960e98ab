// Package logic contains the pure control logic of the honey warmer.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
package logic

// Reading is one sample from the temperature/humidity sensor.
type Reading struct {
	TemperatureC float64 // degrees Celsius as reported by the sensor
	Humidity     float64 // percent relative humidity
	Valid        bool    // false for a failed acquisition attempt
}

// Telemetry is the rounded reading published after a successful acquisition.
type Telemetry struct {
	TemperatureF float64
	Humidity     float64
}

// NewTelemetry converts a reading to Fahrenheit and rounds both values
// to one decimal place.
func NewTelemetry(r Reading) Telemetry {
	return Telemetry{
		TemperatureF: Round1(ToFahrenheit(r.TemperatureC)),
		Humidity:     Round1(r.Humidity),
	}
}

// Stage is the heating level applied to the plates.
type Stage string

const (
	StageOff       Stage = "OFF"
	StageOnePlate  Stage = "ONE_PLATE"
	StageTwoPlates Stage = "TWO_PLATES"
)

// Plates returns the plate1 and plate2 levels for the stage.
func (s Stage) Plates() (plate1, plate2 bool) {
	switch s {
	case StageTwoPlates:
		return true, true
	case StageOnePlate:
		return true, false
	default:
		return false, false
	}
}
