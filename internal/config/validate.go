package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks configuration correctness before the control loop starts.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	var errs []error

	cc := cfg.Control
	if cc.ToleranceF <= 0 {
		errs = append(errs, fmt.Errorf("control.tolerance_f must be > 0, got %v", cc.ToleranceF))
	}
	if cc.TwoPlateOffset <= 0 {
		errs = append(errs, fmt.Errorf("control.two_plate_offset_f must be > 0, got %v", cc.TwoPlateOffset))
	}
	if cc.SamplePeriod <= 0 {
		errs = append(errs, fmt.Errorf("control.sample_period must be > 0, got %v", cc.SamplePeriod))
	}
	if cc.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("control.read_timeout must be > 0, got %v", cc.ReadTimeout))
	}
	if cc.RetryBackoff <= 0 {
		errs = append(errs, fmt.Errorf("control.retry_backoff must be > 0, got %v", cc.RetryBackoff))
	}
	if cc.RetryBackoff > cc.ReadTimeout && cc.ReadTimeout > 0 {
		errs = append(errs, fmt.Errorf("control.retry_backoff %v exceeds read_timeout %v", cc.RetryBackoff, cc.ReadTimeout))
	}
	if cc.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("control.max_attempts must be >= 0, got %d", cc.MaxAttempts))
	}

	twoPlates, onePlate, fan := cfg.Gates()
	for _, g := range []struct {
		name            string
		rising, falling float64
	}{
		{"two-plate", twoPlates.Rising, twoPlates.Falling},
		{"one-plate", onePlate.Rising, onePlate.Falling},
		{"fan", fan.Rising, fan.Falling},
	} {
		if g.rising <= g.falling {
			errs = append(errs, fmt.Errorf("%s gate: rising threshold %v must exceed falling threshold %v", g.name, g.rising, g.falling))
		}
	}
	if twoPlates.Rising >= onePlate.Rising {
		errs = append(errs, fmt.Errorf("two-plate rising threshold %v must be below one-plate rising threshold %v", twoPlates.Rising, onePlate.Rising))
	}

	switch cfg.Sensor.Driver {
	case SensorIIO:
		if cfg.Sensor.IIO.Device == "" {
			errs = append(errs, errors.New("sensor.iio.device is required"))
		}
	case SensorModbus:
		m := cfg.Sensor.Modbus
		if m.Mode != "rtu" && m.Mode != "tcp" {
			errs = append(errs, fmt.Errorf("sensor.modbus.mode must be rtu or tcp, got %q", m.Mode))
		}
		if m.Address == "" {
			errs = append(errs, errors.New("sensor.modbus.address is required"))
		}
		if m.Scale <= 0 {
			errs = append(errs, fmt.Errorf("sensor.modbus.scale must be > 0, got %v", m.Scale))
		}
		if m.TemperatureRegister == m.HumidityRegister {
			errs = append(errs, fmt.Errorf("sensor.modbus: temperature and humidity registers collide at %d", m.TemperatureRegister))
		}
	default:
		errs = append(errs, fmt.Errorf("sensor.driver: unknown driver %q", cfg.Sensor.Driver))
	}

	o := cfg.Outputs
	if o.Driver != OutputGPIOCDev && o.Driver != OutputRPIO {
		errs = append(errs, fmt.Errorf("outputs.driver: unknown driver %q", o.Driver))
	}
	pins := map[int]string{}
	for _, p := range []struct {
		name string
		pin  int
	}{
		{"plate1_pin", o.Plate1Pin},
		{"plate2_pin", o.Plate2Pin},
		{"fan_pin", o.FanPin},
	} {
		if p.pin < 0 {
			errs = append(errs, fmt.Errorf("outputs.%s must be >= 0, got %d", p.name, p.pin))
			continue
		}
		if prev, ok := pins[p.pin]; ok {
			errs = append(errs, fmt.Errorf("outputs.%s: pin %d already used by %s", p.name, p.pin, prev))
			continue
		}
		pins[p.pin] = p.name
	}

	m := cfg.MQTT
	if m.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required"))
	} else if _, err := url.Parse(m.Broker); err != nil {
		errs = append(errs, fmt.Errorf("mqtt.broker: %w", err))
	}
	if m.TopicTemperature == "" || m.TopicHumidity == "" || m.TopicDebug == "" || m.TopicSystem == "" {
		errs = append(errs, errors.New("mqtt topics must not be empty"))
	}
	if m.BufferSize < 1 {
		errs = append(errs, fmt.Errorf("mqtt.buffer_size must be >= 1, got %d", m.BufferSize))
	}

	switch cfg.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format))
	}

	return errors.Join(errs...)
}
