// Package config loads and validates the honey-warmer configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/honey-warmer/internal/logic"
)

// DefaultPath is where the daemon looks for its configuration file.
const DefaultPath = "/etc/honey-warmer/config.yaml"

// Sensor drivers.
const (
	SensorIIO    = "iio"
	SensorModbus = "modbus"
)

// Output drivers.
const (
	OutputGPIOCDev = "gpiocdev"
	OutputRPIO     = "rpio"
)

type Config struct {
	Control   ControlConfig `yaml:"control"`
	Sensor    SensorConfig  `yaml:"sensor"`
	Outputs   OutputsConfig `yaml:"outputs"`
	MQTT      MQTTConfig    `yaml:"mqtt"`
	HTTP      HTTPConfig    `yaml:"http"`
	Heartbeat time.Duration `yaml:"heartbeat"` // zero or negative disables
	Log       LogConfig     `yaml:"log"`
}

// ControlConfig holds set points (degrees Fahrenheit) and loop timing.
type ControlConfig struct {
	TargetTempF    float64       `yaml:"target_temp_f"`
	ToleranceF     float64       `yaml:"tolerance_f"`
	TwoPlateOffset float64       `yaml:"two_plate_offset_f"`
	FanOnTempF     float64       `yaml:"fan_on_temp_f"`
	SamplePeriod   time.Duration `yaml:"sample_period"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	RetryBackoff   time.Duration `yaml:"retry_backoff"`
	MaxAttempts    int           `yaml:"max_attempts"` // 0 = bounded by read_timeout only
}

type SensorConfig struct {
	Driver string       `yaml:"driver"`
	IIO    IIOConfig    `yaml:"iio"`
	Modbus ModbusConfig `yaml:"modbus"`
}

// IIOConfig points at the sysfs directory of the dht11 kernel driver.
type IIOConfig struct {
	Device string `yaml:"device"`
}

type ModbusConfig struct {
	Mode                string        `yaml:"mode"` // rtu | tcp
	Address             string        `yaml:"address"`
	BaudRate            int           `yaml:"baud_rate"`
	SlaveID             uint8         `yaml:"slave_id"`
	Timeout             time.Duration `yaml:"timeout"`
	TemperatureRegister uint16        `yaml:"temperature_register"`
	HumidityRegister    uint16        `yaml:"humidity_register"`
	Scale               float64       `yaml:"scale"`
}

// OutputsConfig maps the three relays to BCM line offsets.
type OutputsConfig struct {
	Driver    string `yaml:"driver"`
	Chip      string `yaml:"chip"`
	Plate1Pin int    `yaml:"plate1_pin"`
	Plate2Pin int    `yaml:"plate2_pin"`
	FanPin    int    `yaml:"fan_pin"`
	ActiveLow bool   `yaml:"active_low"`
}

type MQTTConfig struct {
	Broker           string `yaml:"broker"`
	ClientID         string `yaml:"client_id"`
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	TopicTemperature string `yaml:"topic_temperature"`
	TopicHumidity    string `yaml:"topic_humidity"`
	TopicDebug       string `yaml:"topic_debug"`
	TopicSystem      string `yaml:"topic_system"`
	BufferSize       int    `yaml:"buffer_size"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the status server
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the file at path, expands ${VAR} references and applies defaults.
// It does not validate; call Validate before use.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document over the defaults. Keys present in the
// document win, including explicit zero values, so Validate sees them.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

func (c *Config) setDefaults() {
	if c.Control.TargetTempF == 0 {
		c.Control.TargetTempF = 105
	}
	if c.Control.ToleranceF == 0 {
		c.Control.ToleranceF = 5
	}
	if c.Control.TwoPlateOffset == 0 {
		c.Control.TwoPlateOffset = 10
	}
	if c.Control.FanOnTempF == 0 {
		c.Control.FanOnTempF = 80
	}
	if c.Control.SamplePeriod == 0 {
		c.Control.SamplePeriod = 5 * time.Second
	}
	if c.Control.ReadTimeout == 0 {
		c.Control.ReadTimeout = 5 * time.Minute
	}
	if c.Control.RetryBackoff == 0 {
		c.Control.RetryBackoff = time.Second
	}

	if c.Sensor.Driver == "" {
		c.Sensor.Driver = SensorIIO
	}
	if c.Sensor.IIO.Device == "" {
		c.Sensor.IIO.Device = "/sys/bus/iio/devices/iio:device0"
	}
	if c.Sensor.Modbus.Mode == "" {
		c.Sensor.Modbus.Mode = "rtu"
	}
	if c.Sensor.Modbus.Address == "" {
		c.Sensor.Modbus.Address = "/dev/ttyUSB0"
	}
	if c.Sensor.Modbus.BaudRate == 0 {
		c.Sensor.Modbus.BaudRate = 9600
	}
	if c.Sensor.Modbus.SlaveID == 0 {
		c.Sensor.Modbus.SlaveID = 1
	}
	if c.Sensor.Modbus.Timeout == 0 {
		c.Sensor.Modbus.Timeout = time.Second
	}
	if c.Sensor.Modbus.TemperatureRegister == 0 {
		c.Sensor.Modbus.TemperatureRegister = 1
	}
	if c.Sensor.Modbus.HumidityRegister == 0 {
		c.Sensor.Modbus.HumidityRegister = 2
	}
	if c.Sensor.Modbus.Scale == 0 {
		c.Sensor.Modbus.Scale = 10
	}

	if c.Outputs.Driver == "" {
		c.Outputs.Driver = OutputGPIOCDev
	}
	if c.Outputs.Chip == "" {
		c.Outputs.Chip = "gpiochip0"
	}
	if c.Outputs.Plate1Pin == 0 {
		c.Outputs.Plate1Pin = 6 // relay J4
	}
	if c.Outputs.Plate2Pin == 0 {
		c.Outputs.Plate2Pin = 26 // relay J5
	}
	if c.Outputs.FanPin == 0 {
		c.Outputs.FanPin = 22 // relay J3
	}

	if c.MQTT.Broker == "" {
		c.MQTT.Broker = "tcp://127.0.0.1:1883"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "honey-warmer"
	}
	if c.MQTT.TopicTemperature == "" {
		c.MQTT.TopicTemperature = "/dht/temp"
	}
	if c.MQTT.TopicHumidity == "" {
		c.MQTT.TopicHumidity = "/dht/humidity"
	}
	if c.MQTT.TopicDebug == "" {
		c.MQTT.TopicDebug = "/debug"
	}
	if c.MQTT.TopicSystem == "" {
		c.MQTT.TopicSystem = "honey-warmer/system"
	}
	if c.MQTT.BufferSize == 0 {
		c.MQTT.BufferSize = 100
	}

	if c.Heartbeat == 0 {
		c.Heartbeat = 15 * time.Minute
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Gates returns the thresholds of the two-plate, one-plate and fan gates.
// Heater gates are inverted: they start active and switch off once the
// temperature rises to their rising threshold.
func (c *Config) Gates() (twoPlates, onePlate, fan logic.GateConfig) {
	cc := c.Control
	twoPlates = logic.GateConfig{
		Rising:   cc.TargetTempF - cc.TwoPlateOffset,
		Falling:  cc.TargetTempF - cc.TwoPlateOffset - cc.ToleranceF,
		Inverted: true,
	}
	onePlate = logic.GateConfig{
		Rising:   cc.TargetTempF,
		Falling:  cc.TargetTempF - cc.ToleranceF,
		Inverted: true,
	}
	fan = logic.GateConfig{
		Rising:  cc.FanOnTempF,
		Falling: cc.FanOnTempF - cc.ToleranceF,
	}
	return twoPlates, onePlate, fan
}
