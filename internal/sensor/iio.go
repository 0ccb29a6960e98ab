package sensor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sweeney/honey-warmer/internal/logic"
)

// Attribute files exposed by the Linux dht11 IIO driver, in milli-units.
const (
	iioTemperatureFile = "in_temp_input"
	iioHumidityFile    = "in_humidityrelative_input"
)

// IIOSensor reads a DHT11 through the kernel's dht11 IIO driver
// (dtoverlay=dht11,gpiopin=19). The kernel performs the bit timing; each
// file read triggers a fresh conversion and fails with EIO on a checksum
// or timing miss.
type IIOSensor struct {
	dir string
}

// NewIIOSensor returns a sensor bound to an IIO device directory such as
// /sys/bus/iio/devices/iio:device0.
func NewIIOSensor(dir string) (*IIOSensor, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("iio device: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("iio device %s: not a directory", dir)
	}
	return &IIOSensor{dir: dir}, nil
}

// Read performs one acquisition attempt.
func (s *IIOSensor) Read() (logic.Reading, error) {
	temp, err := s.readMilli(iioTemperatureFile)
	if err != nil {
		return logic.Reading{}, err
	}
	hum, err := s.readMilli(iioHumidityFile)
	if err != nil {
		return logic.Reading{}, err
	}
	return logic.Reading{
		TemperatureC: temp,
		Humidity:     hum,
		Valid:        true,
	}, nil
}

func (s *IIOSensor) readMilli(name string) (float64, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", name, err)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return float64(v) / 1000, nil
}

// Close is a no-op; the kernel owns the device.
func (s *IIOSensor) Close() error {
	return nil
}
