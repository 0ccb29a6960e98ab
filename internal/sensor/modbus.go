package sensor

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/goburrow/modbus"

	"github.com/sweeney/honey-warmer/internal/logic"
)

// ModbusConfig describes a temperature/humidity transmitter (SHT20 style
// XY-MD02 and similar) that exposes scaled values in input registers.
type ModbusConfig struct {
	Mode                string // "rtu" or "tcp"
	Address             string // serial device or host:port
	BaudRate            int
	SlaveID             uint8
	Timeout             time.Duration
	TemperatureRegister uint16
	HumidityRegister    uint16
	Scale               float64 // raw register value / Scale = engineering unit
}

// registerReader is the subset of modbus.Client used here.
type registerReader interface {
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
}

type closer interface {
	Close() error
}

// ModbusSensor polls a Modbus temperature/humidity transmitter.
type ModbusSensor struct {
	client  registerReader
	handler closer
	cfg     ModbusConfig
}

// NewModbusSensor connects to the transmitter.
func NewModbusSensor(cfg ModbusConfig) (*ModbusSensor, error) {
	var (
		handler modbus.ClientHandler
		conn    interface {
			Connect() error
			Close() error
		}
	)

	switch cfg.Mode {
	case "rtu":
		h := modbus.NewRTUClientHandler(cfg.Address)
		h.BaudRate = cfg.BaudRate
		h.DataBits = 8
		h.Parity = "N"
		h.StopBits = 1
		h.SlaveId = cfg.SlaveID
		h.Timeout = cfg.Timeout
		handler, conn = h, h
	case "tcp":
		h := modbus.NewTCPClientHandler(cfg.Address)
		h.SlaveId = cfg.SlaveID
		h.Timeout = cfg.Timeout
		handler, conn = h, h
	default:
		return nil, fmt.Errorf("modbus sensor: unknown mode %q", cfg.Mode)
	}

	if err := conn.Connect(); err != nil {
		return nil, fmt.Errorf("modbus sensor: connect %s: %w", cfg.Address, err)
	}

	return &ModbusSensor{
		client:  modbus.NewClient(handler),
		handler: conn,
		cfg:     cfg,
	}, nil
}

// Read performs one acquisition attempt.
func (s *ModbusSensor) Read() (logic.Reading, error) {
	temp, err := s.readRegister(s.cfg.TemperatureRegister)
	if err != nil {
		return logic.Reading{}, fmt.Errorf("read temperature register %d: %w", s.cfg.TemperatureRegister, err)
	}
	hum, err := s.readRegister(s.cfg.HumidityRegister)
	if err != nil {
		return logic.Reading{}, fmt.Errorf("read humidity register %d: %w", s.cfg.HumidityRegister, err)
	}
	return logic.Reading{
		TemperatureC: temp,
		Humidity:     hum,
		Valid:        true,
	}, nil
}

func (s *ModbusSensor) readRegister(addr uint16) (float64, error) {
	b, err := s.client.ReadInputRegisters(addr, 1)
	if err != nil {
		return 0, err
	}
	if len(b) < 2 {
		return 0, fmt.Errorf("short response: %d bytes", len(b))
	}
	// Registers are signed so sub-zero temperatures decode correctly.
	raw := int16(binary.BigEndian.Uint16(b[:2]))
	return float64(raw) / s.cfg.Scale, nil
}

// Close closes the serial port or TCP connection.
func (s *ModbusSensor) Close() error {
	if s.handler == nil {
		return nil
	}
	return s.handler.Close()
}
