package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

const (
	// MIDIBaud is the MIDI DIN current loop rate.
	MIDIBaud = 31250
	// tarm/serial only accepts standard termios rates. UARTs wired for MIDI
	// are usually reclocked so that this rate runs at MIDIBaud.
	reclockedBaud = 38400
)

var ErrNoConfig = errors.New("serial: config cannot be nil")

// Port is a MIDI input transport.
type Port interface {
	io.ReadWriteCloser

	Flush() error
}

type Config struct {
	// Device path (e.g., "/dev/ttyAMA0", "COM3")
	Device string

	// Line rate. MIDIBaud is opened as the reclocked termios rate.
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        MIDIBaud,
		ReadTimeout: 100,
	}
}

func (c *Config) serialConfig() *serial.Config {
	baud := c.Baud
	if baud == MIDIBaud {
		baud = reclockedBaud
	}
	return &serial.Config{
		Name:        c.Device,
		Baud:        baud,
		ReadTimeout: time.Duration(c.ReadTimeout) * time.Millisecond,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	}
}

type nativePort struct {
	port *serial.Port
}

func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, ErrNoConfig
	}

	port, err := serial.OpenPort(cfg.serialConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	return &nativePort{port: port}, nil
}

func (p *nativePort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

func (p *nativePort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

func (p *nativePort) Close() error {
	return p.port.Close()
}

// Flush discards unread input.
func (p *nativePort) Flush() error {
	return p.port.Flush()
}
