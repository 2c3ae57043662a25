// Package serialport opens 8N1 serial ports through one of the supported
// drivers and hides their differences behind Port.
package serialport

import (
	"fmt"
	"io"
	"time"
)

// Port is an open serial connection. Read returns (0, nil) when nothing
// arrived within the configured read timeout.
type Port interface {
	io.ReadWriteCloser
}

type Driver string

const (
	DriverBugst Driver = "bugst"
	DriverTarm  Driver = "tarm"
)

type Config struct {
	// Device path (e.g. "/dev/ttyUSB0", "COM3")
	Device string

	Baud int

	// ReadTimeout bounds a single Read; it doubles as the receive poll interval.
	ReadTimeout time.Duration

	Driver Driver
}

// DefaultConfig matches the peripherals' firmware: 115200 baud, short polls.
func DefaultConfig(device string) Config {
	return Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 50 * time.Millisecond,
		Driver:      DriverBugst,
	}
}

// Opener opens a port for a configuration. Tests substitute in-memory ports.
type Opener func(cfg Config) (Port, error)

// Open opens cfg.Device with the configured driver.
func Open(cfg Config) (Port, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("no device configured")
	}

	switch cfg.Driver {
	case DriverBugst, "":
		return openBugst(cfg)
	case DriverTarm:
		return openTarm(cfg)
	default:
		return nil, fmt.Errorf("unknown serial driver %q", cfg.Driver)
	}
}
