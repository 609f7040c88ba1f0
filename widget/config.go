package widget

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/allbin/go-dmx/serial"
)

// OpenFunc opens the serial line for a device
type OpenFunc func(path string, opts ...serial.Option) (Conn, error)

// Config holds the settings of a Device
type Config struct {
	Logger        zerolog.Logger
	DetectTimeout time.Duration
	// InputTimeout is how long a received frame stays current
	InputTimeout time.Duration
	Open         OpenFunc
}

// Option is a functional option for configuring a Device
type Option func(*Config) error

// DefaultConfig returns the settings used when no options are given
func DefaultConfig() Config {
	return Config{
		Logger:        zerolog.Nop(),
		DetectTimeout: time.Second,
		InputTimeout:  2500 * time.Millisecond,
		Open:          openSerial,
	}
}

func openSerial(path string, opts ...serial.Option) (Conn, error) {
	return serial.Open(path, opts...)
}

// WithLogger sets the device logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

// WithDetectTimeout bounds how long Start waits for the widget to answer
func WithDetectTimeout(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return ErrInvalidConfig
		}
		c.DetectTimeout = d
		return nil
	}
}

// WithInputTimeout sets how long a received frame is reported by the
// input port before it counts as stale
func WithInputTimeout(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return ErrInvalidConfig
		}
		c.InputTimeout = d
		return nil
	}
}

// WithOpenFunc replaces the function used to open the serial line
func WithOpenFunc(open OpenFunc) Option {
	return func(c *Config) error {
		if open == nil {
			return ErrInvalidConfig
		}
		c.Open = open
		return nil
	}
}
