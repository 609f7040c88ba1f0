package serial

import "time"

// DMXBaudRate is the line rate of a DMX512 link
const DMXBaudRate = 250000

// maxBaudRate bounds custom rates requested through BOTHER
const maxBaudRate = 4000000

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

func (p Parity) String() string {
	switch p {
	case ParityOdd:
		return "O"
	case ParityEven:
		return "E"
	default:
		return "N"
	}
}

// Config holds the configuration for a serial port
type Config struct {
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      Parity
	ReadTimeout time.Duration // VTIME, rounded to tenths of a second
	InitialRTS  *bool         // nil leaves RTS untouched
}

// Option is a functional option for configuring a serial port
type Option func(*Config) error

// DefaultConfig returns the DMX512 line settings: 250000 baud 8N2
func DefaultConfig() Config {
	return Config{
		BaudRate:    DMXBaudRate,
		DataBits:    8,
		StopBits:    2,
		Parity:      ParityNone,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// WithBaudRate sets the baud rate. Rates without a termios constant,
// such as 250000, are programmed as custom rates.
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if rate <= 0 || rate > maxBaudRate {
			return ErrInvalidBaudRate
		}
		c.BaudRate = rate
		return nil
	}
}

// WithDataBits sets the number of data bits (5, 6, 7, or 8)
func WithDataBits(bits int) Option {
	return func(c *Config) error {
		if bits < 5 || bits > 8 {
			return ErrInvalidConfig
		}
		c.DataBits = bits
		return nil
	}
}

// WithStopBits sets the number of stop bits (1 or 2)
func WithStopBits(bits int) Option {
	return func(c *Config) error {
		if bits != 1 && bits != 2 {
			return ErrInvalidConfig
		}
		c.StopBits = bits
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(c *Config) error {
		if parity < ParityNone || parity > ParityEven {
			return ErrInvalidConfig
		}
		c.Parity = parity
		return nil
	}
}

// WithReadTimeout sets how long a read waits for the first byte.
// The kernel counts in tenths of a second, so the timeout must be a
// multiple of 100ms between 0 and 25.5s. Zero makes reads non-blocking.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout < 0 || timeout > 25500*time.Millisecond {
			return ErrInvalidConfig
		}
		if timeout%(100*time.Millisecond) != 0 {
			return ErrInvalidConfig
		}
		c.ReadTimeout = timeout
		return nil
	}
}

// WithInitialRTS sets RTS when the port opens. RS-485 adapters wired
// for half duplex use RTS as driver enable.
func WithInitialRTS(state bool) Option {
	return func(c *Config) error {
		c.InitialRTS = &state
		return nil
	}
}

// readTimeoutTenths converts ReadTimeout to the VTIME unit
func (c Config) readTimeoutTenths() uint8 {
	return uint8(c.ReadTimeout / (100 * time.Millisecond))
}
