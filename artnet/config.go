package artnet

import (
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
)

// Config holds the settings of a Node
type Config struct {
	// BindAddress is the local UDP address to listen on
	BindAddress string
	// Broadcast is where output ports send ArtDmx
	Broadcast string
	Net       uint8
	SubNet    uint8

	// StaleTimeout is how long a received frame stays current
	StaleTimeout time.Duration
	Logger       zerolog.Logger
}

// Option is a functional option for configuring a Node
type Option func(*Config) error

// DefaultConfig listens on every interface and broadcasts to the local
// network, net 0, subnet 0
func DefaultConfig() Config {
	return Config{
		BindAddress:  fmt.Sprintf("0.0.0.0:%d", UDPPort),
		Broadcast:    fmt.Sprintf("255.255.255.255:%d", UDPPort),
		StaleTimeout: 2500 * time.Millisecond,
		Logger:       zerolog.Nop(),
	}
}

// WithBindAddress sets the local listen address, host:port
func WithBindAddress(addr string) Option {
	return func(c *Config) error {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("bind address %q: %w", addr, ErrInvalidConfig)
		}
		c.BindAddress = addr
		return nil
	}
}

// WithBroadcast sets the destination for output frames, host:port. A
// unicast address sends to a single receiver.
func WithBroadcast(addr string) Option {
	return func(c *Config) error {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("broadcast address %q: %w", addr, ErrInvalidConfig)
		}
		c.Broadcast = addr
		return nil
	}
}

// WithNet sets the 7 bit net of every port
func WithNet(n uint8) Option {
	return func(c *Config) error {
		if n > 0x7F {
			return fmt.Errorf("net %d: %w", n, ErrInvalidConfig)
		}
		c.Net = n
		return nil
	}
}

// WithSubNet sets the 4 bit subnet of every port
func WithSubNet(n uint8) Option {
	return func(c *Config) error {
		if n > 0x0F {
			return fmt.Errorf("subnet %d: %w", n, ErrInvalidConfig)
		}
		c.SubNet = n
		return nil
	}
}

// WithStaleTimeout sets how long input ports keep reporting a frame
// after the sender goes quiet
func WithStaleTimeout(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return ErrInvalidConfig
		}
		c.StaleTimeout = d
		return nil
	}
}

// WithLogger sets the node logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}
