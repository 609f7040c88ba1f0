// Package config decodes the daemon configuration from viper.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/allbin/go-dmx"
)

var ErrInvalid = errors.New("invalid configuration")

// Port types
const (
	PortArtNet  = "artnet"
	PortUSBPro  = "usbpro"
	PortOpenDMX = "opendmx"
)

type ArtNet struct {
	Enabled   bool   `mapstructure:"enabled"`
	Bind      string `mapstructure:"bind"`
	Broadcast string `mapstructure:"broadcast"`
	Net       int    `mapstructure:"net"`
	SubNet    int    `mapstructure:"subnet"`
}

// Port is one input or output of a universe. Art-Net ports use Index
// (0-3 on the node), widget ports use Path.
type Port struct {
	Type  string `mapstructure:"type"`
	Path  string `mapstructure:"path"`
	Index int    `mapstructure:"index"`
}

type Universe struct {
	ID         int    `mapstructure:"id"`
	Name       string `mapstructure:"name"`
	Merge      string `mapstructure:"merge"`
	RefreshAll bool   `mapstructure:"refresh_all"`
	Inputs     []Port `mapstructure:"inputs"`
	Outputs    []Port `mapstructure:"outputs"`
}

type Config struct {
	LogLevel    string        `mapstructure:"log_level"`
	HTTPAddress string        `mapstructure:"http_address"`
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
	SceneFile   string        `mapstructure:"scene_file"`
	ArtNet      ArtNet        `mapstructure:"artnet"`
	Universes   []Universe    `mapstructure:"universes"`
}

// SetDefaults registers the default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("http_address", ":8080")
	v.SetDefault("refresh_rate", 25*time.Millisecond)
	v.SetDefault("scene_file", "scenes.yaml")
	v.SetDefault("artnet.enabled", false)
	v.SetDefault("artnet.bind", "0.0.0.0:6454")
	v.SetDefault("artnet.broadcast", "255.255.255.255:6454")
}

// Load decodes and validates the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks every field and names the first offending one
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level %q: %w", c.LogLevel, ErrInvalid)
	}
	if c.RefreshRate < time.Millisecond {
		return fmt.Errorf("refresh_rate %v: %w", c.RefreshRate, ErrInvalid)
	}

	if c.ArtNet.Enabled {
		for field, addr := range map[string]string{"artnet.bind": c.ArtNet.Bind, "artnet.broadcast": c.ArtNet.Broadcast} {
			if _, _, err := net.SplitHostPort(addr); err != nil {
				return fmt.Errorf("%s %q: %w", field, addr, ErrInvalid)
			}
		}
		if c.ArtNet.Net < 0 || c.ArtNet.Net > 0x7F {
			return fmt.Errorf("artnet.net %d: %w", c.ArtNet.Net, ErrInvalid)
		}
		if c.ArtNet.SubNet < 0 || c.ArtNet.SubNet > 0x0F {
			return fmt.Errorf("artnet.subnet %d: %w", c.ArtNet.SubNet, ErrInvalid)
		}
	}

	seen := make(map[int]bool)
	for i, u := range c.Universes {
		field := fmt.Sprintf("universes[%d]", i)
		if u.ID < 0 || u.ID > dmx.MaxUniverse {
			return fmt.Errorf("%s.id %d: %w", field, u.ID, ErrInvalid)
		}
		if seen[u.ID] {
			return fmt.Errorf("%s.id %d is used twice: %w", field, u.ID, ErrInvalid)
		}
		seen[u.ID] = true

		if _, err := dmx.ParseMergeMode(u.Merge); err != nil {
			return fmt.Errorf("%s.merge: %w", field, err)
		}
		for j, p := range u.Inputs {
			if err := c.validatePort(p, true); err != nil {
				return fmt.Errorf("%s.inputs[%d]: %w", field, j, err)
			}
		}
		for j, p := range u.Outputs {
			if err := c.validatePort(p, false); err != nil {
				return fmt.Errorf("%s.outputs[%d]: %w", field, j, err)
			}
		}
	}
	return nil
}

func (c *Config) validatePort(p Port, input bool) error {
	switch strings.ToLower(p.Type) {
	case PortArtNet:
		if !c.ArtNet.Enabled {
			return fmt.Errorf("artnet port with artnet disabled: %w", ErrInvalid)
		}
		if p.Index < 0 || p.Index > 3 {
			return fmt.Errorf("index %d: %w", p.Index, ErrInvalid)
		}
	case PortUSBPro:
		if p.Path == "" {
			return fmt.Errorf("path is required: %w", ErrInvalid)
		}
	case PortOpenDMX:
		if input {
			return fmt.Errorf("opendmx cannot receive: %w", ErrInvalid)
		}
		if p.Path == "" {
			return fmt.Errorf("path is required: %w", ErrInvalid)
		}
	default:
		return fmt.Errorf("type %q: %w", p.Type, ErrInvalid)
	}
	return nil
}
