package dmx

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// MaxUniverse is the highest universe id, the 15 bit Art-Net port address space
const MaxUniverse = 32767

// MergeMode selects how a Universe combines its sources
type MergeMode int

const (
	// MergeHTP keeps the highest value of every channel across sources
	MergeHTP MergeMode = iota
	// MergeLTP uses the source that was updated last
	MergeLTP
)

func (m MergeMode) String() string {
	switch m {
	case MergeHTP:
		return "htp"
	case MergeLTP:
		return "ltp"
	default:
		return fmt.Sprintf("MergeMode(%d)", int(m))
	}
}

// ParseMergeMode accepts "htp" or "ltp", in any case
func ParseMergeMode(s string) (MergeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "htp", "":
		return MergeHTP, nil
	case "ltp":
		return MergeLTP, nil
	default:
		return 0, fmt.Errorf("%q: %w", s, ErrInvalidMergeMode)
	}
}

// UniverseConfig holds the settings of a Universe
type UniverseConfig struct {
	Name      string
	MergeMode MergeMode
	Logger    zerolog.Logger

	// RefreshAll writes every refresh to the outputs, not only changed frames
	RefreshAll bool
}

// UniverseOption is a functional option for configuring a Universe
type UniverseOption func(*UniverseConfig) error

// DefaultUniverseConfig returns an unnamed HTP universe that does not log
func DefaultUniverseConfig() UniverseConfig {
	return UniverseConfig{
		MergeMode: MergeHTP,
		Logger:    zerolog.Nop(),
	}
}

// WithName sets a display name
func WithName(name string) UniverseOption {
	return func(c *UniverseConfig) error {
		c.Name = name
		return nil
	}
}

// WithMergeMode sets how sources are combined
func WithMergeMode(mode MergeMode) UniverseOption {
	return func(c *UniverseConfig) error {
		if mode != MergeHTP && mode != MergeLTP {
			return ErrInvalidMergeMode
		}
		c.MergeMode = mode
		return nil
	}
}

// WithLogger sets the logger used for refresh diagnostics
func WithLogger(logger zerolog.Logger) UniverseOption {
	return func(c *UniverseConfig) error {
		c.Logger = logger
		return nil
	}
}

// WithRefreshAll makes Refresh write unchanged frames too. Some receivers
// drop to blackout if they do not see a frame for a while.
func WithRefreshAll(on bool) UniverseOption {
	return func(c *UniverseConfig) error {
		c.RefreshAll = on
		return nil
	}
}
