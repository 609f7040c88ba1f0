package dmx

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type source struct {
	frame   *Buffer
	updated uint64
}

// Universe merges named sources into one frame and drives its ports
type Universe struct {
	mu sync.Mutex

	id     int
	config UniverseConfig
	log    zerolog.Logger

	sources  map[string]*source
	seq      uint64
	blackout bool

	inputs  []InputPort
	outputs []OutputPort

	// last frame sent to the outputs
	last Buffer
}

// NewUniverse creates a universe with the given id (0 to MaxUniverse)
func NewUniverse(id int, opts ...UniverseOption) (*Universe, error) {
	if id < 0 || id > MaxUniverse {
		return nil, fmt.Errorf("%d: %w", id, ErrInvalidUniverse)
	}

	config := DefaultUniverseConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}

	return &Universe{
		id:      id,
		config:  config,
		log:     config.Logger.With().Int("universe", id).Logger(),
		sources: make(map[string]*source),
	}, nil
}

// ID returns the universe id
func (u *Universe) ID() int {
	return u.id
}

// Name returns the display name, or "Universe N" when none was set
func (u *Universe) Name() string {
	if u.config.Name != "" {
		return u.config.Name
	}
	return fmt.Sprintf("Universe %d", u.id)
}

// MergeMode returns how sources are combined
func (u *Universe) MergeMode() MergeMode {
	return u.config.MergeMode
}

// SetSource stores frame under name, replacing any earlier frame.
// The universe keeps a Copy, so the caller may go on using frame.
func (u *Universe) SetSource(name string, frame *Buffer) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.setSourceLocked(name, frame)
}

func (u *Universe) setSourceLocked(name string, frame *Buffer) {
	u.seq++
	if s, ok := u.sources[name]; ok {
		s.frame.Assign(frame)
		s.updated = u.seq
		return
	}
	var c *Buffer
	if frame != nil {
		c = frame.Copy()
	} else {
		c = NewBuffer()
	}
	u.sources[name] = &source{frame: c, updated: u.seq}
}

// RemoveSource drops a source
func (u *Universe) RemoveSource(name string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	s, ok := u.sources[name]
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrSourceNotFound)
	}
	s.frame.Release()
	delete(u.sources, name)
	return nil
}

// Source returns a copy of one source's frame
func (u *Universe) Source(name string) (*Buffer, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	s, ok := u.sources[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrSourceNotFound)
	}
	return s.frame.Copy(), nil
}

// Sources returns the source names in sorted order
func (u *Universe) Sources() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.sourceNamesLocked()
}

func (u *Universe) sourceNamesLocked() []string {
	names := make([]string, 0, len(u.sources))
	for name := range u.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Blackout forces the universe to all zeros until ClearBlackout,
// whatever the sources hold
func (u *Universe) Blackout() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.blackout = true
}

// ClearBlackout returns to the merged sources
func (u *Universe) ClearBlackout() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.blackout = false
}

// InBlackout reports whether Blackout is in effect
func (u *Universe) InBlackout() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.blackout
}

// Frame returns the merged frame. The caller owns the result.
func (u *Universe) Frame() *Buffer {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.mergeLocked()
}

func (u *Universe) mergeLocked() *Buffer {
	merged := NewBuffer()
	if u.blackout {
		merged.SetRangeToValue(0, 0, MaxChannels)
		return merged
	}

	switch u.config.MergeMode {
	case MergeLTP:
		var latest *source
		for _, s := range u.sources {
			if latest == nil || s.updated > latest.updated {
				latest = s
			}
		}
		if latest != nil {
			merged.Assign(latest.frame)
		}
	default:
		for _, s := range u.sources {
			if merged.Size() == 0 {
				merged.Assign(s.frame)
				continue
			}
			merged.HTPMerge(s.frame)
		}
	}
	return merged
}

// AddInput registers a port read on every Refresh. Its frames appear as
// a source named after the port's Description.
func (u *Universe) AddInput(port InputPort) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.inputs = append(u.inputs, port)
}

// AddOutput registers a port that receives the merged frame
func (u *Universe) AddOutput(port OutputPort) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.outputs = append(u.outputs, port)
}

// Refresh reads the input ports, merges, and writes the result to the
// output ports. Outputs are skipped when the frame has not changed since
// the last successful refresh, unless the universe was built with
// WithRefreshAll. Errors from individual outputs are joined.
func (u *Universe) Refresh(ctx context.Context) error {
	u.mu.Lock()
	for _, in := range u.inputs {
		frame := in.ReadDMX()
		name := in.Description()
		if frame == nil || frame.Size() == 0 {
			// stale inputs must not hold channels up
			if s, ok := u.sources[name]; ok {
				s.frame.Release()
				delete(u.sources, name)
			}
			continue
		}
		u.setSourceLocked(name, frame)
		frame.Release()
	}

	merged := u.mergeLocked()
	changed := !merged.Equal(&u.last)
	if !changed && !u.config.RefreshAll {
		u.mu.Unlock()
		merged.Release()
		return nil
	}
	u.last.Assign(merged)
	outputs := append([]OutputPort(nil), u.outputs...)
	u.mu.Unlock()
	defer merged.Release()

	var errs []error
	for _, out := range outputs {
		if err := out.WriteDMX(ctx, merged); err != nil {
			u.log.Warn().Err(err).Str("port", out.Description()).Msg("write failed")
			errs = append(errs, fmt.Errorf("%s: %w", out.Description(), err))
		}
	}

	if len(errs) > 0 {
		// try again on the next refresh even if nothing changes
		u.mu.Lock()
		u.last.Reset()
		u.mu.Unlock()
		return errors.Join(errs...)
	}

	u.log.Debug().Int("channels", merged.Size()).Int("outputs", len(outputs)).Msg("frame sent")
	return nil
}

// Run calls Refresh every interval until ctx is done
func (u *Universe) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := u.Refresh(ctx); err != nil && ctx.Err() == nil {
				u.log.Debug().Err(err).Msg("refresh")
			}
		}
	}
}
