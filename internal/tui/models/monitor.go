package models

import (
	"context"
	"time"

	"github.com/allbin/go-dmx"
	"github.com/allbin/go-dmx/internal/tui/components"
	"github.com/allbin/go-dmx/internal/tui/keys"
	"github.com/allbin/go-dmx/internal/tui/styles"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DefaultRefreshInterval matches a full-size DMX frame rate
const DefaultRefreshInterval = 25 * time.Millisecond

// rateWindow is how often the frame rate shown is recomputed
const rateWindow = time.Second

type tickMsg time.Time

// blackoutMsg is a refresh made outside the tick chain
type blackoutMsg FrameMsg

// FrameMsg carries the result of one universe refresh
type FrameMsg struct {
	Frame *dmx.Buffer
	Err   error
}

// Monitor is a Bubble Tea model that refreshes a universe on a timer and
// shows its merged frame
type Monitor struct {
	universe *dmx.Universe
	interval time.Duration
	ctx      context.Context

	grid      *components.ChannelGrid
	statusBar *components.StatusBar
	help      help.Model
	keys      keys.MonitorKeys

	last   *dmx.Buffer
	frozen bool
	err    error

	changes     int
	windowStart time.Time
	rate        float64
	now         func() time.Time
}

// NewMonitor returns a monitor for u. source names what feeds the
// universe and is shown in the status bar.
func NewMonitor(ctx context.Context, u *dmx.Universe, source string, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	m := &Monitor{
		universe:  u,
		interval:  interval,
		ctx:       ctx,
		grid:      components.NewChannelGrid(),
		statusBar: components.NewStatusBar(u.Name(), source),
		help:      help.New(),
		keys:      keys.NewMonitorKeys(),
		last:      dmx.NewBuffer(),
		now:       time.Now,
	}
	m.windowStart = m.now()
	m.updateFrameInfo()
	return m
}

func (m *Monitor) Init() tea.Cmd {
	return m.refresh
}

func (m *Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.statusBar.SetWidth(msg.Width)
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Blackout):
			if m.universe.InBlackout() {
				m.universe.ClearBlackout()
			} else {
				m.universe.Blackout()
			}
			return m, m.refreshNow
		case key.Matches(msg, m.keys.ToggleHex):
			m.grid.ToggleHex()
			m.updateFrameInfo()
		case key.Matches(msg, m.keys.Freeze):
			m.frozen = !m.frozen
			if !m.frozen {
				m.grid.SetFrame(m.last)
				m.updateFrameInfo()
			}
		}
		return m, nil

	case tickMsg:
		return m, m.refresh

	case FrameMsg:
		m.applyFrame(msg)
		return m, m.tick()

	case blackoutMsg:
		m.applyFrame(FrameMsg(msg))
		return m, nil
	}

	return m, nil
}

func (m *Monitor) View() string {
	timestamp := m.now().Format("15:04:05")
	if m.frozen {
		timestamp = "FROZEN " + timestamp
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.statusBar.Header(),
		m.grid.View(),
		m.statusBar.View(timestamp),
		m.help.View(m.keys),
	)
}

// Frame returns a copy of the last frame received
func (m *Monitor) Frame() *dmx.Buffer {
	return m.last.Copy()
}

// Err returns the error of the last refresh, if any
func (m *Monitor) Err() error {
	return m.err
}

func (m *Monitor) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refresh runs one universe refresh off the UI goroutine
func (m *Monitor) refresh() tea.Msg {
	err := m.universe.Refresh(m.ctx)
	return FrameMsg{Frame: m.universe.Frame(), Err: err}
}

// refreshNow refreshes immediately without scheduling another tick
func (m *Monitor) refreshNow() tea.Msg {
	err := m.universe.Refresh(m.ctx)
	return blackoutMsg{Frame: m.universe.Frame(), Err: err}
}

func (m *Monitor) applyFrame(msg FrameMsg) {
	defer msg.Frame.Release()

	m.err = msg.Err
	switch {
	case msg.Err != nil:
		m.statusBar.SetStatus(styles.StatusError, msg.Err)
	case m.universe.InBlackout():
		m.statusBar.SetStatus(styles.StatusBlackout, nil)
	case msg.Frame.Size() > 0:
		m.statusBar.SetStatus(styles.StatusLive, nil)
	default:
		m.statusBar.SetStatus(styles.StatusIdle, nil)
	}

	if !m.last.Equal(msg.Frame) {
		m.changes++
		m.last.Assign(msg.Frame)
		if !m.frozen {
			m.grid.SetFrame(m.last)
		}
	}

	now := m.now()
	if elapsed := now.Sub(m.windowStart); elapsed >= rateWindow {
		m.rate = float64(m.changes) / elapsed.Seconds()
		m.changes = 0
		m.windowStart = now
	}
	m.updateFrameInfo()
}

func (m *Monitor) updateFrameInfo() {
	m.statusBar.SetFrameInfo(components.FrameInfo{
		Channels:  m.grid.Size(),
		FrameRate: m.rate,
		Mode:      m.grid.ModeString(),
	})
}
