package styles

import (
	"github.com/allbin/go-dmx/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Header styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve).
			Background(colors.Surface0).
			Padding(0, 1)

	// Status styles
	StatusLiveStyle = lipgloss.NewStyle().
			Foreground(colors.Green).
			Bold(true)

	StatusIdleStyle = lipgloss.NewStyle().
			Foreground(colors.Yellow).
			Bold(true)

	StatusBlackoutStyle = lipgloss.NewStyle().
				Foreground(colors.Red).
				Bold(true)

	// Grid styles
	GridHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Subtext1)

	GridBaseStyle = lipgloss.NewStyle().
			BorderForeground(colors.Surface2).
			Align(lipgloss.Right)

	RowLabelStyle = lipgloss.NewStyle().
			Foreground(colors.Subtext0)

	// Error styles
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Red)
)

type StatusType int

const (
	StatusIdle StatusType = iota
	StatusLive
	StatusBlackout
	StatusError
)

func (s StatusType) String() string {
	switch s {
	case StatusLive:
		return "LIVE"
	case StatusBlackout:
		return "BLACKOUT"
	case StatusError:
		return "ERROR"
	default:
		return "IDLE"
	}
}

func GetStatusStyle(status StatusType) lipgloss.Style {
	switch status {
	case StatusLive:
		return StatusLiveStyle
	case StatusBlackout, StatusError:
		return StatusBlackoutStyle
	default:
		return StatusIdleStyle
	}
}
