package components

import (
	"fmt"

	"github.com/allbin/go-dmx/internal/tui/colors"
	"github.com/allbin/go-dmx/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
)

// FrameInfo is what the status bar knows about the latest frame
type FrameInfo struct {
	Channels  int
	FrameRate float64
	Mode      string
}

type StatusBar struct {
	title  string
	source string
	status styles.StatusType
	err    error
	width  int
	info   FrameInfo
}

func NewStatusBar(title, source string) *StatusBar {
	return &StatusBar{
		title:  title,
		source: source,
		status: styles.StatusIdle,
	}
}

func (sb *StatusBar) SetStatus(status styles.StatusType, err error) {
	sb.status = status
	sb.err = err
}

func (sb *StatusBar) Status() styles.StatusType {
	return sb.status
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetFrameInfo(info FrameInfo) {
	sb.info = info
}

// Header renders the title line shown above the grid
func (sb *StatusBar) Header() string {
	title := styles.TitleStyle.Render(sb.title)
	source := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Faint(true).
		Render(" | " + sb.source)
	return lipgloss.JoinHorizontal(lipgloss.Left, title, source)
}

// View renders the status line: status and source on the left, frame
// details and timestamp on the right
func (sb *StatusBar) View(timestamp string) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	modeColor := colors.Yellow
	switch sb.status {
	case styles.StatusLive:
		modeColor = colors.Green
	case styles.StatusBlackout, styles.StatusError:
		modeColor = colors.Red
	}
	mode := lipgloss.NewStyle().
		Foreground(colors.Base).
		Background(modeColor).
		Bold(true).
		Padding(0, 1).
		Render(sb.status.String())

	source := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(sb.source)

	var errText string
	if sb.err != nil {
		errText = styles.ErrorStyle.Padding(0, 1).Render(sb.err.Error())
	}

	details := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1).
		Render(fmt.Sprintf("⚡ %d ch %s %.1f fps", sb.info.Channels, sb.info.Mode, sb.info.FrameRate))

	clock := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(timestamp)

	divider := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1).
		Render("│")

	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, mode, source, errText, divider)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, details, divider, clock)

	spacerWidth := terminalWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	return lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(terminalWidth).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
