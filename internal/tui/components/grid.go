package components

import (
	"fmt"
	"strconv"

	"github.com/allbin/go-dmx"
	"github.com/allbin/go-dmx/internal/tui/colors"
	"github.com/allbin/go-dmx/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
)

const (
	// GridColumns is the number of channels shown per row
	GridColumns = 16
	// GridRows covers a full universe
	GridRows = dmx.MaxChannels / GridColumns

	rowLabelKey   = "row"
	rowLabelWidth = 7
)

// ChannelGrid shows every channel of a universe, numbered from 1
type ChannelGrid struct {
	table     table.Model
	formatter *ValueFormatter
	values    [dmx.MaxChannels]byte
	size      int
}

func NewChannelGrid() *ChannelGrid {
	g := &ChannelGrid{
		formatter: NewValueFormatter(false),
	}
	g.rebuild()
	return g
}

// SetFrame copies the frame into the grid. Channels past the frame's
// size are shown as blank cells.
func (g *ChannelGrid) SetFrame(frame *dmx.Buffer) {
	g.size = 0
	if frame != nil {
		g.size = frame.Get(g.values[:])
	}
	clear(g.values[g.size:])
	g.table = g.table.WithRows(g.rows())
}

// Size returns how many channels the last frame carried
func (g *ChannelGrid) Size() int {
	return g.size
}

func (g *ChannelGrid) ToggleHex() {
	g.formatter.ToggleHex()
	g.rebuild()
}

func (g *ChannelGrid) GetDisplayMode() DisplayMode {
	return g.formatter.GetDisplayMode()
}

func (g *ChannelGrid) ModeString() string {
	return g.formatter.ModeString()
}

func (g *ChannelGrid) View() string {
	return g.table.View()
}

func (g *ChannelGrid) rebuild() {
	g.table = table.New(g.columns()).
		WithRows(g.rows()).
		HeaderStyle(styles.GridHeaderStyle).
		WithBaseStyle(styles.GridBaseStyle).
		BorderRounded()
}

func (g *ChannelGrid) columns() []table.Column {
	width := g.formatter.CellWidth()
	columns := make([]table.Column, 0, GridColumns+1)
	columns = append(columns, table.NewColumn(rowLabelKey, "Ch", rowLabelWidth))
	for i := 0; i < GridColumns; i++ {
		columns = append(columns, table.NewColumn(columnKey(i), fmt.Sprintf("%X", i), width))
	}
	return columns
}

func (g *ChannelGrid) rows() []table.Row {
	rows := make([]table.Row, GridRows)
	for r := 0; r < GridRows; r++ {
		first := r * GridColumns
		data := table.RowData{
			rowLabelKey: table.NewStyledCell(
				fmt.Sprintf("%d-%d", first+1, first+GridColumns),
				styles.RowLabelStyle,
			),
		}
		for c := 0; c < GridColumns; c++ {
			channel := first + c
			if channel >= g.size {
				data[columnKey(c)] = ""
				continue
			}
			value := g.values[channel]
			data[columnKey(c)] = table.NewStyledCell(
				g.formatter.Format(value),
				lipgloss.NewStyle().Foreground(colors.Level(value)),
			)
		}
		rows[r] = table.NewRow(data)
	}
	return rows
}

func columnKey(i int) string {
	return "c" + strconv.Itoa(i)
}
