package components

import (
	"fmt"
	"strconv"
)

type DisplayMode struct {
	ShowHex bool
}

// ValueFormatter renders channel levels as decimal or hex text
type ValueFormatter struct {
	mode DisplayMode
}

func NewValueFormatter(showHex bool) *ValueFormatter {
	return &ValueFormatter{mode: DisplayMode{ShowHex: showHex}}
}

func (vf *ValueFormatter) GetDisplayMode() DisplayMode {
	return vf.mode
}

func (vf *ValueFormatter) ToggleHex() {
	vf.mode.ShowHex = !vf.mode.ShowHex
}

// Format renders one level. Hex values are two upper case digits.
func (vf *ValueFormatter) Format(value byte) string {
	if vf.mode.ShowHex {
		return fmt.Sprintf("%02X", value)
	}
	return strconv.Itoa(int(value))
}

// CellWidth is the column width needed for any formatted level
func (vf *ValueFormatter) CellWidth() int {
	if vf.mode.ShowHex {
		return 2
	}
	return 3
}

// ModeString names the display mode for the status bar
func (vf *ValueFormatter) ModeString() string {
	if vf.mode.ShowHex {
		return "HEX"
	}
	return "DEC"
}
