package serial

import (
	"strings"

	"golang.org/x/sys/unix"
)

// ModemSignals represents modem control signal states
type ModemSignals struct {
	CTS bool // Clear To Send
	DSR bool // Data Set Ready
	RI  bool // Ring Indicator
	DCD bool // Data Carrier Detect
	RTS bool // Request To Send
	DTR bool // Data Terminal Ready
}

func modemSignalsFromStatus(status int) ModemSignals {
	return ModemSignals{
		CTS: status&unix.TIOCM_CTS != 0,
		DSR: status&unix.TIOCM_DSR != 0,
		RI:  status&unix.TIOCM_RI != 0,
		DCD: status&unix.TIOCM_CAR != 0,
		RTS: status&unix.TIOCM_RTS != 0,
		DTR: status&unix.TIOCM_DTR != 0,
	}
}

// String lists the asserted lines, e.g. "RTS DTR", or "none"
func (s ModemSignals) String() string {
	var on []string
	for _, sig := range []struct {
		name string
		set  bool
	}{
		{"CTS", s.CTS}, {"DSR", s.DSR}, {"RI", s.RI},
		{"DCD", s.DCD}, {"RTS", s.RTS}, {"DTR", s.DTR},
	} {
		if sig.set {
			on = append(on, sig.name)
		}
	}
	if len(on) == 0 {
		return "none"
	}
	return strings.Join(on, " ")
}
