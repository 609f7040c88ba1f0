package widget

import (
	"context"
	"io"

	"github.com/allbin/go-dmx"
	"github.com/allbin/go-dmx/serial"
)

// Conn is the part of a serial port the protocols use
type Conn interface {
	io.ReadWriteCloser
	ReadContext(ctx context.Context, buf []byte) (int, error)
	WriteContext(ctx context.Context, data []byte) (int, error)
	SetBreak(on bool) error
	Drain() error
	FlushInput() error
}

var _ Conn = serial.Port(nil)

// Protocol speaks to one kind of widget over an open serial line
type Protocol interface {
	// Name is the widget kind, e.g. "Enttec USB Pro"
	Name() string
	// SerialOptions are the line settings the widget needs
	SerialOptions() []serial.Option
	// Detect checks that a widget answers on conn and returns its serial
	// number, or "" when the widget has none
	Detect(ctx context.Context, conn Conn) (string, error)
	// Send transmits one frame
	Send(ctx context.Context, conn Conn, frame *dmx.Buffer) error
}

// Receiver is implemented by protocols whose widgets can also receive DMX
type Receiver interface {
	// Receive blocks until the next valid frame arrives
	Receive(ctx context.Context, conn Conn) (*dmx.Buffer, error)
}

// ByName returns a new protocol for a widget kind as reported by
// serial.KnownWidget or written in config files
func ByName(kind string) (Protocol, error) {
	switch kind {
	case serial.WidgetUSBPro, "enttec", "usb-pro":
		return NewUSBPro(), nil
	case serial.WidgetOpenDMX, "open-dmx":
		return NewOpenDMX(), nil
	default:
		return nil, ErrInvalidConfig
	}
}

// minSlots is the shortest packet a receiver must accept
const minSlots = 24

// dmxPacket returns the start code followed by the frame, padded with
// zeros to the minimum packet length
func dmxPacket(frame *dmx.Buffer) []byte {
	n := frame.Size()
	if n < minSlots {
		n = minSlots
	}
	packet := make([]byte, 1+n)
	frame.Get(packet[1:])
	return packet
}
