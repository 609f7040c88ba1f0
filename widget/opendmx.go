package widget

import (
	"context"
	"time"

	"github.com/allbin/go-dmx"
	"github.com/allbin/go-dmx/serial"
)

// DMX512 line timing
const (
	breakTime      = 110 * time.Microsecond
	markAfterBreak = 16 * time.Microsecond
)

// OpenDMX drives widgets that are a bare UART on an FTDI bridge, such as
// the Enttec Open DMX. The host generates the whole DMX signal: break,
// mark after break, then start code and slots at 250 kbaud.
type OpenDMX struct {
	// sleep is replaced in tests
	sleep func(time.Duration)
}

var _ Protocol = (*OpenDMX)(nil)

// NewOpenDMX returns an Open DMX protocol
func NewOpenDMX() *OpenDMX {
	return &OpenDMX{sleep: time.Sleep}
}

func (p *OpenDMX) Name() string { return "Enttec Open DMX" }

// SerialOptions returns the DMX line settings, 250000 8N2
func (p *OpenDMX) SerialOptions() []serial.Option {
	return []serial.Option{
		serial.WithBaudRate(serial.DMXBaudRate),
		serial.WithStopBits(2),
		serial.WithParity(serial.ParityNone),
	}
}

// Detect checks that the line can generate a break. The widget itself
// never answers, so there is no serial number.
func (p *OpenDMX) Detect(ctx context.Context, conn Conn) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := conn.SetBreak(true); err != nil {
		return "", err
	}
	return "", conn.SetBreak(false)
}

// Send writes one DMX packet and waits for it to leave the UART, so the
// next break cannot cut it short
func (p *OpenDMX) Send(ctx context.Context, conn Conn, frame *dmx.Buffer) error {
	if err := conn.SetBreak(true); err != nil {
		return err
	}
	p.sleep(breakTime)
	if err := conn.SetBreak(false); err != nil {
		return err
	}
	p.sleep(markAfterBreak)

	if _, err := conn.WriteContext(ctx, dmxPacket(frame)); err != nil {
		return err
	}
	return conn.Drain()
}
