package widget

import (
	"context"
	"fmt"
	"sync"

	"github.com/allbin/go-dmx"
	"github.com/allbin/go-dmx/serial"
)

// Enttec USB Pro message framing
const (
	usbProStart = 0x7E
	usbProEnd   = 0xE7

	// largest payload the widget accepts: start code, 512 slots and headroom
	usbProMaxData = 600
)

// Enttec USB Pro labels
const (
	labelReceivedDMX     byte = 5
	labelSendDMX         byte = 6
	labelReceiveOnChange byte = 8
	labelSerialNumber    byte = 10
)

// received DMX status bits
const (
	statusQueueOverflow = 0x01
	statusOverrun       = 0x02
)

// USBPro talks to Enttec DMX USB Pro compatible widgets
type USBPro struct {
	mu     sync.Mutex
	parser messageParser
}

var (
	_ Protocol = (*USBPro)(nil)
	_ Receiver = (*USBPro)(nil)
)

// NewUSBPro returns a USB Pro protocol. Each device needs its own.
func NewUSBPro() *USBPro {
	return &USBPro{}
}

func (p *USBPro) Name() string { return "Enttec USB Pro" }

// SerialOptions returns the FTDI bridge settings. The bridge ignores the
// rate; the widget generates DMX timing itself.
func (p *USBPro) SerialOptions() []serial.Option {
	return []serial.Option{
		serial.WithBaudRate(57600),
		serial.WithStopBits(1),
	}
}

// Detect asks for the widget's serial number
func (p *USBPro) Detect(ctx context.Context, conn Conn) (string, error) {
	if err := conn.FlushInput(); err != nil {
		return "", err
	}
	if err := writeMessage(ctx, conn, labelSerialNumber, nil); err != nil {
		return "", err
	}
	data, err := p.awaitLabel(ctx, conn, labelSerialNumber)
	if err != nil {
		return "", err
	}
	if len(data) != 4 {
		return "", fmt.Errorf("serial number reply of %d bytes: %w", len(data), ErrBadMessage)
	}

	// Receive full frames rather than change notifications
	if err := writeMessage(ctx, conn, labelReceiveOnChange, []byte{0}); err != nil {
		return "", err
	}
	return decodeSerialNumber(data), nil
}

// Send transmits frame with label 6
func (p *USBPro) Send(ctx context.Context, conn Conn, frame *dmx.Buffer) error {
	return writeMessage(ctx, conn, labelSendDMX, dmxPacket(frame))
}

// Receive waits for the next clean received DMX frame. Frames flagged with
// overflow or overrun, or with a non-zero start code, are skipped.
func (p *USBPro) Receive(ctx context.Context, conn Conn) (*dmx.Buffer, error) {
	for {
		data, err := p.awaitLabel(ctx, conn, labelReceivedDMX)
		if err != nil {
			return nil, err
		}
		if frame, ok := decodeReceivedDMX(data); ok {
			return frame, nil
		}
	}
}

// awaitLabel reads messages until one with the wanted label arrives
func (p *USBPro) awaitLabel(ctx context.Context, conn Conn, label byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	buf := make([]byte, 256)
	for {
		if m, ok := p.parser.next(); ok {
			if m.label == label {
				return m.data, nil
			}
			continue
		}

		n, err := conn.ReadContext(ctx, buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			// VTIME expired with nothing read
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			continue
		}
		p.parser.feed(buf[:n])
	}
}

func writeMessage(ctx context.Context, conn Conn, label byte, data []byte) error {
	msg, err := encodeMessage(label, data)
	if err != nil {
		return err
	}
	_, err = conn.WriteContext(ctx, msg)
	return err
}

// encodeMessage frames data as 0x7E label lenLSB lenMSB data 0xE7
func encodeMessage(label byte, data []byte) ([]byte, error) {
	if len(data) > usbProMaxData {
		return nil, fmt.Errorf("%d bytes: %w", len(data), ErrMessageTooLarge)
	}
	msg := make([]byte, 0, len(data)+5)
	msg = append(msg, usbProStart, label, byte(len(data)), byte(len(data)>>8))
	msg = append(msg, data...)
	return append(msg, usbProEnd), nil
}

// decodeReceivedDMX unpacks a label 5 payload: status, start code, slots
func decodeReceivedDMX(data []byte) (*dmx.Buffer, bool) {
	if len(data) < 2 {
		return nil, false
	}
	if data[0]&(statusQueueOverflow|statusOverrun) != 0 || data[1] != 0 {
		return nil, false
	}
	frame := dmx.NewBuffer()
	if len(data) > 2 {
		frame.Set(data[2:])
	}
	return frame, true
}

// decodeSerialNumber renders the little endian BCD serial as decimal digits
func decodeSerialNumber(data []byte) string {
	s := make([]byte, 0, 2*len(data))
	for i := len(data) - 1; i >= 0; i-- {
		s = append(s, '0'+data[i]>>4, '0'+data[i]&0x0F)
	}
	return string(s)
}

type message struct {
	label byte
	data  []byte
}

// messageParser splits a byte stream into USB Pro messages, skipping
// garbage between them
type messageParser struct {
	pending []byte
}

func (mp *messageParser) feed(b []byte) {
	mp.pending = append(mp.pending, b...)
}

// next returns the first complete message in the stream
func (mp *messageParser) next() (message, bool) {
	for {
		start := -1
		for i, c := range mp.pending {
			if c == usbProStart {
				start = i
				break
			}
		}
		if start < 0 {
			mp.pending = mp.pending[:0]
			return message{}, false
		}
		mp.pending = mp.pending[start:]

		if len(mp.pending) < 4 {
			return message{}, false
		}
		size := int(mp.pending[2]) | int(mp.pending[3])<<8
		if size > usbProMaxData {
			// not a real header, resync on the next start byte
			mp.pending = mp.pending[1:]
			continue
		}
		if len(mp.pending) < size+5 {
			return message{}, false
		}
		if mp.pending[size+4] != usbProEnd {
			mp.pending = mp.pending[1:]
			continue
		}

		m := message{
			label: mp.pending[1],
			data:  append([]byte(nil), mp.pending[4:4+size]...),
		}
		mp.pending = mp.pending[size+5:]
		return m, true
	}
}
