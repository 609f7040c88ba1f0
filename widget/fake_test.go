package widget

import (
	"context"
	"sync"
	"time"

	"github.com/allbin/go-dmx/serial"
)

// fakeConn is an in-memory serial line. Reads return queued bytes, or
// (0, nil) after a millisecond like a port with a read timeout.
type fakeConn struct {
	mu       sync.Mutex
	in       []byte
	writes   [][]byte
	breaks   []bool
	drains   int
	closed   bool
	breakErr error
	onWrite  func(c *fakeConn, data []byte)
}

func (c *fakeConn) queue(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.in = append(c.in, data...)
}

func (c *fakeConn) Read(buf []byte) (int, error) {
	return c.ReadContext(context.Background(), buf)
}

func (c *fakeConn) ReadContext(ctx context.Context, buf []byte) (int, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, serial.ErrPortClosed
	}
	if len(c.in) > 0 {
		n := copy(buf, c.in)
		c.in = c.in[n:]
		c.mu.Unlock()
		return n, nil
	}
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(time.Millisecond):
		return 0, nil
	}
}

func (c *fakeConn) Write(data []byte) (int, error) {
	return c.WriteContext(context.Background(), data)
}

func (c *fakeConn) WriteContext(_ context.Context, data []byte) (int, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, serial.ErrPortClosed
	}
	c.writes = append(c.writes, append([]byte(nil), data...))
	hook := c.onWrite
	c.mu.Unlock()

	if hook != nil {
		hook(c, data)
	}
	return len(data), nil
}

func (c *fakeConn) SetBreak(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.breakErr != nil {
		return c.breakErr
	}
	c.breaks = append(c.breaks, on)
	return nil
}

func (c *fakeConn) Drain() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drains++
	return nil
}

func (c *fakeConn) FlushInput() error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return serial.ErrPortClosed
	}
	c.closed = true
	return nil
}

func (c *fakeConn) written() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.writes...)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// answerSerialNumber makes the fake reply to serial number requests
// like a USB Pro with serial 12345678
func answerSerialNumber(c *fakeConn, data []byte) {
	if len(data) > 1 && data[1] == labelSerialNumber {
		msg, _ := encodeMessage(labelSerialNumber, []byte{0x78, 0x56, 0x34, 0x12})
		c.queue(msg)
	}
}
