package widget

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/allbin/go-dmx"
	"github.com/allbin/go-dmx/serial"
)

// retryDelay paces the read loop after a failed receive
const retryDelay = 100 * time.Millisecond

// Device is one serial DMX widget. It owns the serial line between Start
// and Stop and exposes the widget as dmx ports.
type Device struct {
	name     string
	path     string
	protocol Protocol
	config   Config
	log      zerolog.Logger

	mu           sync.Mutex
	conn         Conn
	serialNumber string
	cancel       context.CancelFunc
	done         chan struct{}

	// latest received frame, guarded by mu
	input    dmx.Buffer
	received time.Time
}

// NewDevice creates a device for the widget on path. It does not touch
// the hardware until Start.
func NewDevice(name, path string, protocol Protocol, opts ...Option) (*Device, error) {
	if protocol == nil || path == "" {
		return nil, ErrInvalidConfig
	}

	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}
	if name == "" {
		name = protocol.Name()
	}

	return &Device{
		name:     name,
		path:     path,
		protocol: protocol,
		config:   config,
		log:      config.Logger.With().Str("device", name).Str("path", path).Logger(),
	}, nil
}

// Name returns the device name
func (d *Device) Name() string { return d.name }

// Protocol returns the protocol spoken to the widget
func (d *Device) Protocol() Protocol { return d.protocol }

// Path returns the serial device path
func (d *Device) Path() string { return d.path }

// SerialNumber returns the number the widget reported during Start
func (d *Device) SerialNumber() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.serialNumber
}

// Start opens the serial line and checks that the widget answers.
// It returns ErrNoWidget when it does not. Widgets that can receive DMX
// are read in the background until Stop.
func (d *Device) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		return ErrAlreadyStarted
	}

	conn, err := d.config.Open(d.path, d.protocol.SerialOptions()...)
	if err != nil {
		return fmt.Errorf("open %s: %w", d.path, err)
	}

	detectCtx, cancel := context.WithTimeout(ctx, d.config.DetectTimeout)
	serialNumber, err := d.protocol.Detect(detectCtx, conn)
	cancel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("%s on %s: %w: %w", d.protocol.Name(), d.path, ErrNoWidget, err)
	}

	d.conn = conn
	d.serialNumber = serialNumber
	d.log.Info().Str("widget", d.protocol.Name()).Str("serial", serialNumber).Msg("widget detected")

	if rx, ok := d.protocol.(Receiver); ok {
		runCtx, cancel := context.WithCancel(context.Background())
		d.cancel = cancel
		d.done = make(chan struct{})
		go d.readLoop(runCtx, rx, conn, d.done)
	}
	return nil
}

// Stop ends the read loop and closes the serial line
func (d *Device) Stop() error {
	d.mu.Lock()
	conn, cancel, done := d.conn, d.cancel, d.done
	d.conn, d.cancel, d.done = nil, nil, nil
	d.input.Release()
	d.mu.Unlock()

	if conn == nil {
		return ErrNotStarted
	}
	if cancel != nil {
		cancel()
		<-done
	}
	return conn.Close()
}

func (d *Device) readLoop(ctx context.Context, rx Receiver, conn Conn, done chan struct{}) {
	defer close(done)

	for {
		frame, err := rx.Receive(ctx, conn)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, serial.ErrPortClosed) || errors.Is(err, dmx.ErrPortClosed) {
				d.log.Warn().Err(err).Msg("read loop stopped")
				return
			}
			d.log.Debug().Err(err).Msg("receive")
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
			continue
		}

		d.mu.Lock()
		d.input.Assign(frame)
		d.received = time.Now()
		d.mu.Unlock()
		frame.Release()
	}
}

func (d *Device) write(ctx context.Context, frame *dmx.Buffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return dmx.ErrPortClosed
	}
	return d.protocol.Send(ctx, d.conn, frame)
}

func (d *Device) read() *dmx.Buffer {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil || time.Since(d.received) > d.config.InputTimeout {
		return dmx.NewBuffer()
	}
	return d.input.Copy()
}

// OutputPort returns the port that sends frames to the widget
func (d *Device) OutputPort() dmx.OutputPort {
	return &outputPort{device: d}
}

// InputPort returns the widget's DMX input. It fails with
// dmx.ErrNotReadable for widgets that cannot receive.
func (d *Device) InputPort() (dmx.InputPort, error) {
	if _, ok := d.protocol.(Receiver); !ok {
		return nil, fmt.Errorf("%s: %w", d.protocol.Name(), dmx.ErrNotReadable)
	}
	return &inputPort{device: d}, nil
}

type outputPort struct {
	device *Device
}

func (p *outputPort) WriteDMX(ctx context.Context, frame *dmx.Buffer) error {
	return p.device.write(ctx, frame)
}

func (p *outputPort) Description() string {
	return fmt.Sprintf("%s output (%s)", p.device.name, p.device.path)
}

type inputPort struct {
	device *Device
}

func (p *inputPort) ReadDMX() *dmx.Buffer {
	return p.device.read()
}

func (p *inputPort) Description() string {
	return fmt.Sprintf("%s input (%s)", p.device.name, p.device.path)
}
