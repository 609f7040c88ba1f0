package artnet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/allbin/go-dmx"
)

// MaxPortsPerNode is the number of inputs and of outputs a node has
const MaxPortsPerNode = 4

// Node is an Art-Net node with MaxPortsPerNode input and output ports.
//
// Port ids follow the device convention: even ids are inputs, odd ids are
// outputs, and id/2 is the index on the node. Ids 0 and 1 are input 0 and
// output 0.
type Node struct {
	config Config
	log    zerolog.Logger

	mu        sync.Mutex
	conn      *net.UDPConn
	broadcast *net.UDPAddr
	ports     [2 * MaxPortsPerNode]*Port
	done      chan struct{}
}

// NewNode creates a node. It does not open a socket until Start.
func NewNode(opts ...Option) (*Node, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}

	return &Node{
		config: config,
		log:    config.Logger.With().Str("component", "artnet").Logger(),
	}, nil
}

// Start opens the UDP socket and receives ArtDmx until ctx is done or
// Close is called
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conn != nil {
		return nil
	}

	laddr, err := net.ResolveUDPAddr("udp4", n.config.BindAddress)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", n.config.BindAddress, err)
	}
	baddr, err := net.ResolveUDPAddr("udp4", n.config.Broadcast)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", n.config.Broadcast, err)
	}
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", n.config.BindAddress, err)
	}

	n.conn = conn
	n.broadcast = baddr
	n.done = make(chan struct{})
	n.log.Info().Str("addr", conn.LocalAddr().String()).Msg("Art-Net node listening")

	go n.receive(conn, n.done)
	go func(done chan struct{}) {
		select {
		case <-ctx.Done():
			n.Close()
		case <-done:
		}
	}(n.done)
	return nil
}

// Close stops the node. Ports stay valid and report no data.
func (n *Node) Close() error {
	n.mu.Lock()
	conn, done := n.conn, n.done
	n.conn = nil
	n.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	<-done
	return err
}

// LocalAddr returns the bound address, or nil before Start
func (n *Node) LocalAddr() net.Addr {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn == nil {
		return nil
	}
	return n.conn.LocalAddr()
}

// Port returns the port with the given id, creating it on first use
func (n *Node) Port(id int) (*Port, error) {
	if id < 0 || id >= len(n.ports) {
		return nil, fmt.Errorf("%d: %w", id, ErrInvalidPort)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.ports[id] == nil {
		n.ports[id] = &Port{
			node:        n,
			id:          id,
			portAddress: PortAddress(n.config.Net, n.config.SubNet, uint8(id/2)),
		}
	}
	return n.ports[id], nil
}

func (n *Node) receive(conn *net.UDPConn, done chan struct{}) {
	defer close(done)

	buf := make([]byte, 1024)
	for {
		size, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			n.log.Warn().Err(err).Msg("receive")
			continue
		}

		packet, err := DecodeDMX(buf[:size])
		if err != nil {
			if !errors.Is(err, ErrUnsupportedOpCode) {
				n.log.Debug().Err(err).Str("from", from.String()).Msg("dropped packet")
			}
			continue
		}
		n.deliver(packet)
		packet.Data.Release()
	}
}

// deliver hands a frame to every input port listening on its address
func (n *Node) deliver(packet Packet) {
	n.mu.Lock()
	ports := n.ports
	n.mu.Unlock()

	for id := 0; id < len(ports); id += 2 {
		if p := ports[id]; p != nil && p.PortAddress() == packet.PortAddress {
			p.store(packet.Data)
		}
	}
}

func (n *Node) send(ctx context.Context, packet []byte) error {
	n.mu.Lock()
	conn, addr := n.conn, n.broadcast
	n.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("%w: %w", dmx.ErrPortClosed, ErrNotStarted)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
	} else {
		conn.SetWriteDeadline(time.Time{})
	}
	_, err := conn.WriteToUDP(packet, addr)
	return err
}

// Port is one Art-Net input or output. It implements dmx.InputPort and
// dmx.OutputPort; the calls that do not match the direction fail or
// return an empty frame.
type Port struct {
	node *Node
	id   int

	mu          sync.Mutex
	portAddress uint16
	sequence    uint8
	frame       dmx.Buffer
	received    time.Time
}

var (
	_ dmx.InputPort  = (*Port)(nil)
	_ dmx.OutputPort = (*Port)(nil)
)

// ID returns the port id on the node
func (p *Port) ID() int { return p.id }

// IsInput reports whether the port receives frames
func (p *Port) IsInput() bool { return p.id%2 == 0 }

// SetUniverse binds the port to a universe. Art-Net has 16 universes per
// subnet, so the id is taken modulo 16 within the node's net and subnet.
func (p *Port) SetUniverse(universe int) error {
	if universe < 0 {
		return fmt.Errorf("universe %d: %w", universe, ErrInvalidPortAddress)
	}
	addr := PortAddress(p.node.config.Net, p.node.config.SubNet, uint8(universe%16))

	p.mu.Lock()
	defer p.mu.Unlock()
	if addr != p.portAddress {
		p.portAddress = addr
		p.frame.Reset()
	}
	return nil
}

// PortAddress returns the 15 bit Art-Net address of the port
func (p *Port) PortAddress() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.portAddress
}

// Description names the port after its universe address
func (p *Port) Description() string {
	return fmt.Sprintf("ArtNet Universe %d", p.PortAddress())
}

// ReadDMX returns the last frame received for this port's address, or an
// empty buffer when nothing arrived within the stale timeout
func (p *Port) ReadDMX() *dmx.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.IsInput() || time.Since(p.received) > p.node.config.StaleTimeout {
		return dmx.NewBuffer()
	}
	return p.frame.Copy()
}

func (p *Port) store(frame *dmx.Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frame.Assign(frame)
	p.received = time.Now()
}

// WriteDMX sends frame as ArtDmx to the node's broadcast address
func (p *Port) WriteDMX(ctx context.Context, frame *dmx.Buffer) error {
	if p.IsInput() {
		return fmt.Errorf("port %d: %w", p.id, dmx.ErrNotWritable)
	}

	p.mu.Lock()
	p.sequence++
	if p.sequence == 0 {
		// zero disables sequencing at the receiver
		p.sequence = 1
	}
	packet, err := EncodeDMX(p.sequence, uint8(p.id/2), p.portAddress, frame)
	p.mu.Unlock()
	if err != nil {
		return err
	}
	return p.node.send(ctx, packet)
}
