package artnet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allbin/go-dmx"
)

func startNode(t *testing.T, opts ...Option) *Node {
	t.Helper()
	opts = append([]Option{WithBindAddress("127.0.0.1:0")}, opts...)
	n, err := NewNode(opts...)
	require.NoError(t, err)
	require.NoError(t, n.Start(context.Background()))
	t.Cleanup(func() { n.Close() })
	return n
}

func TestNewNodeOptions(t *testing.T) {
	_, err := NewNode(WithNet(0x80))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewNode(WithSubNet(16))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewNode(WithBindAddress("no-port"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewNode(WithStaleTimeout(0))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNodePorts(t *testing.T) {
	n, err := NewNode(WithNet(1), WithSubNet(2))
	require.NoError(t, err)

	_, err = n.Port(-1)
	assert.ErrorIs(t, err, ErrInvalidPort)
	_, err = n.Port(2 * MaxPortsPerNode)
	assert.ErrorIs(t, err, ErrInvalidPort)

	in, err := n.Port(2)
	require.NoError(t, err)
	assert.True(t, in.IsInput())
	assert.Equal(t, PortAddress(1, 2, 1), in.PortAddress())

	again, err := n.Port(2)
	require.NoError(t, err)
	assert.Same(t, in, again)

	out, err := n.Port(3)
	require.NoError(t, err)
	assert.False(t, out.IsInput())

	require.NoError(t, out.SetUniverse(21))
	assert.Equal(t, PortAddress(1, 2, 5), out.PortAddress())
	assert.Equal(t, "ArtNet Universe 293", out.Description())

	assert.Error(t, out.SetUniverse(-1))
}

func TestPortDirection(t *testing.T) {
	n, err := NewNode()
	require.NoError(t, err)

	in, _ := n.Port(0)
	err = in.WriteDMX(context.Background(), dmx.NewBufferFromBytes([]byte{1}))
	assert.ErrorIs(t, err, dmx.ErrNotWritable)

	out, _ := n.Port(1)
	assert.Equal(t, 0, out.ReadDMX().Size())

	// output before Start
	err = out.WriteDMX(context.Background(), dmx.NewBufferFromBytes([]byte{1}))
	assert.ErrorIs(t, err, dmx.ErrPortClosed)
}

func TestNodeLoopback(t *testing.T) {
	receiver := startNode(t, WithStaleTimeout(time.Second))
	sender := startNode(t, WithBroadcast(receiver.LocalAddr().String()))

	in, err := receiver.Port(0)
	require.NoError(t, err)
	require.NoError(t, in.SetUniverse(4))

	out, err := sender.Port(1)
	require.NoError(t, err)
	require.NoError(t, out.SetUniverse(4))

	other, err := sender.Port(3)
	require.NoError(t, err)
	require.NoError(t, other.SetUniverse(5))

	frame := dmx.NewBufferFromBytes([]byte{255, 128, 0, 64})
	require.NoError(t, other.WriteDMX(context.Background(), dmx.NewBufferFromBytes([]byte{1, 1})))
	require.NoError(t, out.WriteDMX(context.Background(), frame))

	require.Eventually(t, func() bool {
		return in.ReadDMX().Equal(frame)
	}, 2*time.Second, 5*time.Millisecond)
}

func TestNodeInputGoesStale(t *testing.T) {
	receiver := startNode(t, WithStaleTimeout(50*time.Millisecond))
	sender := startNode(t, WithBroadcast(receiver.LocalAddr().String()))

	in, _ := receiver.Port(0)
	out, _ := sender.Port(1)
	require.NoError(t, out.WriteDMX(context.Background(), dmx.NewBufferFromBytes([]byte{7, 7})))

	require.Eventually(t, func() bool { return in.ReadDMX().Size() == 2 }, 2*time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return in.ReadDMX().Size() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestNodeStopsWithContext(t *testing.T) {
	n, err := NewNode(WithBindAddress("127.0.0.1:0"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, n.Start(ctx))
	require.NotNil(t, n.LocalAddr())

	cancel()
	require.Eventually(t, func() bool { return n.LocalAddr() == nil }, time.Second, 5*time.Millisecond)
	assert.NoError(t, n.Close())
}
