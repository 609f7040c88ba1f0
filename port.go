package dmx

import "context"

// InputPort is a source of frames, such as a receiving Art-Net port or a
// widget's DMX input
type InputPort interface {
	// ReadDMX returns the most recent frame. It returns an empty buffer
	// when the port has no current data.
	ReadDMX() *Buffer
	Description() string
}

// OutputPort sends frames to a device or network
type OutputPort interface {
	// WriteDMX sends frame. Implementations must not keep frame.Raw()
	// after returning; take a Copy to hold on to the frame.
	WriteDMX(ctx context.Context, frame *Buffer) error
	Description() string
}
