package artnet

import "errors"

var (
	ErrNotArtNet          = errors.New("not an Art-Net packet")
	ErrUnsupportedOpCode  = errors.New("unsupported Art-Net opcode")
	ErrProtocolVersion    = errors.New("Art-Net protocol version too old")
	ErrShortPacket        = errors.New("truncated Art-Net packet")
	ErrInvalidLength      = errors.New("invalid ArtDmx length")
	ErrInvalidPortAddress = errors.New("port address out of range")
	ErrInvalidPort        = errors.New("invalid port id")
	ErrInvalidConfig      = errors.New("invalid Art-Net configuration")
	ErrNotStarted         = errors.New("node not started")
)
