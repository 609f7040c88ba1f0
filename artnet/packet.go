package artnet

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/allbin/go-dmx"
)

// UDPPort is the Art-Net UDP port
const UDPPort = 6454

const (
	opDmx           = 0x5000
	protocolVersion = 14

	// ID, OpCode, ProtVer, Sequence, Physical, SubUni, Net, Length
	dmxHeaderLen = 18

	// MaxPortAddress is the highest 15 bit port address (net, subnet, universe)
	MaxPortAddress = 0x7FFF
)

var packetID = []byte("Art-Net\x00")

// Packet is a decoded ArtDmx packet
type Packet struct {
	Sequence    uint8
	Physical    uint8
	PortAddress uint16
	Data        *dmx.Buffer
}

// PortAddress builds a 15 bit port address from its parts
func PortAddress(net, subNet, universe uint8) uint16 {
	return uint16(net&0x7F)<<8 | uint16(subNet&0x0F)<<4 | uint16(universe&0x0F)
}

// EncodeDMX builds an ArtDmx packet. Frames are padded with zeros to an
// even length of at least two channels, as receivers require.
func EncodeDMX(sequence, physical uint8, portAddress uint16, frame *dmx.Buffer) ([]byte, error) {
	if portAddress > MaxPortAddress {
		return nil, fmt.Errorf("%#x: %w", portAddress, ErrInvalidPortAddress)
	}

	length := 0
	if frame != nil {
		length = frame.Size()
	}
	if length < 2 {
		length = 2
	}
	if length%2 != 0 {
		length++
	}

	packet := make([]byte, dmxHeaderLen+length)
	copy(packet, packetID)
	binary.LittleEndian.PutUint16(packet[8:], opDmx)
	binary.BigEndian.PutUint16(packet[10:], protocolVersion)
	packet[12] = sequence
	packet[13] = physical
	packet[14] = byte(portAddress)      // SubUni
	packet[15] = byte(portAddress >> 8) // Net
	binary.BigEndian.PutUint16(packet[16:], uint16(length))
	if frame != nil {
		frame.Get(packet[dmxHeaderLen:])
	}
	return packet, nil
}

// DecodeDMX parses an ArtDmx packet. Packets with other opcodes return
// ErrUnsupportedOpCode.
func DecodeDMX(packet []byte) (Packet, error) {
	if len(packet) < 10 || !bytes.Equal(packet[:8], packetID) {
		return Packet{}, ErrNotArtNet
	}
	if op := binary.LittleEndian.Uint16(packet[8:]); op != opDmx {
		return Packet{}, fmt.Errorf("opcode %#04x: %w", op, ErrUnsupportedOpCode)
	}
	if len(packet) < dmxHeaderLen {
		return Packet{}, ErrShortPacket
	}
	if v := binary.BigEndian.Uint16(packet[10:]); v < protocolVersion {
		return Packet{}, fmt.Errorf("version %d: %w", v, ErrProtocolVersion)
	}

	length := int(binary.BigEndian.Uint16(packet[16:]))
	if length < 2 || length > dmx.MaxChannels {
		return Packet{}, fmt.Errorf("%d: %w", length, ErrInvalidLength)
	}
	if len(packet) < dmxHeaderLen+length {
		return Packet{}, ErrShortPacket
	}

	return Packet{
		Sequence:    packet[12],
		Physical:    packet[13],
		PortAddress: uint16(packet[15]&0x7F)<<8 | uint16(packet[14]),
		Data:        dmx.NewBufferFromBytes(packet[dmxHeaderLen : dmxHeaderLen+length]),
	}, nil
}
