package routing

import (
	"net"

	"github.com/danmuck/fabricctl/internal/fabric"
)

// Protocol is decided once when a packet-in is decoded.
type Protocol int

const (
	ProtocolOther Protocol = iota
	ProtocolIPv4
)

func (p Protocol) String() string {
	if p == ProtocolIPv4 {
		return "ipv4"
	}
	return "other"
}

// Packet describes the triggering packet of a packet-in. Dst is meaningful
// only when Protocol is ProtocolIPv4.
type Packet struct {
	Protocol Protocol
	Dst      fabric.Address
	BufferID uint32
	InPort   uint32
	EthSrc   net.HardwareAddr
	EthDst   net.HardwareAddr
}

// Buffered reports whether the switch holds the packet under BufferID.
func (p Packet) Buffered() bool {
	return p.BufferID != NoBuffer
}
