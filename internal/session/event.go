package session

import (
	"net"

	"github.com/contiv/libOpenflow/openflow13"
	"github.com/contiv/libOpenflow/protocol"
	"github.com/danmuck/fabricctl/internal/fabric"
	"github.com/danmuck/fabricctl/internal/routing"
)

const etherTypeIPv4 = 0x0800

// PacketInEvent is a decoded packet-in. Parsed is false when the frame could
// not be read far enough to route it.
type PacketInEvent struct {
	DPID   uint64
	Packet routing.Packet
	Raw    *openflow13.PacketIn
	Parsed bool
	Err    error
}

func NewPacketInEvent(dpid uint64, pkt *openflow13.PacketIn, parseErr error) PacketInEvent {
	ev := PacketInEvent{DPID: dpid, Raw: pkt, Err: parseErr}
	if pkt == nil || parseErr != nil {
		return ev
	}

	eth := pkt.Data
	if len(eth.HWDst) == 0 && len(eth.HWSrc) == 0 && eth.Ethertype == 0 {
		return ev
	}

	ev.Packet = routing.Packet{
		Protocol: routing.ProtocolOther,
		BufferID: pkt.BufferId,
		InPort:   inPort(pkt.Match),
		EthSrc:   cloneMAC(eth.HWSrc),
		EthDst:   cloneMAC(eth.HWDst),
	}
	if eth.Ethertype == etherTypeIPv4 {
		ip, ok := eth.Data.(*protocol.IPv4)
		if !ok {
			return ev
		}
		dst, ok := fabric.AddressFromIP(ip.NWDst)
		if !ok {
			return ev
		}
		ev.Packet.Protocol = routing.ProtocolIPv4
		ev.Packet.Dst = dst
	}
	ev.Parsed = true
	return ev
}

func inPort(match openflow13.Match) uint32 {
	for _, field := range match.Fields {
		if f, ok := field.Value.(*openflow13.InPortField); ok {
			return f.InPort
		}
	}
	return 0
}

func cloneMAC(mac net.HardwareAddr) net.HardwareAddr {
	if len(mac) == 0 {
		return nil
	}
	return append(net.HardwareAddr(nil), mac...)
}
