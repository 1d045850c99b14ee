package routing

// Flood sends the packet out of every port but its ingress and installs
// nothing.
func Flood(pkt Packet, reason string) Decision {
	return Decision{
		Verdict: VerdictFlood,
		Reason:  reason,
		PacketOut: &PacketOut{
			BufferID: pkt.BufferID,
			InPort:   pkt.InPort,
			OutPort:  PortAll,
		},
	}
}
