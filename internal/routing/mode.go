package routing

import (
	"fmt"
	"net"
	"strings"
)

// Mode selects how a session forwards.
type Mode string

const (
	ModeTopology Mode = "topology"
	ModeHub      Mode = "hub"
	ModeLearning Mode = "learning"
)

func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeTopology:
		return ModeTopology, nil
	case ModeHub:
		return ModeHub, nil
	case ModeLearning:
		return ModeLearning, nil
	default:
		return "", fmt.Errorf("routing: unknown mode %q", raw)
	}
}

// Hub floods every packet.
func Hub(pkt Packet) Decision {
	return Flood(pkt, ReasonHub)
}

// LearningTable maps source MACs to the port they were last seen on. Each
// session owns one; it is never shared between switches.
type LearningTable struct {
	ports map[string]uint32
}

func NewLearningTable() *LearningTable {
	return &LearningTable{ports: make(map[string]uint32)}
}

func (t *LearningTable) Learn(mac net.HardwareAddr, port uint32) {
	if len(mac) == 0 {
		return
	}
	t.ports[mac.String()] = port
}

func (t *LearningTable) Lookup(mac net.HardwareAddr) (uint32, bool) {
	if len(mac) == 0 {
		return 0, false
	}
	port, ok := t.ports[mac.String()]
	return port, ok
}

func (t *LearningTable) Len() int {
	return len(t.ports)
}

// Switch learns the source and either installs a destination MAC rule or
// floods when the destination has not been seen yet.
func (t *LearningTable) Switch(pkt Packet) Decision {
	t.Learn(pkt.EthSrc, pkt.InPort)

	port, ok := t.Lookup(pkt.EthDst)
	if !ok {
		return Flood(pkt, ReasonUnknownDestination)
	}
	return Decision{
		Verdict: VerdictLearned,
		Rules: []Rule{{
			Match:    EthDstMatch(pkt.EthDst),
			Priority: DefaultPriority,
			BufferID: pkt.BufferID,
			OutPort:  port,
		}},
	}
}
