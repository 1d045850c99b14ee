package server

import (
	"github.com/danmuck/fabricctl/internal/fabric"
	"github.com/danmuck/fabricctl/internal/routing"
	"go4.org/netipx"
)

// SwitchView describes where a datapath id sits in the fabric.
type SwitchView struct {
	DPID       uint64 `json:"dpid"`
	Class      string `json:"class"`
	Coordinate string `json:"coordinate,omitempty"`
	Level      int    `json:"level"`
	Subtree    string `json:"subtree,omitempty"`
}

type RuleView struct {
	Match    string `json:"match"`
	Range    string `json:"range,omitempty"`
	Priority uint16 `json:"priority"`
	OutPort  uint32 `json:"out_port"`
	Buffered bool   `json:"buffered"`
}

type PacketOutView struct {
	OutPort uint32 `json:"out_port"`
	Flood   bool   `json:"flood"`
}

// PlanView is a dry-run decision for one destination at one switch.
type PlanView struct {
	Switch    SwitchView     `json:"switch"`
	Dst       string         `json:"dst"`
	Verdict   string         `json:"verdict"`
	Reason    string         `json:"reason,omitempty"`
	Rules     []RuleView     `json:"rules"`
	PacketOut *PacketOutView `json:"packet_out,omitempty"`
}

// Resolve classifies dpid and, for tree switches, resolves its coordinate.
func Resolve(engine *routing.Engine, dpid uint64) (SwitchView, error) {
	view, _, err := resolveSwitch(engine, dpid)
	return view, err
}

// Plan computes the decision a switch would make for a buffered IPv4 packet
// to dst. Nothing is sent.
func Plan(engine *routing.Engine, dpid uint64, dst fabric.Address) (PlanView, error) {
	sw, coord, err := resolveSwitch(engine, dpid)
	if err != nil {
		return PlanView{}, err
	}
	pkt := routing.Packet{Protocol: routing.ProtocolIPv4, Dst: dst, BufferID: 0}
	decision := engine.Route(pkt, coord, engine.Classify(dpid))

	plan := PlanView{
		Switch:  sw,
		Dst:     dst.String(),
		Verdict: decision.Verdict.String(),
		Reason:  decision.Reason,
		Rules:   make([]RuleView, 0, len(decision.Rules)),
	}
	for _, rule := range decision.Rules {
		view := RuleView{
			Match:    rule.Match.String(),
			Priority: rule.Priority,
			OutPort:  rule.OutPort,
			Buffered: rule.Buffered(),
		}
		if rule.Match.Kind == routing.MatchIPv4Prefix {
			view.Range = netipx.RangeOfPrefix(rule.Match.Prefix).String()
		}
		plan.Rules = append(plan.Rules, view)
	}
	if out := decision.PacketOut; out != nil {
		plan.PacketOut = &PacketOutView{OutPort: out.OutPort, Flood: out.OutPort == routing.PortAll}
	}
	return plan, nil
}

func resolveSwitch(engine *routing.Engine, dpid uint64) (SwitchView, fabric.Coordinate, error) {
	class := engine.Classify(dpid)
	view := SwitchView{DPID: dpid, Class: class.String()}
	if class == fabric.ClassFlat {
		return view, nil, nil
	}
	coord, err := engine.Resolve(dpid)
	if err != nil {
		return SwitchView{}, nil, err
	}
	view.Coordinate = coord.String()
	view.Level = coord.Level()
	if coord.Level() < fabric.MaxHierarchicalDepth {
		bits := fabric.PrefixBits(coord.Level() - 1)
		subtree := fabric.SubtreeAddress(engine.Config().Network, coord.Parent(), lastDigit(coord))
		view.Subtree = subtree.Prefix(bits).String()
	}
	return view, coord, nil
}

func lastDigit(coord fabric.Coordinate) int {
	if len(coord) == 0 {
		return 0
	}
	return coord[len(coord)-1]
}
