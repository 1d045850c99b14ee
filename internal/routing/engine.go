package routing

import (
	"fmt"
	"math"

	"github.com/danmuck/fabricctl/internal/fabric"
)

// Config is the fabric-wide input to every engine.
type Config struct {
	Fanout        int
	Depth         int
	Network       uint8
	FlatThreshold uint64
}

func DefaultConfig() Config {
	return Config{
		Fanout:        4,
		Depth:         3,
		Network:       192,
		FlatThreshold: 1000,
	}
}

func (c Config) Shape() fabric.Shape {
	return fabric.Shape{Fanout: c.Fanout, Depth: c.Depth}
}

func (c Config) Validate() error {
	if err := c.Shape().Validate(); err != nil {
		return err
	}
	if c.Depth > fabric.MaxHierarchicalDepth {
		return &fabric.ConfigurationError{
			Op:     "engine",
			Reason: fmt.Sprintf("depth %d leaves no host segment in an IPv4 address (max %d)", c.Depth, fabric.MaxHierarchicalDepth),
		}
	}
	if c.Fanout >= fabric.ReservedSegment {
		return &fabric.ConfigurationError{
			Op:     "engine",
			Reason: fmt.Sprintf("fanout %d does not fit an address segment", c.Fanout),
		}
	}
	return nil
}

// Engine synthesizes forwarding rules. It holds no per-switch state and is
// safe to share between sessions.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) Classify(dpid uint64) fabric.SwitchClass {
	return fabric.Classify(dpid, e.cfg.FlatThreshold)
}

// Resolve maps a datapath id onto its coordinate in this engine's fabric.
func (e *Engine) Resolve(dpid uint64) (fabric.Coordinate, error) {
	if dpid > math.MaxInt64 {
		return nil, &fabric.ConfigurationError{
			Op:     "resolve",
			Reason: fmt.Sprintf("datapath id %#x does not fit a switch id", dpid),
		}
	}
	return fabric.Resolve(int64(dpid), e.cfg.Fanout, e.cfg.Depth)
}

// Route decides what the switch at coord should install for pkt. Flat
// switches ignore coord. Packets that fail the address guard flood.
func (e *Engine) Route(pkt Packet, coord fabric.Coordinate, class fabric.SwitchClass) Decision {
	if pkt.Protocol != ProtocolIPv4 {
		return Flood(pkt, ReasonNotIPv4)
	}
	if pkt.Dst.IsReserved() {
		return Flood(pkt, ReasonReserved)
	}
	if class == fabric.ClassFlat {
		return e.routeFlat(pkt)
	}
	return e.routeTree(pkt, coord)
}

// routeFlat forwards on the second segment, which names the core port
// directly.
func (e *Engine) routeFlat(pkt Packet) Decision {
	port := pkt.Dst.Segment(1)
	if port == 0 {
		return Flood(pkt, ReasonNoPort)
	}
	return Decision{
		Verdict: VerdictFlat,
		Rules: []Rule{{
			Match:    PrefixMatch(pkt.Dst.Prefix(16)),
			Priority: DefaultPriority,
			BufferID: pkt.BufferID,
			OutPort:  uint32(port),
		}},
	}
}

func (e *Engine) routeTree(pkt Packet, coord fabric.Coordinate) Decision {
	level := coord.Level()
	if level >= fabric.MaxHierarchicalDepth {
		return Flood(pkt, ReasonCoordinateTooDeep)
	}

	for i, digit := range coord {
		if pkt.Dst.Segment(i+1) != digit {
			return e.aggregate(pkt, coord)
		}
	}

	child := pkt.Dst.Segment(level + 1)
	if child == 0 {
		return Flood(pkt, ReasonNoPort)
	}
	return Decision{
		Verdict: VerdictExact,
		Rules: []Rule{{
			Match:    PrefixMatch(pkt.Dst.Prefix(fabric.PrefixBits(level))),
			Priority: PrioritySubtree,
			BufferID: pkt.BufferID,
			OutPort:  childPort(level, child),
		}},
	}
}

// aggregate pre-populates one rule per child subtree and sends the trigger
// up through the low-priority uplink default.
func (e *Engine) aggregate(pkt Packet, coord fabric.Coordinate) Decision {
	level := coord.Level()
	bits := fabric.PrefixBits(level)

	rules := make([]Rule, 0, e.cfg.Fanout+1)
	for child := 1; child <= e.cfg.Fanout; child++ {
		subtree := fabric.SubtreeAddress(e.cfg.Network, coord, child)
		rules = append(rules, Rule{
			Match:    PrefixMatch(subtree.Prefix(bits)),
			Priority: PrioritySubtree,
			BufferID: NoBuffer,
			OutPort:  childPort(level, child),
		})
	}
	rules = append(rules, Rule{
		Match:    AnyIPv4(),
		Priority: PriorityUplink,
		BufferID: pkt.BufferID,
		OutPort:  UplinkPort,
	})
	return Decision{Verdict: VerdictAggregate, Rules: rules}
}

// childPort numbers child links after the uplink; the root has no uplink.
func childPort(level, child int) uint32 {
	if level == 0 {
		return uint32(child)
	}
	return UplinkPort + uint32(child)
}
