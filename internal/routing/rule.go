package routing

import (
	"fmt"
	"net"
	"net/netip"
)

const (
	// NoBuffer is the OpenFlow buffer id for "not buffered".
	NoBuffer uint32 = 0xffffffff
	// PortAll is the OpenFlow reserved port for all ports except ingress.
	PortAll uint32 = 0xfffffffc
	// UplinkPort leads toward the root on every non-root tree switch.
	UplinkPort uint32 = 1
)

const (
	PrioritySubtree uint16 = 10
	PriorityUplink  uint16 = 1
	// DefaultPriority is the OpenFlow default, used where only one rule can match.
	DefaultPriority uint16 = 0x8000
)

type MatchKind int

const (
	MatchIPv4Prefix MatchKind = iota
	MatchIPv4Any
	MatchEthDst
)

// Match is the subset of OpenFlow match fields the controller installs.
// IPv4 kinds always match eth_type 0x0800.
type Match struct {
	Kind   MatchKind
	Prefix netip.Prefix
	EthDst net.HardwareAddr
}

func PrefixMatch(p netip.Prefix) Match {
	return Match{Kind: MatchIPv4Prefix, Prefix: p}
}

func AnyIPv4() Match {
	return Match{Kind: MatchIPv4Any}
}

func EthDstMatch(mac net.HardwareAddr) Match {
	return Match{Kind: MatchEthDst, EthDst: mac}
}

func (m Match) String() string {
	switch m.Kind {
	case MatchIPv4Prefix:
		return "ipv4,nw_dst=" + m.Prefix.String()
	case MatchIPv4Any:
		return "ipv4"
	case MatchEthDst:
		return "dl_dst=" + m.EthDst.String()
	default:
		return "unknown"
	}
}

// Rule is one flow entry to install.
type Rule struct {
	Match    Match
	Priority uint16
	BufferID uint32
	OutPort  uint32
}

// Buffered reports whether installing the rule also releases a buffered packet.
func (r Rule) Buffered() bool {
	return r.BufferID != NoBuffer
}

func (r Rule) String() string {
	buf := "none"
	if r.Buffered() {
		buf = fmt.Sprintf("%d", r.BufferID)
	}
	return fmt.Sprintf("match=%s priority=%d buffer=%s out=%d", r.Match, r.Priority, buf, r.OutPort)
}

// PacketOut is an immediate send of the triggering packet.
type PacketOut struct {
	BufferID uint32
	InPort   uint32
	OutPort  uint32
}

type Verdict int

const (
	VerdictFlood Verdict = iota
	VerdictFlat
	VerdictExact
	VerdictAggregate
	VerdictLearned
)

func (v Verdict) String() string {
	switch v {
	case VerdictFlood:
		return "flood"
	case VerdictFlat:
		return "flat"
	case VerdictExact:
		return "exact"
	case VerdictAggregate:
		return "aggregate"
	case VerdictLearned:
		return "learned"
	default:
		return "unknown"
	}
}

// Flood reasons.
const (
	ReasonNotIPv4            = "not_ipv4"
	ReasonReserved           = "reserved_destination"
	ReasonNoPort             = "no_port"
	ReasonCoordinateTooDeep  = "coordinate_too_deep"
	ReasonHub                = "hub"
	ReasonUnknownDestination = "unknown_destination"
)

// Decision is everything the switch must be told for one packet-in, in
// emission order: Rules first, then PacketOut.
type Decision struct {
	Verdict   Verdict
	Reason    string
	Rules     []Rule
	PacketOut *PacketOut
}

// Trigger returns the rule the triggering packet was bound to. Aggregate
// decisions bind it to the trailing uplink default.
func (d Decision) Trigger() (Rule, bool) {
	if len(d.Rules) == 0 {
		return Rule{}, false
	}
	switch d.Verdict {
	case VerdictFlat, VerdictExact, VerdictLearned:
		return d.Rules[0], true
	case VerdictAggregate:
		return d.Rules[len(d.Rules)-1], true
	default:
		return Rule{}, false
	}
}
