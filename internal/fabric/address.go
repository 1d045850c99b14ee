package fabric

import (
	"fmt"
	"net"
	"net/netip"
)

const (
	// AddressSegments is the number of dotted segments in an IPv4 address.
	AddressSegments = 4
	// ReservedSegment marks broadcast-style destinations that are never routed.
	ReservedSegment = 255
	// MaxHierarchicalDepth is the deepest tree whose coordinates, network
	// constant and host index fit in four segments.
	MaxHierarchicalDepth = AddressSegments - 1
)

// Address is a fixed-width IPv4 destination with segment-indexed access.
// Segment 0 is the fabric network constant; segments 1..level carry the
// coordinate of the owning switch; the next segment is a child or host index.
type Address [AddressSegments]byte

func AddressFromIP(ip net.IP) (Address, bool) {
	v4 := ip.To4()
	if v4 == nil {
		return Address{}, false
	}
	var a Address
	copy(a[:], v4)
	return a, true
}

func AddressFromAddr(addr netip.Addr) (Address, bool) {
	if !addr.Is4() {
		return Address{}, false
	}
	return Address(addr.As4()), true
}

func ParseAddress(raw string) (Address, error) {
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return Address{}, fmt.Errorf("fabric: parse address %q: %w", raw, err)
	}
	a, ok := AddressFromAddr(addr)
	if !ok {
		return Address{}, fmt.Errorf("fabric: address %q is not IPv4", raw)
	}
	return a, nil
}

func (a Address) Segment(i int) int {
	return int(a[i])
}

// IsReserved reports a sentinel 255 in either of the two leading segments.
func (a Address) IsReserved() bool {
	return a[0] == ReservedSegment || a[1] == ReservedSegment
}

func (a Address) Addr() netip.Addr {
	return netip.AddrFrom4([AddressSegments]byte(a))
}

// Prefix truncates the address to bits and returns the masked prefix.
func (a Address) Prefix(bits int) netip.Prefix {
	return netip.PrefixFrom(a.Addr(), bits).Masked()
}

func (a Address) String() string {
	return a.Addr().String()
}

// PrefixBits is the match length that isolates one child subtree of a switch
// at level: network constant, the level coordinate digits and the child index.
func PrefixBits(level int) int {
	bits := 8 * (level + 2)
	if bits > 8*AddressSegments {
		return 8 * AddressSegments
	}
	return bits
}

// SubtreeAddress renders [network, coord..., child, 0...]. The caller must keep
// len(coord)+2 within AddressSegments.
func SubtreeAddress(network uint8, coord Coordinate, child int) Address {
	var a Address
	a[0] = network
	for i, d := range coord {
		a[i+1] = byte(d)
	}
	a[len(coord)+1] = byte(child)
	return a
}
