package fabric

// SwitchClass selects the forwarding scheme for a switch.
type SwitchClass int

const (
	// ClassHierarchical switches route by their tree coordinate.
	ClassHierarchical SwitchClass = iota
	// ClassFlat switches sit in the two-tier core and forward on the second
	// address segment alone.
	ClassFlat
)

func (c SwitchClass) String() string {
	switch c {
	case ClassHierarchical:
		return "hierarchical"
	case ClassFlat:
		return "flat"
	default:
		return "unknown"
	}
}

// Classify marks every datapath id above threshold as flat.
func Classify(dpid, threshold uint64) SwitchClass {
	if dpid > threshold {
		return ClassFlat
	}
	return ClassHierarchical
}
