package fabric

import (
	"fmt"
	"math"
)

// Coordinate is the path from the root to a switch: one 1-indexed child
// selection per level. The root has the empty coordinate.
type Coordinate []int

// Shape is the fabric-wide tree geometry.
type Shape struct {
	Fanout int
	Depth  int
}

func (s Shape) Validate() error {
	if s.Fanout < 2 {
		return configErrorf("shape", "fanout %d is below 2", s.Fanout)
	}
	if s.Depth < 1 {
		return configErrorf("shape", "depth %d is below 1", s.Depth)
	}
	if _, err := LevelStart(s.Fanout, s.Depth); err != nil {
		return err
	}
	return nil
}

// Switches returns the number of switches in a complete tree of this shape.
func (s Shape) Switches() (int64, error) {
	return LevelStart(s.Fanout, s.Depth)
}

// LevelWidth returns fanout^level, the number of switches on one level.
func LevelWidth(fanout, level int) (int64, error) {
	if fanout < 2 {
		return 0, configErrorf("level width", "fanout %d is below 2", fanout)
	}
	if level < 0 {
		return 0, configErrorf("level width", "level %d is negative", level)
	}
	width := int64(1)
	for l := 0; l < level; l++ {
		next, ok := mulInt64(width, fanout)
		if !ok {
			return 0, configErrorf("level width", "fanout %d overflows at level %d", fanout, l+1)
		}
		width = next
	}
	return width, nil
}

// LevelStart returns S(level) = (fanout^level - 1)/(fanout - 1), the id of
// the first switch on level.
func LevelStart(fanout, level int) (int64, error) {
	if fanout < 2 {
		return 0, configErrorf("level start", "fanout %d is below 2", fanout)
	}
	if level < 0 {
		return 0, configErrorf("level start", "level %d is negative", level)
	}
	start, width := int64(0), int64(1)
	for l := 0; l < level; l++ {
		if start > math.MaxInt64-width {
			return 0, configErrorf("level start", "fanout %d overflows at level %d", fanout, l+1)
		}
		start += width
		if l+1 == level {
			break
		}
		next, ok := mulInt64(width, fanout)
		if !ok {
			return 0, configErrorf("level start", "fanout %d overflows at level %d", fanout, l+1)
		}
		width = next
	}
	return start, nil
}

// Resolve maps a level-order switch id onto its tree coordinate. The level
// search never looks past depth; ids outside the tree are a configuration
// error rather than a deeper guess.
func Resolve(flatID int64, fanout, depth int) (Coordinate, error) {
	const op = "resolve"
	if fanout < 2 {
		return nil, configErrorf(op, "fanout %d is below 2", fanout)
	}
	if flatID < 0 {
		return nil, configErrorf(op, "switch id %d is negative", flatID)
	}
	if depth < 1 {
		return nil, configErrorf(op, "depth %d is below 1", depth)
	}

	start, width := int64(0), int64(1)
	for level := 0; level < depth; level++ {
		if flatID-start < width {
			return decodeRank(flatID-start, fanout, level), nil
		}
		start += width
		next, ok := mulInt64(width, fanout)
		if !ok {
			return nil, configErrorf(op, "fanout %d overflows at level %d", fanout, level+1)
		}
		width = next
	}
	return nil, configErrorf(op, "switch id %d is outside a %d-level tree of fanout %d", flatID, depth, fanout)
}

// decodeRank writes offset (rank-1 within the level) as level base-fanout
// digits shifted to 1..fanout.
func decodeRank(offset int64, fanout, level int) Coordinate {
	coord := make(Coordinate, level)
	f := int64(fanout)
	for i := level - 1; i >= 0; i-- {
		coord[i] = int(offset%f) + 1
		offset /= f
	}
	return coord
}

// ChildID returns the id of child i (1..fanout) of parent.
func ChildID(parent int64, fanout, i int) (int64, error) {
	if fanout < 2 {
		return 0, configErrorf("child id", "fanout %d is below 2", fanout)
	}
	if parent < 0 {
		return 0, configErrorf("child id", "switch id %d is negative", parent)
	}
	if i < 1 || i > fanout {
		return 0, configErrorf("child id", "child index %d outside 1..%d", i, fanout)
	}
	base, ok := mulInt64(parent, fanout)
	if !ok || base > math.MaxInt64-int64(i) {
		return 0, configErrorf("child id", "child of %d overflows", parent)
	}
	return base + int64(i), nil
}

func (c Coordinate) Level() int {
	return len(c)
}

// Valid reports whether every digit lies in 1..fanout.
func (c Coordinate) Valid(fanout int) bool {
	for _, d := range c {
		if d < 1 || d > fanout {
			return false
		}
	}
	return true
}

// Rank returns the 1-indexed position of the coordinate within its level,
// reading the digits as a bijective base-fanout numeral.
func (c Coordinate) Rank(fanout int) int64 {
	var offset int64
	for _, d := range c {
		offset = offset*int64(fanout) + int64(d-1)
	}
	return offset + 1
}

// FlatID is the inverse of Resolve.
func (c Coordinate) FlatID(fanout int) (int64, error) {
	if !c.Valid(fanout) {
		return 0, configErrorf("flat id", "coordinate %s has digits outside 1..%d", c, fanout)
	}
	start, err := LevelStart(fanout, c.Level())
	if err != nil {
		return 0, err
	}
	return start + c.Rank(fanout) - 1, nil
}

// Child returns a new coordinate one level down.
func (c Coordinate) Child(i int) Coordinate {
	out := make(Coordinate, len(c), len(c)+1)
	copy(out, c)
	return append(out, i)
}

// Parent returns the coordinate one level up; the root is its own parent.
func (c Coordinate) Parent() Coordinate {
	if len(c) == 0 {
		return Coordinate{}
	}
	out := make(Coordinate, len(c)-1)
	copy(out, c[:len(c)-1])
	return out
}

func (c Coordinate) Equal(other Coordinate) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

func (c Coordinate) String() string {
	return fmt.Sprint([]int(c))
}

func mulInt64(a int64, b int) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt64/int64(b) {
		return 0, false
	}
	return a * int64(b), true
}
