package fabric

import (
	"errors"
	"testing"

	"github.com/danmuck/fabricctl/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFanoutFourKnownValues(t *testing.T) {
	testlog.Start(t)

	cases := []struct {
		id   int64
		want Coordinate
	}{
		{0, Coordinate{}},
		{1, Coordinate{1}},
		{2, Coordinate{2}},
		{4, Coordinate{4}},
		{5, Coordinate{1, 1}},
		{8, Coordinate{1, 4}},
		{9, Coordinate{2, 1}},
		{20, Coordinate{4, 4}},
	}
	for _, tc := range cases {
		got, err := Resolve(tc.id, 4, 3)
		require.NoError(t, err, "id=%d", tc.id)
		assert.Equal(t, tc.want, got, "id=%d", tc.id)
	}
}

func TestResolveRoundTripsEveryID(t *testing.T) {
	testlog.Start(t)

	for _, shape := range []Shape{{2, 5}, {3, 4}, {4, 3}, {7, 3}} {
		total, err := shape.Switches()
		require.NoError(t, err)

		for id := int64(0); id < total; id++ {
			coord, err := Resolve(id, shape.Fanout, shape.Depth)
			require.NoError(t, err, "shape=%+v id=%d", shape, id)
			require.True(t, coord.Valid(shape.Fanout), "digits out of range: %s", coord)

			start, err := LevelStart(shape.Fanout, coord.Level())
			require.NoError(t, err)
			require.Equal(t, id-start+1, coord.Rank(shape.Fanout), "rank mismatch id=%d", id)

			back, err := coord.FlatID(shape.Fanout)
			require.NoError(t, err)
			require.Equal(t, id, back)
		}
		t.Logf("fabric/resolve: shape=%+v switches=%d round trip ok", shape, total)
	}
}

func TestResolveLevelsMatchLevelWidths(t *testing.T) {
	testlog.Start(t)

	counts := map[int]int64{}
	total, err := Shape{Fanout: 3, Depth: 4}.Switches()
	require.NoError(t, err)
	for id := int64(0); id < total; id++ {
		coord, err := Resolve(id, 3, 4)
		require.NoError(t, err)
		counts[coord.Level()]++
	}
	for level := 0; level < 4; level++ {
		width, err := LevelWidth(3, level)
		require.NoError(t, err)
		assert.Equal(t, width, counts[level], "level %d", level)
	}
}

func TestChildIDAgreesWithResolve(t *testing.T) {
	testlog.Start(t)

	const fanout, depth = 4, 3
	leafStart, err := LevelStart(fanout, depth-1)
	require.NoError(t, err)

	for parent := int64(0); parent < leafStart; parent++ {
		parentCoord, err := Resolve(parent, fanout, depth)
		require.NoError(t, err)
		for i := 1; i <= fanout; i++ {
			child, err := ChildID(parent, fanout, i)
			require.NoError(t, err)
			coord, err := Resolve(child, fanout, depth)
			require.NoError(t, err)
			require.True(t, coord.Equal(parentCoord.Child(i)), "parent=%d i=%d got %s", parent, i, coord)
			require.True(t, coord.Parent().Equal(parentCoord))
		}
	}
}

func TestResolveConfigurationErrors(t *testing.T) {
	testlog.Start(t)

	cases := []struct {
		name   string
		id     int64
		fanout int
		depth  int
	}{
		{"fanout below two", 3, 1, 3},
		{"negative id", -1, 4, 3},
		{"zero depth", 0, 4, 0},
		{"id beyond depth", 21, 4, 3},
		{"id one past two levels", 5, 4, 2},
		{"overflowing fanout", 1 << 62, 1 << 40, 8},
	}
	for _, tc := range cases {
		_, err := Resolve(tc.id, tc.fanout, tc.depth)
		require.Error(t, err, tc.name)
		assert.True(t, errors.Is(err, ErrConfiguration), "%s: %v", tc.name, err)

		var cfgErr *ConfigurationError
		assert.True(t, errors.As(err, &cfgErr), tc.name)
	}
}

func TestLevelStartClosedForm(t *testing.T) {
	for _, fanout := range []int{2, 3, 4, 10} {
		for level := 0; level < 6; level++ {
			got, err := LevelStart(fanout, level)
			require.NoError(t, err)
			width, err := LevelWidth(fanout, level)
			require.NoError(t, err)
			assert.Equal(t, (width-1)/int64(fanout-1), got, "fanout=%d level=%d", fanout, level)
		}
	}
}

func TestShapeValidate(t *testing.T) {
	require.NoError(t, Shape{Fanout: 4, Depth: 3}.Validate())
	require.ErrorIs(t, Shape{Fanout: 1, Depth: 3}.Validate(), ErrConfiguration)
	require.ErrorIs(t, Shape{Fanout: 4, Depth: 0}.Validate(), ErrConfiguration)
	require.ErrorIs(t, Shape{Fanout: 1 << 20, Depth: 8}.Validate(), ErrConfiguration)
}

func TestCoordinateString(t *testing.T) {
	assert.Equal(t, "[]", Coordinate{}.String())
	assert.Equal(t, "[2 3]", Coordinate{2, 3}.String())
}
