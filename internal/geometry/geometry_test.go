package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	origin := Pos{0, 0}
	for d := EAST; d < NumDirections; d++ {
		assert.Equal(t, 1, origin.Distance(origin.Move(d)), "direction %s", d)
	}
	assert.Equal(t, 0, origin.Distance(origin.Move(NONE)))
	assert.Equal(t, 3, Pos{2, 1}.Distance(Pos{0, 0}))
	assert.Equal(t, 2, Pos{1, -2}.Distance(Pos{0, 0}))
	assert.Equal(t, 4, Pos{-2, 3}.Distance(Pos{2, -1}))
}

func TestRotate(t *testing.T) {
	pos := Pos{2, -1}
	assert.Equal(t, pos, pos.Rotate(6))
	assert.Equal(t, pos, pos.Rotate(-6))
	assert.Equal(t, pos.Rotate(5), pos.Rotate(-1))
	for times := range 6 {
		assert.Equal(t, pos.Distance(Pos{}), pos.Rotate(times).Distance(Pos{}))
	}
	// Rotating the neighbours visits all of them.
	seen := PosSet{}
	for times := range 6 {
		seen.Insert(Pos{1, 0}.Rotate(times))
	}
	assert.Len(t, seen, 6)
}

func TestDisc(t *testing.T) {
	for radius := range 5 {
		disc := Disc(Pos{3, -2}, radius)
		assert.Len(t, disc, 3*radius*(radius+1)+1)
		for pos := range disc {
			assert.LessOrEqual(t, pos.Distance(Pos{3, -2}), radius)
		}
	}
}

func TestNeighboursIter(t *testing.T) {
	var dirs []Direction
	for d, pos := range (Pos{5, 5}).NeighboursIter() {
		dirs = append(dirs, d)
		assert.Equal(t, 1, pos.Distance(Pos{5, 5}))
	}
	assert.Equal(t, []Direction{EAST, NORTHEAST, NORTHWEST, WEST, SOUTHWEST, SOUTHEAST}, dirs)
}

func TestCubeRoundTrip(t *testing.T) {
	for _, p := range []Point{{0, 0}, {1, 2}, {-3, 0.5}} {
		got := CubeToXY(XYToCube(p))
		assert.InDelta(t, p.X, got.X, 1e-5)
		assert.InDelta(t, p.Y, got.Y, 1e-5)
	}
}
