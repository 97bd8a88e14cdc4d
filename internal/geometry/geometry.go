// Package geometry implements the hexagonal grid used by the El Dorado maps.
//
// Positions are axial coordinates packed in a Pos. The 6 neighbours of a hex are reached
// through the non-null Directions, and Direction NONE means staying in place.
package geometry

import (
	"fmt"
	"iter"

	"github.com/aapo-kossi/gym-eldorado/internal/generics"
)

// Pos packages x, y axial coordinates of a hex.
type Pos [2]int8

// X coordinate of the position.
func (pos Pos) X() int8 {
	return pos[0]
}

// Y coordinate of the position.
func (pos Pos) Y() int8 {
	return pos[1]
}

// Add returns pos+other.
func (pos Pos) Add(other Pos) Pos {
	return Pos{pos[0] + other[0], pos[1] + other[1]}
}

// Sub returns pos-other.
func (pos Pos) Sub(other Pos) Pos {
	return Pos{pos[0] - other[0], pos[1] - other[1]}
}

// Scale returns pos multiplied by factor.
func (pos Pos) Scale(factor int8) Pos {
	return Pos{pos[0] * factor, pos[1] * factor}
}

// Distance returns the number of hex steps between the two positions.
func (pos Pos) Distance(pos2 Pos) int {
	dx := int(pos[0]) - int(pos2[0])
	dy := int(pos[1]) - int(pos2[1])
	return (generics.Abs(dx) + generics.Abs(dy) + generics.Abs(dx+dy)) / 2
}

// String returns a text representation of Pos.
func (pos Pos) String() string {
	return fmt.Sprintf("(%d, %d)", pos[0], pos[1])
}

// Rotate pos around the origin by times*60 degrees, clockwise.
func (pos Pos) Rotate(times int) Pos {
	times = ((times % 6) + 6) % 6
	x, y := pos[0], pos[1]
	for range times {
		x, y = x+y, -x
	}
	return Pos{x, y}
}

// Direction of a movement on the hex grid.
type Direction uint8

const (
	NONE Direction = iota
	EAST
	NORTHEAST
	NORTHWEST
	WEST
	SOUTHWEST
	SOUTHEAST
	NumDirections
)

var (
	directionOffsets = [NumDirections]Pos{
		{0, 0}, {1, 0}, {0, 1}, {-1, 1}, {-1, 0}, {0, -1}, {1, -1},
	}
	directionNames = [NumDirections]string{
		"None", "East", "NorthEast", "NorthWest", "West", "SouthWest", "SouthEast",
	}
)

// String returns the direction name.
func (d Direction) String() string {
	if d >= NumDirections {
		return fmt.Sprintf("Direction(%d)", d)
	}
	return directionNames[d]
}

// Offset returns the relative position of moving in the direction d.
func (d Direction) Offset() Pos {
	return directionOffsets[d]
}

// Move returns the position reached from pos moving one step in direction d.
func (pos Pos) Move(d Direction) Pos {
	return pos.Add(directionOffsets[d])
}

// NeighboursIter iterates over the 6 neighbours of pos, in Direction order (skipping NONE).
func (pos Pos) NeighboursIter() iter.Seq2[Direction, Pos] {
	return func(yield func(Direction, Pos) bool) {
		for d := EAST; d < NumDirections; d++ {
			if !yield(d, pos.Move(d)) {
				return
			}
		}
	}
}

// PosSet is a set of positions.
type PosSet = generics.Set[Pos]

// Disc returns the set of positions within radius steps of center.
func Disc(center Pos, radius int) PosSet {
	set := generics.MakeSet[Pos](3*radius*(radius+1) + 1)
	for dx := -radius; dx <= radius; dx++ {
		for dy := max(-radius, -dx-radius); dy <= min(radius, -dx+radius); dy++ {
			set.Insert(center.Add(Pos{int8(dx), int8(dy)}))
		}
	}
	return set
}

// Cube holds the continuous cube coordinates of a point.
type Cube struct {
	U, V, W float32
}

// Point holds continuous x, y coordinates, used for rendering.
type Point struct {
	X, Y float32
}

// CubeToXY converts cube coordinates to the continuous x, y plane.
func CubeToXY(c Cube) Point {
	return Point{
		X: -4.0 / 3.0 * (c.V + 0.5*c.U),
		Y: 4.0 / 3.0 * (c.U + 0.5*c.V),
	}
}

// XYToCube is the inverse of CubeToXY.
func XYToCube(p Point) Cube {
	halfX, halfY := p.X/2, p.Y/2
	return Cube{
		U: halfX + p.Y,
		V: -p.X - halfY,
		W: halfX - halfY,
	}
}
