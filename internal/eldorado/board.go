package eldorado

import (
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/aapo-kossi/gym-eldorado/internal/batch"
	"github.com/aapo-kossi/gym-eldorado/internal/generics"
	"github.com/aapo-kossi/gym-eldorado/internal/geometry"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// HexKind describes what is in a position of the board.
type HexKind uint8

const (
	// OffBoard positions are not part of the map.
	OffBoard HexKind = iota
	Mountain
	Start
	Path
	End
)

// Hex is one position of the board.
type Hex struct {
	Kind     HexKind
	Resource Resource
	Required uint8

	// StartFor is the player (1-based) starting on this hex, for Start hexes.
	StartFor uint8

	// Occupier is the player (1-based) on this hex, or 0. End hexes are never occupied: players
	// reaching them leave the board.
	Occupier uint8
}

// Passable returns whether the hex can ever be entered.
func (h *Hex) Passable() bool {
	return h.Kind == Path || h.Kind == End
}

// parseHexes converts a description like "S1 m1 ^ u2 d1" to hexes: S<n> is the start hex of
// player n, ^ a mountain, and <r><n> a hex requiring n of resource r, where r is one of
// m (machete), p (paddle), c (coin), u (use) and d (remove). An "e" prefix makes it an end hex.
func parseHexes(desc string) []Hex {
	letters := map[byte]Resource{'m': MACHETE, 'p': PADDLE, 'c': COIN, 'u': USE, 'd': REMOVE}
	var hexes []Hex
	for _, token := range strings.Fields(desc) {
		switch {
		case token == "^":
			hexes = append(hexes, Hex{Kind: Mountain})
		case token[0] == 'S':
			hexes = append(hexes, Hex{Kind: Start, StartFor: token[1] - '0'})
		default:
			h := Hex{Kind: Path}
			if token[0] == 'e' {
				h.Kind = End
				token = token[1:]
			}
			h.Resource = letters[token[0]]
			h.Required = token[1] - '0'
			hexes = append(hexes, h)
		}
	}
	return hexes
}

// shape of a map piece: the positions of its hexes relative to its anchor, unrotated.
type shape int

const (
	largeShape shape = iota
	smallShape
	endShape
	numShapes
)

var shapeOffsets = [numShapes][]geometry.Pos{
	largeShape: rowsOffsets(-3, [][2]int{{0, 3}, {-1, 3}, {-2, 3}, {-3, 3}, {-3, 2}, {-3, 1}, {-3, 0}}),
	smallShape: rowsOffsets(-1, [][2]int{{-1, 3}, {-2, 3}, {-2, 2}}),
	endShape:   {{0, 0}, {1, 0}, {-1, 1}},
}

// rowsOffsets lists the positions of consecutive rows starting at y=firstY, each row spanning
// the given x range (inclusive).
func rowsOffsets(firstY int, rows [][2]int) (offsets []geometry.Pos) {
	for ii, row := range rows {
		for x := row[0]; x <= row[1]; x++ {
			offsets = append(offsets, geometry.Pos{int8(x), int8(firstY + ii)})
		}
	}
	return
}

// pieceKind defines which pieces can be used where.
type pieceKind uint8

const (
	startPiece pieceKind = iota
	travelPiece
	endPiece
)

// Piece is the template of a map piece.
type Piece struct {
	Name       string
	Kind       pieceKind
	Shape      shape
	Difficulty Difficulty
	Hexes      []Hex
}

// Pieces available to build maps. Hexes are listed in the order of their shape offsets.
var Pieces = []*Piece{
	{Name: "A1", Kind: startPiece, Shape: largeShape, Difficulty: EASY, Hexes: parseHexes(`
		S1 S2 S3 S4
		m1 m1 m1 m1 m1
		m1 m1 c1 m1 p1 m1
		m1 c1 m1 p1 m1 c1 m1
		m1 ^ c1 m1 m1 m1
		p1 ^ m1 m1 c1
		m1 d1 m1 m1`)},
	{Name: "C1", Kind: travelPiece, Shape: largeShape, Difficulty: EASY, Hexes: parseHexes(`
		m1 m1 p1 p1
		c1 u1 m1 c1 p1
		c1 u1 p1 p1 c1 c1
		p1 c1 u1 ^ p1 u1 u1
		p1 p1 c1 c1 u1 p1
		m1 c1 u1 p1 p1
		m1 m1 u1 u1`)},
	{Name: "G2", Kind: travelPiece, Shape: largeShape, Difficulty: HARD, Hexes: parseHexes(`
		m1 m1 m1 u1
		u1 p1 ^ m2 m1
		u1 m1 u1 m1 p1 c1
		^ ^ u3 p1 p1 ^ c1
		u1 u1 m3 ^ m1 c1
		m1 m2 m1 m2 c1
		m1 u1 m1 d1`)},
	{Name: "O", Kind: travelPiece, Shape: smallShape, Difficulty: MEDIUM, Hexes: parseHexes(`
		u2 m2 u1 c1 c2
		u1 ^ ^ p4 ^ c1
		u1 m1 m2 m1 c1`)},
	{Name: "EndPaddle", Kind: endPiece, Shape: endShape, Hexes: parseHexes("ep1 ep1 ep1")},
	{Name: "EndMachete", Kind: endPiece, Shape: endShape, Hexes: parseHexes("em1 em1 em1")},
}

// placement of a piece relative to the anchor and rotation of the previous piece.
type placement struct {
	offset   geometry.Pos
	rotation int
}

// minContact is the minimum number of hexes of a new piece adjacent to the previous piece. End
// pieces must lie entirely along it.
var minContact = [numShapes]int{largeShape: 3, smallShape: 3, endShape: 3}

// maxTranslation between the anchors of consecutive pieces.
const maxTranslation = 8

var (
	placementsOnce  sync.Once
	placementsTable [numShapes][numShapes][]placement
)

// placements returns all the ways a piece of shape next can be attached to an unrotated piece
// of shape prev anchored at the origin, without overlapping it.
func placements(prev, next shape) []placement {
	placementsOnce.Do(func() {
		for p := range numShapes {
			prevSet := generics.SetWith(shapeOffsets[p]...)
			touching := geometry.PosSet{}
			for pos := range prevSet {
				for _, neighbour := range pos.NeighboursIter() {
					if !prevSet.Has(neighbour) {
						touching.Insert(neighbour)
					}
				}
			}
			for n := range numShapes {
				// Iterate in a fixed order, so maps are reproducible for a given seed.
				for x := -maxTranslation; x <= maxTranslation; x++ {
					for y := -maxTranslation; y <= maxTranslation; y++ {
						translation := geometry.Pos{int8(x), int8(y)}
						if translation.Distance(geometry.Pos{}) > maxTranslation {
							continue
						}
					rotationsLoop:
						for rotation := range 6 {
							contact := 0
							for _, offset := range shapeOffsets[n] {
								pos := offset.Rotate(rotation).Add(translation)
								if prevSet.Has(pos) {
									continue rotationsLoop
								}
								if touching.Has(pos) {
									contact++
								}
							}
							if contact >= minContact[n] {
								placementsTable[p][n] = append(placementsTable[p][n], placement{translation, rotation})
							}
						}
					}
				}
			}
		}
	})
	return placementsTable[prev][next]
}

// placedPiece is a piece at its final position.
type placedPiece struct {
	piece    *Piece
	anchor   geometry.Pos
	rotation int
}

func (pp placedPiece) positions() []geometry.Pos {
	offsets := shapeOffsets[pp.piece.Shape]
	positions := make([]geometry.Pos, len(offsets))
	for ii, offset := range offsets {
		positions[ii] = offset.Rotate(pp.rotation).Add(pp.anchor)
	}
	return positions
}

// maxGenerationAttempts before map generation fails.
const maxGenerationAttempts = 32

// Board is the map of a game: a grid of hexes and the position of each player.
//
// Positions are relative to the lowest coordinates of the map, so they fit the observation grid.
type Board struct {
	Grid [batch.GridSize][batch.GridSize]Hex

	// Positions of the players, in grid coordinates.
	Positions [batch.MaxPlayers]geometry.Pos

	NumPlayers int
	Pieces     []string
}

// At returns the hex at the given position, or nil if it is off the grid.
func (b *Board) At(pos geometry.Pos) *Hex {
	if pos[0] < 0 || pos[1] < 0 || int(pos[0]) >= batch.GridSize || int(pos[1]) >= batch.GridSize {
		return nil
	}
	return &b.Grid[pos[0]][pos[1]]
}

// Generate a new random map with numPieces travel pieces of at most the given difficulty, and
// place numPlayers on their start hexes.
func (b *Board) Generate(rng *rand.Rand, numPieces int, difficulty Difficulty, numPlayers int) error {
	for attempt := range maxGenerationAttempts {
		placed, ok := tryGenerate(rng, numPieces, difficulty)
		if ok && b.fill(placed, numPlayers) {
			return nil
		}
		if klog.V(2).Enabled() {
			klog.Infof("Map generation attempt %d failed", attempt)
		}
	}
	return errors.Errorf("failed to generate a map with %d pieces within %d attempts", numPieces, maxGenerationAttempts)
}

func choosePiece(rng *rand.Rand, cond func(p *Piece) bool) *Piece {
	var pool []*Piece
	for _, p := range Pieces {
		if cond(p) {
			pool = append(pool, p)
		}
	}
	return pool[rng.IntN(len(pool))]
}

func tryGenerate(rng *rand.Rand, numPieces int, difficulty Difficulty) (placed []placedPiece, ok bool) {
	start := choosePiece(rng, func(p *Piece) bool { return p.Kind == startPiece })
	placed = append(placed, placedPiece{piece: start})
	blocked := geometry.PosSet{} // Hexes of all pieces but the last, and their neighbours.
	for ii := 0; ii <= numPieces; ii++ {
		last := placed[len(placed)-1]
		var next *Piece
		if ii == numPieces {
			next = choosePiece(rng, func(p *Piece) bool { return p.Kind == endPiece })
		} else {
			// Small pieces can't follow each other, nor be the last travel piece.
			allowSmall := last.piece.Shape != smallShape && ii < numPieces-1
			next = choosePiece(rng, func(p *Piece) bool {
				return p.Kind == travelPiece && p.Difficulty <= difficulty && (allowSmall || p.Shape != smallShape)
			})
		}
		if next.Kind == endPiece && last.piece.Shape != largeShape {
			return nil, false
		}

		var candidates []placedPiece
		for _, pl := range placements(last.piece.Shape, next.Shape) {
			candidate := placedPiece{
				piece:    next,
				anchor:   pl.offset.Rotate(last.rotation).Add(last.anchor),
				rotation: (pl.rotation + last.rotation) % 6,
			}
			if !blocked.Intersects(generics.SetWith(candidate.positions()...)) {
				candidates = append(candidates, candidate)
			}
		}
		if len(candidates) == 0 {
			return nil, false
		}
		for _, pos := range last.positions() {
			blocked.Insert(pos)
			for _, neighbour := range pos.NeighboursIter() {
				blocked.Insert(neighbour)
			}
		}
		placed = append(placed, candidates[rng.IntN(len(candidates))])
	}
	return placed, true
}

// fill the board grid with the placed pieces. It returns false if the map doesn't fit the grid.
func (b *Board) fill(placed []placedPiece, numPlayers int) bool {
	minPos, maxPos := geometry.Pos{127, 127}, geometry.Pos{-128, -128}
	for _, pp := range placed {
		for _, pos := range pp.positions() {
			for axis := range 2 {
				minPos[axis] = min(minPos[axis], pos[axis])
				maxPos[axis] = max(maxPos[axis], pos[axis])
			}
		}
	}
	for axis := range 2 {
		if int(maxPos[axis])-int(minPos[axis]) >= batch.GridSize {
			return false
		}
	}

	b.Grid = [batch.GridSize][batch.GridSize]Hex{}
	b.NumPlayers = numPlayers
	b.Pieces = b.Pieces[:0]
	for _, pp := range placed {
		b.Pieces = append(b.Pieces, pp.piece.Name)
		for ii, pos := range pp.positions() {
			hex := pp.piece.Hexes[ii]
			gridPos := pos.Sub(minPos)
			if hex.Kind == Start && int(hex.StartFor) <= numPlayers {
				hex.Occupier = hex.StartFor
				b.Positions[hex.StartFor-1] = gridPos
			}
			*b.At(gridPos) = hex
		}
	}
	return true
}

// MoveCost returns the resource and amount required to move player (0-based) in direction d,
// and whether the move is possible at all.
func (b *Board) MoveCost(player int, d geometry.Direction) (resource Resource, required uint8, ok bool) {
	if d == geometry.NONE || d >= geometry.NumDirections {
		return
	}
	target := b.At(b.Positions[player].Move(d))
	if target == nil || !target.Passable() || target.Occupier != 0 {
		return
	}
	return target.Resource, target.Required, true
}

// CanMove returns whether the player can move in direction d with the given resources.
func (b *Board) CanMove(player int, d geometry.Direction, resources *[NumResources]float32) bool {
	resource, required, ok := b.MoveCost(player, d)
	return ok && resources[resource] >= float32(required)
}

// Move player in direction d, without checking the cost. It returns the hex entered.
func (b *Board) Move(player int, d geometry.Direction) *Hex {
	from := b.At(b.Positions[player])
	if from.Occupier == uint8(player+1) {
		from.Occupier = 0
	}
	b.Positions[player] = b.Positions[player].Move(d)
	target := b.At(b.Positions[player])
	if target.Kind != End {
		target.Occupier = uint8(player + 1)
	}
	return target
}

// ObserveTerrain writes the static features of the map: for each hex, the amount of the required
// resource at feature 1+resource, and feature 6 set for end hexes. Feature 0 (occupier) is
// left to ObservePlayers.
func (b *Board) ObserveTerrain(obs *batch.MapObservation) {
	*obs = batch.MapObservation{}
	for x := range batch.GridSize {
		for y := range batch.GridSize {
			hex := &b.Grid[x][y]
			if !hex.Passable() {
				continue
			}
			obs[x][y][1+hex.Resource] = hex.Required
			if hex.Kind == End {
				obs[x][y][batch.NumMapFeatures-1] = 1
			}
		}
	}
}

// ObservePlayers sets feature 0 of the hexes with players to the player number (1-based).
func (b *Board) ObservePlayers(obs *batch.MapObservation) {
	for player := range b.NumPlayers {
		pos := b.Positions[player]
		obs[pos[0]][pos[1]][0] = uint8(player + 1)
	}
}

// ClearPlayer resets feature 0 of the hex where the player is.
func (b *Board) ClearPlayer(obs *batch.MapObservation, player int) {
	pos := b.Positions[player]
	if obs[pos[0]][pos[1]][0] == uint8(player+1) {
		obs[pos[0]][pos[1]][0] = 0
	}
}
