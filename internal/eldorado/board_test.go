package eldorado

import (
	"math/rand/v2"
	"testing"

	"github.com/aapo-kossi/gym-eldorado/internal/batch"
	"github.com/aapo-kossi/gym-eldorado/internal/generics"
	"github.com/aapo-kossi/gym-eldorado/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPieces(t *testing.T) {
	assert.Len(t, shapeOffsets[largeShape], 37)
	assert.Len(t, shapeOffsets[smallShape], 16)
	for _, p := range Pieces {
		assert.Len(t, p.Hexes, len(shapeOffsets[p.Shape]), "piece %s", p.Name)
	}
	// Large pieces are discs of radius 3.
	assert.True(t, geometry.Disc(geometry.Pos{}, 3).Equal(generics.SetWith(shapeOffsets[largeShape]...)))
	// Starting hexes are the first row of the starting piece.
	for ii := range batch.MaxPlayers {
		assert.Equal(t, Start, Pieces[0].Hexes[ii].Kind)
		assert.Equal(t, uint8(ii+1), Pieces[0].Hexes[ii].StartFor)
	}
	for _, shapes := range [][2]shape{{largeShape, largeShape}, {largeShape, smallShape}, {smallShape, largeShape}, {largeShape, endShape}} {
		assert.NotEmpty(t, placements(shapes[0], shapes[1]), "placements of %v", shapes)
	}
}

func TestGenerate(t *testing.T) {
	for numPieces := 1; numPieces <= 4; numPieces++ {
		for _, difficulty := range []Difficulty{EASY, MEDIUM, HARD} {
			for seed := range uint64(5) {
				var b Board
				err := b.Generate(rand.New(rand.NewPCG(seed, 0)), numPieces, difficulty, 3)
				require.NoError(t, err)
				require.Len(t, b.Pieces, numPieces+2)
				assert.Equal(t, "A1", b.Pieces[0])
				assert.Contains(t, []string{"EndPaddle", "EndMachete"}, b.Pieces[numPieces+1])
				if difficulty == EASY {
					for _, name := range b.Pieces[1 : numPieces+1] {
						assert.Equal(t, "C1", name)
					}
				}

				var numEnd, numPassable int
				for x := range batch.GridSize {
					for y := range batch.GridSize {
						hex := &b.Grid[x][y]
						if hex.Kind == End {
							numEnd++
						}
						if hex.Passable() {
							numPassable++
						}
					}
				}
				assert.Equal(t, 3, numEnd)
				assert.Greater(t, numPassable, 20*numPieces)

				// Players on their start hexes, and the 4th start hex empty.
				for player := range 3 {
					hex := b.At(b.Positions[player])
					require.NotNil(t, hex)
					assert.Equal(t, Start, hex.Kind)
					assert.Equal(t, uint8(player+1), hex.Occupier)
				}
			}
		}
	}
}

func TestGenerateReproducible(t *testing.T) {
	var b1, b2 Board
	require.NoError(t, b1.Generate(rand.New(rand.NewPCG(7, 7)), 4, HARD, 4))
	require.NoError(t, b2.Generate(rand.New(rand.NewPCG(7, 7)), 4, HARD, 4))
	assert.Equal(t, b1.Pieces, b2.Pieces)
	assert.Equal(t, b1.Positions, b2.Positions)
	assert.True(t, b1.Grid == b2.Grid)
}

func TestMoves(t *testing.T) {
	var b Board
	require.NoError(t, b.Generate(rand.New(rand.NewPCG(3, 0)), 2, EASY, 2))
	var resources [NumResources]float32
	for d := geometry.NONE; d < geometry.NumDirections; d++ {
		assert.False(t, b.CanMove(0, d, &resources), "no resources, direction %s", d)
	}
	for r := range NumResources {
		resources[r] = 10
	}
	// Start hexes are not passable, so a player can only leave the first row.
	var moved bool
	for d := geometry.EAST; d < geometry.NumDirections; d++ {
		if !b.CanMove(0, d, &resources) {
			continue
		}
		_, required, ok := b.MoveCost(0, d)
		require.True(t, ok)
		assert.Greater(t, required, uint8(0))
		from := b.Positions[0]
		hex := b.Move(0, d)
		assert.Equal(t, from.Move(d), b.Positions[0])
		assert.Equal(t, uint8(1), hex.Occupier)
		assert.Equal(t, uint8(0), b.At(from).Occupier)
		moved = true
		break
	}
	assert.True(t, moved)

	var obs batch.MapObservation
	b.ObserveTerrain(&obs)
	b.ObservePlayers(&obs)
	pos := b.Positions[0]
	assert.Equal(t, uint8(1), obs[pos[0]][pos[1]][0])
	hex := b.At(pos)
	assert.Equal(t, hex.Required, obs[pos[0]][pos[1]][1+hex.Resource])
	b.ClearPlayer(&obs, 0)
	assert.Equal(t, uint8(0), obs[pos[0]][pos[1]][0])
}
