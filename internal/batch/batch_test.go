package batch

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestActionMask(t *testing.T) {
	var m ActionMask
	assert.False(t, m.Allows(ActionData{}))
	m = NewActionMask()
	assert.True(t, m.Allows(ActionData{}))
	assert.False(t, m.Allows(ActionData{Move: 1}))
	m.Move[1] = true
	m.Play[NumCardTypes] = true
	assert.True(t, m.Allows(ActionData{Move: 1, Play: NumCardTypes}))
	assert.False(t, m.Allows(ActionData{Move: 1, Remove: 2}))
	assert.False(t, m.Allows(ActionData{Move: uint8(NumDirections)}))
	assert.False(t, m.Allows(ActionData{GetFromShop: 255}))

	m.Reset()
	assert.Equal(t, NewActionMask(), m)
}

func TestIsNull(t *testing.T) {
	assert.True(t, ActionData{}.IsNull())
	assert.True(t, ActionData{Remove: 3}.IsNull())
	assert.False(t, ActionData{Play: 1}.IsNull())
	assert.False(t, ActionData{Move: 2}.IsNull())
	assert.False(t, ActionData{GetFromShop: 5}.IsNull())
}

func TestLayout(t *testing.T) {
	// Records are plain values, densely packed in batches.
	assert.Equal(t, uintptr(5), unsafe.Sizeof(ActionData{}))
	assert.Equal(t, uintptr(3*(NumCardTypes+1)+NumDirections+NumBuyableTypes+1), unsafe.Sizeof(ActionMask{}))
	assert.Equal(t, uintptr(GridSize*GridSize*NumMapFeatures), unsafe.Sizeof(MapObservation{}))
	var d DeckObs
	d.Hand[3] = 2
	d.Reset()
	assert.Equal(t, DeckObs{}, d)
}
