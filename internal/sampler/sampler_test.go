package sampler

import (
	"testing"

	"github.com/aapo-kossi/gym-eldorado/internal/batch"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespectsMask(t *testing.T) {
	s := must.M1(New(3, 17))
	require.Equal(t, 3, s.NumEnvs())
	masks := make([]batch.ActionMask, 3)
	for ii := range masks {
		masks[ii].Reset()
	}
	masks[1].Play[4] = true
	masks[1].Move[2] = true
	masks[1].Move[5] = true
	masks[2].GetFromShop[18] = true

	seen := map[uint8]int{}
	for range 200 {
		s.Sample(masks)
		for ii := range masks {
			assert.True(t, masks[ii].Allows(s.Actions()[ii]), "env %d: %+v", ii, s.Actions()[ii])
		}
		assert.True(t, s.Actions()[0].IsNull())
		seen[s.Actions()[1].Move]++
	}
	// All valid moves of env 1 are sampled.
	assert.Len(t, seen, 3)
}

func TestNew(t *testing.T) {
	_, err := New(0, 1)
	assert.Error(t, err)
}

func TestEmptyMask(t *testing.T) {
	s := must.M1(New(1, 0))
	var mask batch.ActionMask
	s.SampleSingle(&mask, 0)
	assert.Equal(t, batch.ActionData{}, s.Actions()[0])
}

func TestDeterministic(t *testing.T) {
	mask := batch.NewActionMask()
	for ii := range mask.Play {
		mask.Play[ii] = true
	}
	for ii := range mask.GetFromShop {
		mask.GetFromShop[ii] = true
	}
	s1, s2 := must.M1(New(4, 3)), must.M1(New(4, 3))
	var got1, got2 []batch.ActionData
	for range 20 {
		// Sampling order across environments doesn't matter.
		for ii := range 4 {
			s1.SampleSingle(&mask, ii)
		}
		for ii := 3; ii >= 0; ii-- {
			s2.SampleSingle(&mask, ii)
		}
		got1 = append(got1, s1.Actions()...)
		got2 = append(got2, s2.Actions()...)
	}
	assert.Equal(t, got1, got2)

	s3 := must.M1(New(4, 4))
	for range 20 {
		s3.Sample([]batch.ActionMask{mask, mask, mask, mask})
	}
	assert.NotEqual(t, got1[len(got1)-4:], s3.Actions())
}

func TestOutstandingCheck(t *testing.T) {
	s := must.M1(New(2, 0))
	pending := int64(1)
	s.SetOutstandingCheck(func() int64 { return pending })
	assert.Panics(t, func() { s.Actions() })
	assert.Panics(t, func() { s.Sample(make([]batch.ActionMask, 2)) })
	pending = 0
	assert.NotPanics(t, func() { s.Sample(make([]batch.ActionMask, 2)) })
	assert.Panics(t, func() { s.SampleSingle(&batch.ActionMask{}, 2) })
}
