// Package sampler implements a batch of uniform random action samplers, one independent random
// stream per environment.
package sampler

import (
	"math/rand/v2"

	"github.com/aapo-kossi/gym-eldorado/internal/batch"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Batch of uniform samplers: for each category of the action, one of the valid sub-actions of
// the mask is chosen with equal probability.
//
// It implements batch.Sampler.
type Batch struct {
	rngs    []*rand.Rand
	actions []batch.ActionData

	pending func() int64
}

// Assert Batch implements batch.Sampler.
var _ batch.Sampler = &Batch{}

// New creates a Batch of samplers for numEnvs environments. Sampler idx uses the random stream
// idx of seed, so results don't depend on which worker samples it.
func New(numEnvs int, seed uint64) (*Batch, error) {
	if numEnvs <= 0 {
		return nil, errors.Errorf("sampler batch needs at least one environment, got %d", numEnvs)
	}
	s := &Batch{
		rngs:    make([]*rand.Rand, numEnvs),
		actions: make([]batch.ActionData, numEnvs),
	}
	for ii := range s.rngs {
		s.rngs[ii] = rand.New(rand.NewPCG(seed, uint64(ii)))
	}
	return s, nil
}

// NumEnvs implements batch.Sampler.
func (s *Batch) NumEnvs() int {
	return len(s.rngs)
}

// Actions implements batch.Sampler.
func (s *Batch) Actions() []batch.ActionData {
	s.checkOutstanding("Actions")
	return s.actions
}

// SetOutstandingCheck makes Actions and Sample panic if pending returns a positive count.
func (s *Batch) SetOutstandingCheck(pending func() int64) {
	s.pending = pending
}

func (s *Batch) checkOutstanding(method string) {
	if s.pending == nil {
		return
	}
	if n := s.pending(); n > 0 {
		exceptions.Panicf("sampler.%s called with %d tasks outstanding, Sync first", method, n)
	}
}

// SampleSingle implements batch.Sampler: it writes to Actions()[idx] an action allowed by mask.
func (s *Batch) SampleSingle(mask *batch.ActionMask, idx int) {
	if idx < 0 || idx >= len(s.rngs) {
		exceptions.Panicf("sampler index %d out of range [0, %d)", idx, len(s.rngs))
	}
	rng := s.rngs[idx]
	s.actions[idx] = batch.ActionData{
		Play:        choose(rng, mask.Play[:]),
		PlaySpecial: choose(rng, mask.PlaySpecial[:]),
		Remove:      choose(rng, mask.Remove[:]),
		Move:        choose(rng, mask.Move[:]),
		GetFromShop: choose(rng, mask.GetFromShop[:]),
	}
}

// Sample actions for all environments, sequentially.
func (s *Batch) Sample(masks []batch.ActionMask) {
	s.checkOutstanding("Sample")
	if len(masks) != len(s.rngs) {
		exceptions.Panicf("sampler got %d masks for %d environments", len(masks), len(s.rngs))
	}
	for ii := range masks {
		s.SampleSingle(&masks[ii], ii)
	}
}

// choose returns the index of a uniformly chosen true entry of valid, or 0 if there is none.
func choose(rng *rand.Rand, valid []bool) uint8 {
	count := 0
	for _, v := range valid {
		if v {
			count++
		}
	}
	if count == 0 {
		return 0
	}
	nth := rng.IntN(count)
	for ii, v := range valid {
		if !v {
			continue
		}
		if nth == 0 {
			return uint8(ii)
		}
		nth--
	}
	return 0
}
