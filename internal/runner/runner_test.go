package runner

import (
	"math/rand/v2"
	"runtime"
	"testing"

	"github.com/aapo-kossi/gym-eldorado/internal/batch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEnvs is a batch of trivial environments that count how they are called.
//
// Each slot is only ever touched by the worker owning it, so no locking is needed: the race
// detector flags any violation of the partitioning.
type countingEnvs struct {
	maxSteps int
	gate     chan struct{}

	masks      []batch.ActionMask
	stepCalls  []int
	steps      []int
	dones      []bool
	lastAction []batch.ActionData
	invalid    []int

	outstanding func() int64
}

func newCountingEnvs(n, maxSteps int) *countingEnvs {
	e := &countingEnvs{
		maxSteps:   maxSteps,
		masks:      make([]batch.ActionMask, n),
		stepCalls:  make([]int, n),
		steps:      make([]int, n),
		dones:      make([]bool, n),
		lastAction: make([]batch.ActionData, n),
		invalid:    make([]int, n),
	}
	for idx := range e.masks {
		e.setMask(idx)
	}
	return e
}

// setMask enables a different subset of actions per slot and per step.
func (e *countingEnvs) setMask(idx int) {
	m := &e.masks[idx]
	m.Reset()
	for ii := 1; ii < len(m.Play); ii++ {
		m.Play[ii] = (ii+idx+e.steps[idx])%3 == 0
	}
	for ii := 1; ii < len(m.Move); ii++ {
		m.Move[ii] = (ii+e.steps[idx])%2 == 0
	}
	m.GetFromShop[1+(idx%batch.NumBuyableTypes)] = true
}

func (e *countingEnvs) NumEnvs() int                            { return len(e.masks) }
func (e *countingEnvs) SelectedActionMasks() []batch.ActionMask { return e.masks }
func (e *countingEnvs) SetOutstandingCheck(f func() int64)      { e.outstanding = f }

func (e *countingEnvs) StepSingle(action *batch.ActionData, idx int) {
	if e.gate != nil {
		<-e.gate
	}
	if !e.masks[idx].Allows(*action) {
		e.invalid[idx]++
	}
	e.stepCalls[idx]++
	e.lastAction[idx] = *action
	if e.dones[idx] {
		e.steps[idx] = 0
	}
	e.steps[idx]++
	e.dones[idx] = e.steps[idx] >= e.maxSteps
	e.setMask(idx)
}

// uniformSampler picks uniformly among the valid entries of each category, with one random
// stream per slot.
type uniformSampler struct {
	rngs        []*rand.Rand
	actions     []batch.ActionData
	sampleCalls []int
}

func newUniformSampler(n int) *uniformSampler {
	s := &uniformSampler{
		rngs:        make([]*rand.Rand, n),
		actions:     make([]batch.ActionData, n),
		sampleCalls: make([]int, n),
	}
	for idx := range s.rngs {
		s.rngs[idx] = rand.New(rand.NewPCG(42, uint64(idx)))
	}
	return s
}

func (s *uniformSampler) NumEnvs() int                { return len(s.actions) }
func (s *uniformSampler) Actions() []batch.ActionData { return s.actions }

func pick(rng *rand.Rand, valid []bool) uint8 {
	var choices []uint8
	for ii, ok := range valid {
		if ok {
			choices = append(choices, uint8(ii))
		}
	}
	return choices[rng.IntN(len(choices))]
}

func (s *uniformSampler) SampleSingle(mask *batch.ActionMask, idx int) {
	rng := s.rngs[idx]
	s.sampleCalls[idx]++
	s.actions[idx] = batch.ActionData{
		Play:        pick(rng, mask.Play[:]),
		PlaySpecial: pick(rng, mask.PlaySpecial[:]),
		Remove:      pick(rng, mask.Remove[:]),
		Move:        pick(rng, mask.Move[:]),
		GetFromShop: pick(rng, mask.GetFromShop[:]),
	}
}

func TestNewErrors(t *testing.T) {
	envs, samplers := newCountingEnvs(5, 10), newUniformSampler(5)
	for _, cfg := range []Config{
		{Threads: -1},
		{Threads: 6},
		{QueueCapacity: 100},
		{QueueCapacity: -4},
	} {
		_, err := New(envs, samplers, cfg)
		assert.Error(t, err, "config %+v", cfg)
	}

	_, err := New(envs, newUniformSampler(4), Config{})
	assert.Error(t, err)
	_, err = New(newCountingEnvs(0, 10), newUniformSampler(0), Config{})
	assert.Error(t, err)
}

func TestConfigFromString(t *testing.T) {
	cfg, err := ConfigFromString("threads=3, queue=64,pin,debug")
	require.NoError(t, err)
	assert.Equal(t, Config{Threads: 3, QueueCapacity: 64, PinThreads: true, DebugChecks: true}, cfg)

	cfg, err = ConfigFromString("")
	require.NoError(t, err)
	assert.Equal(t, Config{}, cfg)

	_, err = ConfigFromString("threads=3,foo=1")
	assert.Error(t, err)
	_, err = ConfigFromString("threads=x")
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	n := 2*runtime.GOMAXPROCS(0) + 1
	r, err := New(newCountingEnvs(n, 10), newUniformSampler(n), Config{})
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, runtime.GOMAXPROCS(0), r.NumThreads())
	assert.Equal(t, DefaultQueueCapacity, r.Config().QueueCapacity)
	assert.Equal(t, DefaultSyncSpins, r.Config().SyncSpins)
	assert.Len(t, r.Partitions(), r.NumThreads())

	r2, err := New(newCountingEnvs(1, 10), newUniformSampler(1), Config{})
	require.NoError(t, err)
	defer r2.Close()
	assert.Equal(t, 1, r2.NumThreads())
}

func TestStepCountsAndMasks(t *testing.T) {
	const n = 23
	for _, threads := range []int{1, 2, 3, 7, n} {
		envs, samplers := newCountingEnvs(n, 1000), newUniformSampler(n)
		r, err := New(envs, samplers, Config{Threads: threads, QueueCapacity: 4})
		require.NoError(t, err)
		assert.Equal(t, threads, r.NumThreads())

		const numCycles = 20
		for cycle := 1; cycle <= numCycles; cycle++ {
			r.Sample()
			r.Step()
			r.Sync()
			assert.Equal(t, int64(0), r.Pending())
			for idx := range n {
				require.Equal(t, cycle, envs.stepCalls[idx], "threads=%d, idx=%d", threads, idx)
				require.Equal(t, cycle, samplers.sampleCalls[idx], "threads=%d, idx=%d", threads, idx)
				// Sample before Step: the action stepped is the one just sampled.
				require.Equal(t, samplers.actions[idx], envs.lastAction[idx])
			}
		}
		r.Close()
		for idx := range n {
			assert.Zero(t, envs.invalid[idx], "sampled actions must be allowed by the mask")
		}
	}
}

func TestManyTasksBeforeSync(t *testing.T) {
	// More tasks than the queue capacity: enqueueing blocks until workers catch up.
	const n = 9
	envs, samplers := newCountingEnvs(n, 1000), newUniformSampler(n)
	r, err := New(envs, samplers, Config{Threads: 3, QueueCapacity: 2})
	require.NoError(t, err)
	defer r.Close()
	const numCycles = 50
	for range numCycles {
		r.Sample()
		r.Step()
	}
	r.Sync()
	assert.Zero(t, r.Pending())
	for idx := range n {
		assert.Equal(t, numCycles, envs.stepCalls[idx])
		assert.Equal(t, numCycles, samplers.sampleCalls[idx])
		assert.Zero(t, envs.invalid[idx])
	}
}

func TestPendingWhileWorking(t *testing.T) {
	const n, threads = 8, 4
	envs, samplers := newCountingEnvs(n, 1000), newUniformSampler(n)
	envs.gate = make(chan struct{})
	r, err := New(envs, samplers, Config{Threads: threads, SyncSpins: -1})
	require.NoError(t, err)
	defer r.Close()

	r.Step()
	// No worker can finish while the gate is closed.
	assert.Equal(t, int64(threads), r.Pending())
	r.Step()
	assert.Equal(t, int64(2*threads), r.Pending())
	close(envs.gate)
	r.Sync()
	assert.Zero(t, r.Pending())
	for idx := range n {
		assert.Equal(t, 2, envs.stepCalls[idx])
	}
}

func TestClose(t *testing.T) {
	const n = 12
	for threads := 1; threads <= n; threads++ {
		envs, samplers := newCountingEnvs(n, 1000), newUniformSampler(n)
		r, err := New(envs, samplers, Config{Threads: threads})
		require.NoError(t, err)
		r.Sample()
		r.Step()
		// Close without Sync: queued tasks are executed before the workers stop.
		r.Close()
		assert.Zero(t, r.Pending())
		for idx := range n {
			assert.Equal(t, 1, envs.stepCalls[idx])
		}
		r.Close() // Idempotent.
		assert.Panics(t, func() { r.Step() })
		assert.Panics(t, func() { r.Sample() })
	}
}

func TestDebugChecks(t *testing.T) {
	envs, samplers := newCountingEnvs(4, 10), newUniformSampler(4)
	r, err := New(envs, samplers, Config{Threads: 2})
	require.NoError(t, err)
	assert.Nil(t, envs.outstanding)
	r.Close()

	r, err = New(envs, samplers, Config{Threads: 2, DebugChecks: true})
	require.NoError(t, err)
	defer r.Close()
	require.NotNil(t, envs.outstanding)
	r.StepSync()
	assert.Zero(t, envs.outstanding())
}

func TestEndToEnd(t *testing.T) {
	const n, threads, maxSteps = 17, 4, 5
	envs, samplers := newCountingEnvs(n, maxSteps), newUniformSampler(n)
	r, err := New(envs, samplers, Config{Threads: threads})
	require.NoError(t, err)
	defer r.Close()

	var sizes []int
	for _, p := range r.Partitions() {
		sizes = append(sizes, p.Len())
	}
	assert.Equal(t, []int{5, 4, 4, 4}, sizes)
	assert.Same(t, &envs.masks[0], &r.ActionMasks()[0])
	assert.Same(t, &samplers.actions[0], &r.Actions()[0])
	assert.Equal(t, batch.Environments(envs), r.Envs())
	assert.Equal(t, batch.Sampler(samplers), r.Samplers())

	for cycle := 1; cycle <= 10; cycle++ {
		r.Sample()
		r.Sync()
		assert.Zero(t, r.Pending())
		r.Step()
		r.Sync()
		assert.Zero(t, r.Pending())
		for idx := range n {
			assert.Equal(t, cycle%maxSteps == 0, envs.dones[idx], "cycle %d, idx %d", cycle, idx)
		}
	}
}

func benchmarkRunner(b *testing.B, n, threads int) {
	envs, samplers := newCountingEnvs(n, 100), newUniformSampler(n)
	r, err := New(envs, samplers, Config{Threads: threads})
	require.NoError(b, err)
	defer r.Close()
	b.ResetTimer()
	for range b.N {
		r.Sample()
		r.Step()
		r.Sync()
	}
}

func BenchmarkRunner1(b *testing.B) { benchmarkRunner(b, 1024, 1) }
func BenchmarkRunner4(b *testing.B) { benchmarkRunner(b, 1024, 4) }
func BenchmarkRunnerN(b *testing.B) { benchmarkRunner(b, 1024, 0) }
