// Package vecenv holds a batch of El Dorado environments and the dense buffers where they write
// their results, one slot per environment.
//
// Each environment writes only to its own slot, so distinct indices can be stepped concurrently
// (see package runner). Resets and reads of the buffers must not overlap with steps.
package vecenv

import (
	"runtime"

	"github.com/aapo-kossi/gym-eldorado/internal/batch"
	"github.com/aapo-kossi/gym-eldorado/internal/eldorado"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// Batch of environments. It implements batch.Environments.
type Batch struct {
	cfg  eldorado.Config
	envs []*eldorado.Env

	observations []batch.ObsData
	dones        []bool
	rewards      []batch.Rewards
	infos        []batch.Info
	masks        []batch.ActionMask
	agents       []uint8

	pending func() int64
}

// Assert Batch implements batch.Environments.
var _ batch.Environments = &Batch{}

// New creates numEnvs environments configured with cfg. Environment idx is seeded with
// eldorado.DeriveSeed(cfg.Seed, idx).
func New(numEnvs int, cfg eldorado.Config) (*Batch, error) {
	if numEnvs <= 0 {
		return nil, errors.Errorf("batch of environments needs at least one environment, got %d", numEnvs)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &Batch{
		cfg:          cfg,
		envs:         make([]*eldorado.Env, numEnvs),
		observations: make([]batch.ObsData, numEnvs),
		dones:        make([]bool, numEnvs),
		rewards:      make([]batch.Rewards, numEnvs),
		infos:        make([]batch.Info, numEnvs),
		masks:        make([]batch.ActionMask, numEnvs),
		agents:       make([]uint8, numEnvs),
	}
	err := b.parallel(func(idx int) (err error) {
		b.envs[idx], err = eldorado.New(b.envConfig(idx), b.slot(idx))
		return
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to create %d environments", numEnvs)
	}
	klog.V(1).Infof("Created %d environments: %+v", numEnvs, cfg)
	return b, nil
}

// slot returns the buffers of environment idx.
func (b *Batch) slot(idx int) eldorado.Slot {
	return eldorado.Slot{
		Obs:     &b.observations[idx],
		Done:    &b.dones[idx],
		Rewards: &b.rewards[idx],
		Info:    &b.infos[idx],
		Mask:    &b.masks[idx],
		Agent:   &b.agents[idx],
	}
}

func (b *Batch) envConfig(idx int) eldorado.Config {
	cfg := b.cfg
	cfg.Seed = eldorado.DeriveSeed(cfg.Seed, idx)
	return cfg
}

// parallel runs fn for every environment index, using up to GOMAXPROCS goroutines.
func (b *Batch) parallel(fn func(idx int) error) error {
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for idx := range b.envs {
		g.Go(func() error {
			return fn(idx)
		})
	}
	return g.Wait()
}

// SetOutstandingCheck makes resets and the buffer accessors panic if pending returns a positive
// count. It implements runner.OutstandingChecker.
func (b *Batch) SetOutstandingCheck(pending func() int64) {
	b.pending = pending
}

func (b *Batch) checkOutstanding(method string) {
	if b.pending == nil {
		return
	}
	if n := b.pending(); n > 0 {
		exceptions.Panicf("vecenv.%s called with %d tasks outstanding, Sync first", method, n)
	}
}

// Reset starts a new game in every environment. Random number generators are not re-seeded.
func (b *Batch) Reset() error {
	b.checkOutstanding("Reset")
	err := b.parallel(func(idx int) error {
		return b.envs[idx].Reset()
	})
	return errors.WithMessagef(err, "failed to reset environments")
}

// ResetWith replaces the configuration of all environments (re-seeding them) and starts new games.
func (b *Batch) ResetWith(cfg eldorado.Config) error {
	b.checkOutstanding("ResetWith")
	if err := cfg.Validate(); err != nil {
		return err
	}
	b.cfg = cfg
	err := b.parallel(func(idx int) error {
		return b.envs[idx].Configure(b.envConfig(idx))
	})
	return errors.WithMessagef(err, "failed to reconfigure environments")
}

// StepSingle implements batch.Environments: it steps environment idx with action.
func (b *Batch) StepSingle(action *batch.ActionData, idx int) {
	if idx < 0 || idx >= len(b.envs) {
		exceptions.Panicf("environment index %d out of range [0, %d)", idx, len(b.envs))
	}
	b.envs[idx].Step(*action)
}

// Step all environments sequentially.
func (b *Batch) Step(actions []batch.ActionData) {
	b.checkOutstanding("Step")
	if len(actions) != len(b.envs) {
		exceptions.Panicf("%d actions given for %d environments", len(actions), len(b.envs))
	}
	for idx := range actions {
		b.envs[idx].Step(actions[idx])
	}
}

// SetRenderer sets the renderer of all environments. Only environments configured with
// Render use it.
func (b *Batch) SetRenderer(r eldorado.Renderer) {
	for _, env := range b.envs {
		env.SetRenderer(r)
	}
}

// NumEnvs implements batch.Environments.
func (b *Batch) NumEnvs() int {
	return len(b.envs)
}

// Config returns the configuration shared by the environments, before seed derivation.
func (b *Batch) Config() eldorado.Config {
	return b.cfg
}

// Env returns environment idx.
func (b *Batch) Env(idx int) *eldorado.Env {
	b.checkOutstanding("Env")
	return b.envs[idx]
}

// SelectedActionMasks implements batch.Environments: the action masks of the selected player of
// each environment.
//
// It is not checked for outstanding tasks: the runner holds on to it while workers run.
func (b *Batch) SelectedActionMasks() []batch.ActionMask {
	return b.masks
}

// Observations of each environment.
func (b *Batch) Observations() []batch.ObsData {
	b.checkOutstanding("Observations")
	return b.observations
}

// Dones returns whether each environment finished its episode in its last step.
func (b *Batch) Dones() []bool {
	b.checkOutstanding("Dones")
	return b.dones
}

// Rewards of the last step of each environment, one per player seat.
func (b *Batch) Rewards() []batch.Rewards {
	b.checkOutstanding("Rewards")
	return b.rewards
}

// Infos returns the episode information of each environment.
func (b *Batch) Infos() []batch.Info {
	b.checkOutstanding("Infos")
	return b.infos
}

// AgentSelections returns the selected player of each environment.
func (b *Batch) AgentSelections() []uint8 {
	b.checkOutstanding("AgentSelections")
	return b.agents
}
