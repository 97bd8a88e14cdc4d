package runner

import (
	"math/bits"
	"runtime"

	"github.com/aapo-kossi/gym-eldorado/internal/parameters"
	"github.com/pkg/errors"
)

const (
	// DefaultQueueCapacity of each worker's task queue.
	DefaultQueueCapacity = 256

	// DefaultSyncSpins is the number of times Sync yields the processor before parking.
	DefaultSyncSpins = 1024
)

// Config of a Runner. The zero value is valid and uses the defaults.
type Config struct {
	// Threads is the number of workers. If 0 it defaults to runtime.GOMAXPROCS(0), capped
	// to the number of environments.
	Threads int

	// QueueCapacity of each worker's task queue, a power of two. If 0 it defaults to
	// DefaultQueueCapacity. Enqueueing into a full queue blocks.
	QueueCapacity int

	// PinThreads locks each worker to its own OS thread and pins worker i to CPU i,
	// where supported.
	PinThreads bool

	// SyncSpins is the number of yields in Sync before it parks. If 0 it defaults to
	// DefaultSyncSpins, a negative value parks immediately.
	SyncSpins int

	// DebugChecks installs an outstanding-tasks check on environments and samplers that
	// support it, so reading their buffers or resetting them before Sync panics.
	DebugChecks bool
}

// ConfigFromString parses a configuration string like "threads=4,queue=256,pin,debug".
func ConfigFromString(config string) (cfg Config, err error) {
	params := parameters.NewFromConfigString(config)
	if cfg.Threads, err = parameters.PopParamOr(params, "threads", 0); err != nil {
		return
	}
	if cfg.QueueCapacity, err = parameters.PopParamOr(params, "queue", 0); err != nil {
		return
	}
	if cfg.PinThreads, err = parameters.PopParamOr(params, "pin", false); err != nil {
		return
	}
	if cfg.SyncSpins, err = parameters.PopParamOr(params, "spins", 0); err != nil {
		return
	}
	if cfg.DebugChecks, err = parameters.PopParamOr(params, "debug", false); err != nil {
		return
	}
	err = parameters.CheckAllUsed(params, "runner")
	return
}

// resolve returns the configuration with defaults filled in for numEnvs environments, or
// an error if it is invalid.
func (cfg Config) resolve(numEnvs int) (Config, error) {
	if cfg.Threads < 0 {
		return cfg, errors.Errorf("invalid number of threads %d", cfg.Threads)
	}
	if cfg.Threads == 0 {
		cfg.Threads = min(runtime.GOMAXPROCS(0), numEnvs)
	}
	if cfg.Threads > numEnvs {
		return cfg, errors.Errorf("%d threads requested for only %d environments, workers would be idle",
			cfg.Threads, numEnvs)
	}
	if cfg.QueueCapacity == 0 {
		cfg.QueueCapacity = DefaultQueueCapacity
	}
	if cfg.QueueCapacity < 0 || bits.OnesCount(uint(cfg.QueueCapacity)) != 1 {
		return cfg, errors.Errorf("queue capacity must be a power of two, got %d", cfg.QueueCapacity)
	}
	if cfg.SyncSpins == 0 {
		cfg.SyncSpins = DefaultSyncSpins
	}
	return cfg, nil
}
