// Package runner implements the threaded runner: a fixed pool of workers that step and sample
// a batch of environments in parallel.
//
// Each worker exclusively owns a contiguous partition of the environment indices and consumes
// tasks from its own FIFO queue. Step and Sample are asynchronous: they enqueue one task per
// worker and return. Sync blocks until every dispatched task completed, and it is the only
// point where the caller may read the batch buffers or reset the environments.
//
// Typical loop:
//
//	r, err := runner.New(envs, samplers, runner.Config{Threads: 4})
//	if err != nil { ... }
//	defer r.Close()
//	for range numSteps {
//		r.Sample()
//		r.Step()
//		r.Sync()
//		// read envs.Rewards(), envs.Dones(), ...
//	}
//
// Since the queues are FIFO, a Sample followed by a Step (without a Sync in between) steps
// every environment with the action just sampled for it.
package runner

import (
	"runtime"
	"sync"

	"github.com/aapo-kossi/gym-eldorado/internal/affinity"
	"github.com/aapo-kossi/gym-eldorado/internal/batch"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// OutstandingChecker is implemented by environments or samplers that can verify that they
// are not accessed while tasks are pending. See Config.DebugChecks.
type OutstandingChecker interface {
	SetOutstandingCheck(pending func() int64)
}

// Runner drives a batch of environments and a batch of samplers with a pool of workers.
//
// Its methods must be called from a single coordinating goroutine.
type Runner struct {
	cfg      Config
	envs     batch.Environments
	samplers batch.Sampler

	// Shared buffers: actions are written by the samplers and read by the environments,
	// masks are written by the environments and read by the samplers.
	actions []batch.ActionData
	masks   []batch.ActionMask

	partitions []Partition
	queues     []chan Task
	pending    *barrier
	wg         sync.WaitGroup
	closed     bool
}

// New creates a Runner for the given environments and samplers, and starts its workers.
//
// envs and samplers must have the same number of environments, and their buffers
// (SelectedActionMasks and Actions) must not be reallocated during the lifetime of the Runner.
// Close must be called to stop the workers.
func New(envs batch.Environments, samplers batch.Sampler, cfg Config) (*Runner, error) {
	numEnvs := envs.NumEnvs()
	if numEnvs <= 0 {
		return nil, errors.Errorf("runner needs at least one environment, got %d", numEnvs)
	}
	if samplers.NumEnvs() != numEnvs {
		return nil, errors.Errorf("samplers batch size (%d) doesn't match environments batch size (%d)",
			samplers.NumEnvs(), numEnvs)
	}
	r := &Runner{
		envs:     envs,
		samplers: samplers,
		actions:  samplers.Actions(),
		masks:    envs.SelectedActionMasks(),
		pending:  newBarrier(),
	}
	if len(r.actions) != numEnvs || len(r.masks) != numEnvs {
		return nil, errors.Errorf("buffers sizes (%d actions, %d action masks) don't match the batch size %d",
			len(r.actions), len(r.masks), numEnvs)
	}
	var err error
	r.cfg, err = cfg.resolve(numEnvs)
	if err != nil {
		return nil, errors.WithMessagef(err, "invalid runner configuration")
	}
	r.partitions, err = Partitions(numEnvs, r.cfg.Threads)
	if err != nil {
		return nil, err
	}

	if r.cfg.DebugChecks {
		for _, target := range []any{envs, samplers} {
			if checker, ok := target.(OutstandingChecker); ok {
				checker.SetOutstandingCheck(r.Pending)
			}
		}
	}

	r.queues = make([]chan Task, r.cfg.Threads)
	for workerIdx, partition := range r.partitions {
		r.queues[workerIdx] = make(chan Task, r.cfg.QueueCapacity)
		r.wg.Add(1)
		go r.work(workerIdx, partition, r.queues[workerIdx])
	}
	klog.V(1).Infof("Runner started %d workers for %d environments (queue capacity %d, pinned=%v): partitions %v",
		r.cfg.Threads, numEnvs, r.cfg.QueueCapacity, r.cfg.PinThreads, r.partitions)
	return r, nil
}

// work is the loop of one worker: it executes the tasks of its queue, in order, until TaskStop.
func (r *Runner) work(workerIdx int, partition Partition, queue <-chan Task) {
	defer r.wg.Done()
	if r.cfg.PinThreads {
		// Never unlocked: the pinned thread is terminated with the worker.
		runtime.LockOSThread()
		if err := affinity.Pin(workerIdx); err != nil {
			klog.V(1).Infof("Worker %d not pinned: %v", workerIdx, err)
		}
	}

	// Disjoint views of the shared buffers owned by this worker.
	actions := r.actions[partition.Start:partition.End]
	masks := r.masks[partition.Start:partition.End]
	for task := range queue {
		if klog.V(3).Enabled() {
			klog.Infof("Worker %d: %s on %s", workerIdx, task, partition)
		}
		switch task {
		case TaskSample:
			for ii := range masks {
				r.samplers.SampleSingle(&masks[ii], partition.Start+ii)
			}
		case TaskStep:
			for ii := range actions {
				r.envs.StepSingle(&actions[ii], partition.Start+ii)
			}
		case TaskStop:
			r.pending.Done()
			return
		default:
			exceptions.Panicf("worker %d: unknown task %s", workerIdx, task)
		}
		r.pending.Done()
	}
}

// enqueue task to the given worker. It blocks if the worker's queue is full.
func (r *Runner) enqueue(task Task, workerIdx int) {
	r.pending.Add(1)
	r.queues[workerIdx] <- task
}

// dispatch one task to every worker.
func (r *Runner) dispatch(task Task) {
	if r.closed {
		exceptions.Panicf("runner: %s dispatched after Close", task)
	}
	for workerIdx := range r.queues {
		r.enqueue(task, workerIdx)
	}
}

// Step asynchronously steps every environment with its current action in Actions.
func (r *Runner) Step() {
	r.dispatch(TaskStep)
}

// Sample asynchronously samples a new action for every environment, given its current
// action mask.
func (r *Runner) Sample() {
	r.dispatch(TaskSample)
}

// Sync blocks until all dispatched tasks are completed. After it returns, all the writes
// done by the workers are visible to the caller.
func (r *Runner) Sync() {
	r.pending.Wait(r.cfg.SyncSpins)
}

// StepSync is a Step followed by Sync.
func (r *Runner) StepSync() {
	r.Step()
	r.Sync()
}

// Close sends exactly one TaskStop to each worker and waits for all of them to exit.
// Tasks dispatched before Close are executed first. It is safe to call Close more than once.
func (r *Runner) Close() {
	if r.closed {
		return
	}
	r.closed = true
	for workerIdx := range r.queues {
		r.enqueue(TaskStop, workerIdx)
	}
	r.wg.Wait()
	klog.V(1).Infof("Runner stopped %d workers", len(r.queues))
}

// Pending returns the number of dispatched tasks not yet completed.
func (r *Runner) Pending() int64 {
	return r.pending.Pending()
}

// NumThreads returns the number of workers.
func (r *Runner) NumThreads() int {
	return r.cfg.Threads
}

// Partitions returns a copy of the partitions owned by each worker.
func (r *Runner) Partitions() []Partition {
	return append([]Partition(nil), r.partitions...)
}

// Config returns the resolved configuration, with defaults filled in.
func (r *Runner) Config() Config {
	return r.cfg
}

// Envs returns the environments driven by the runner.
func (r *Runner) Envs() batch.Environments {
	return r.envs
}

// Samplers returns the samplers driven by the runner.
func (r *Runner) Samplers() batch.Sampler {
	return r.samplers
}

// Actions returns the shared actions buffer. Only read it after Sync.
func (r *Runner) Actions() []batch.ActionData {
	return r.actions
}

// ActionMasks returns the shared action masks buffer. Only read it after Sync.
func (r *Runner) ActionMasks() []batch.ActionMask {
	return r.masks
}
