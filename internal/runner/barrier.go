package runner

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gomlx/exceptions"
)

// barrier counts dispatched but not yet completed tasks.
//
// Add is called by the producer before enqueueing, Done by a worker after executing a task,
// and Wait returns once the count reaches zero. Everything a worker wrote before its Done
// happens-before the return of a Wait that observed zero.
type barrier struct {
	pending atomic.Int64

	mu   sync.Mutex
	cond *sync.Cond
}

func newBarrier() *barrier {
	b := &barrier{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Add n tasks to the pending count.
func (b *barrier) Add(n int64) {
	b.pending.Add(n)
}

// Done marks one task as completed.
func (b *barrier) Done() {
	remaining := b.pending.Add(-1)
	if remaining < 0 {
		exceptions.Panicf("runner: pending tasks counter went negative (%d)", remaining)
	}
	if remaining == 0 {
		b.mu.Lock()
		b.cond.Broadcast()
		b.mu.Unlock()
	}
}

// Pending returns the current number of pending tasks.
func (b *barrier) Pending() int64 {
	return b.pending.Load()
}

// Wait until there are no pending tasks. It first spins up to spins times yielding the
// processor between checks, and then parks on the condition variable.
func (b *barrier) Wait(spins int) {
	for range spins {
		if b.pending.Load() == 0 {
			return
		}
		runtime.Gosched()
	}
	b.mu.Lock()
	for b.pending.Load() > 0 {
		b.cond.Wait()
	}
	b.mu.Unlock()
}
