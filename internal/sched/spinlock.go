// Package sched implements the per-CPU scheduler: the task
// lifecycle, the global FIFO run queue, and the cooperative context
// switch, with spinlocks serializing every shared record.
package sched

import (
	"runtime"
	"sync/atomic"

	"onix/internal/percpu"
)

// Spinlock is a busy-wait mutual-exclusion primitive. There is no OS
// thread to park on here, so this is plain CAS-and-spin rather than
// sync.Mutex.
//
// Lock also disables interrupts for the duration of the critical
// section: every spinlock-protected structure here is touched from
// interrupt context, so holding a spinlock with interrupts enabled
// would deadlock the owner against itself.
type Spinlock struct {
	state uint32
	guard percpu.Guard
}

const (
	spinUnlocked = 0
	spinLocked   = 1
)

// Lock disables interrupts and spins until the lock is acquired.
func (l *Spinlock) Lock() {
	g := percpu.Current().Interrupt.PushDisabled()
	for !atomic.CompareAndSwapUint32(&l.state, spinUnlocked, spinLocked) {
		runtime.Gosched()
	}
	l.guard = g
}

// Unlock releases the lock and restores the interrupt state captured
// by the matching Lock.
func (l *Spinlock) Unlock() {
	g := l.guard
	atomic.StoreUint32(&l.state, spinUnlocked)
	g.Release()
}
