package sched

import (
	"weak"

	"onix/internal/kerrors"
)

// runQueue is the global FIFO of Runnable tasks: strictly
// FIFO, no priorities, no affinity. A task's entry is a weak
// reference so a task that exits and is dropped elsewhere does not
// need to be scrubbed out of the queue first.
type runQueue struct {
	lock  Spinlock
	tasks []weak.Pointer[Task]
}

var global runQueue

// enqueuedLocked reports whether t is already present in the queue:
// a Runnable task may appear at most once in the queue at any moment.
func (q *runQueue) enqueuedLocked(t *Task) bool {
	for _, w := range q.tasks {
		if u := w.Value(); u == t {
			return true
		}
	}
	return false
}

// Enqueue pushes t onto the back of the global run queue. t must
// already be Runnable; pushing a task that is already queued is an
// assertion failure.
func Enqueue(t *Task) {
	global.lock.Lock()
	defer global.lock.Unlock()
	kerrors.Assert(!global.enqueuedLocked(t), "sched: task %d already in run queue", t.ID)
	global.tasks = append(global.tasks, t.Shared.Self)
}

// Dequeue pops the task at the front of the queue, skipping (and
// discarding) any weak reference whose referent has already been
// collected. It returns false when the queue is empty.
func Dequeue() (*Task, bool) {
	global.lock.Lock()
	defer global.lock.Unlock()
	for len(global.tasks) > 0 {
		w := global.tasks[0]
		global.tasks = global.tasks[1:]
		if t := w.Value(); t != nil {
			return t, true
		}
	}
	return nil, false
}

// Len reports the queue's current length, for tests and diagnostics.
func Len() int {
	global.lock.Lock()
	defer global.lock.Unlock()
	return len(global.tasks)
}
