package timer

import (
	"container/heap"
	"unsafe"
	"weak"

	"onix/internal/percpu"
	"onix/internal/riscv"
	"onix/internal/sched"
)

// Kind distinguishes the two timer event flavors.
type Kind int

const (
	// Tick drives the scheduler: it re-arms itself every tick
	// interval (SchedulerInterval unless SetTickInterval overrides it)
	// and requests a yield of the current task.
	Tick Kind = iota
	// Wake resumes one blocked task at its deadline.
	Wake
)

// Event is one pending timer expiry.
type Event struct {
	Deadline Instant
	Kind     Kind
	// Task is the wake target for Wake events; weak, so a task that
	// exits before its deadline is simply skipped rather than kept
	// alive by the heap.
	Task   weak.Pointer[sched.Task]
	taskID uint64
}

// Queue is one CPU's pending timer events: a min-heap ordered by
// deadline, ties broken Tick before Wake, then by ascending task ID.
// It is touched only by its owning hart with interrupts disabled, so
// it carries no lock. The invariant maintained by every mutation is
// that the hardware compare register reflects the heap's minimum.
type Queue struct {
	events eventHeap
}

type eventHeap []Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.Deadline != b.Deadline {
		return a.Deadline < b.Deadline
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.taskID < b.taskID
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) { *h = append(*h, x.(Event)) }

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	*h = old[:n-1]
	return ev
}

// localQueue returns the calling CPU's event queue, creating it on
// first use.
func localQueue() *Queue {
	cpu := percpu.Current()
	if cpu.TimerQueue == nil {
		cpu.TimerQueue = unsafe.Pointer(new(Queue))
	}
	return (*Queue)(cpu.TimerQueue)
}

func (q *Queue) push(ev Event) { heap.Push(&q.events, ev) }

// popDue removes and returns the earliest event whose deadline has
// arrived, or reports false when the top (if any) is still pending.
func (q *Queue) popDue(now Instant) (Event, bool) {
	if len(q.events) == 0 || now.Before(q.events[0].Deadline) {
		return Event{}, false
	}
	return heap.Pop(&q.events).(Event), true
}

// Len reports the number of pending events.
func (q *Queue) Len() int { return len(q.events) }

// reprogram writes the hardware compare register for the heap's new
// minimum, or disarms it when the heap is empty.
func (q *Queue) reprogram() {
	if len(q.events) == 0 {
		riscv.WriteStimecmp(^uint64(0))
		return
	}
	riscv.WriteStimecmp(nanosToCycles(int64(q.events[0].Deadline)))
}
