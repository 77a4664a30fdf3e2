package timer

import (
	"time"

	"onix/internal/kerrors"
	"onix/internal/percpu"
	"onix/internal/sched"
)

// SchedulerInterval is the default tick period: every elapsed
// interval the current task is asked to yield.
const SchedulerInterval = 100 * time.Millisecond

var tickInterval = SchedulerInterval

// SetTickInterval overrides the tick period; the boot path calls this
// with its configured value before the first StartTicking.
func SetTickInterval(d time.Duration) {
	if d > 0 {
		tickInterval = d
	}
}

// StartTicking seeds the calling CPU's tick stream and programs the
// first compare. Each CPU calls this once, after its interrupt
// plumbing is up and before it enters the scheduler loop.
func StartTicking() {
	g := percpu.Current().Interrupt.PushDisabled()
	q := localQueue()
	q.push(Event{Deadline: Now().Add(int64(tickInterval)), Kind: Tick})
	q.reprogram()
	g.Release()
}

// Sleep blocks the current task for at least d. The wake event is
// armed inside the park critical section, so the local timer
// interrupt cannot observe the task before it has blocked. Early
// wakes (the deadline firing while the task was already runnable for
// another reason) loop back to sleep for the remainder.
func Sleep(d time.Duration) {
	t := sched.CurrentTask()
	kerrors.Assert(t != nil, "timer: Sleep outside a task")
	deadline := Now().Add(d.Nanoseconds())
	for Now().Before(deadline) {
		sched.Park(func() {
			q := localQueue()
			q.push(Event{Deadline: deadline, Kind: Wake, Task: t.Shared.Self, taskID: t.ID})
			q.reprogram()
		})
	}
}

// HandleInterrupt drains every due event on the calling CPU and
// reprograms the compare for the new heap top. Runs in the trap path
// with interrupts disabled. A due Tick re-arms itself one interval
// out and requests a yield; a due Wake makes its task runnable if the
// task is still alive and still blocked.
func HandleInterrupt() {
	q := localQueue()
	yield := false
	for {
		ev, ok := q.popDue(Now())
		if !ok {
			break
		}
		switch ev.Kind {
		case Tick:
			q.push(Event{Deadline: Now().Add(int64(tickInterval)), Kind: Tick})
			yield = true
		case Wake:
			if t := ev.Task.Value(); t != nil {
				sched.Wake(t)
			}
		}
	}
	q.reprogram()
	if yield {
		sched.RequestYield()
	}
}
