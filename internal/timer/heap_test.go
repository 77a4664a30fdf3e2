package timer

import (
	"testing"
	"weak"

	"github.com/stretchr/testify/require"

	"onix/internal/kmem"
	"onix/internal/percpu"
	"onix/internal/riscv"
	"onix/internal/sched"
)

func resetTimerState(t *testing.T) *Queue {
	t.Helper()
	Init(10_000_000)
	percpu.Current().TimerQueue = nil
	percpu.Current().YieldPending = false
	for {
		if _, ok := sched.Dequeue(); !ok {
			break
		}
	}
	return localQueue()
}

func TestEventOrderingDeadlineThenKindThenTaskID(t *testing.T) {
	q := resetTimerState(t)

	q.push(Event{Deadline: 200, Kind: Wake, taskID: 7})
	q.push(Event{Deadline: 100, Kind: Wake, taskID: 9})
	q.push(Event{Deadline: 100, Kind: Tick})
	q.push(Event{Deadline: 100, Kind: Wake, taskID: 3})

	var got []Event
	for {
		ev, ok := q.popDue(1_000)
		if !ok {
			break
		}
		got = append(got, ev)
	}

	require.Len(t, got, 4)
	require.Equal(t, Tick, got[0].Kind)
	require.Equal(t, Instant(100), got[0].Deadline)
	require.Equal(t, uint64(3), got[1].taskID)
	require.Equal(t, uint64(9), got[2].taskID)
	require.Equal(t, Instant(200), got[3].Deadline)
}

func TestPopDueLeavesPendingEventsAlone(t *testing.T) {
	q := resetTimerState(t)
	q.push(Event{Deadline: 500, Kind: Tick})

	_, ok := q.popDue(499)
	require.False(t, ok)
	require.Equal(t, 1, q.Len())

	_, ok = q.popDue(500)
	require.True(t, ok)
}

func TestTickRearmsItselfAndRequestsYield(t *testing.T) {
	q := resetTimerState(t)

	q.push(Event{Deadline: Now(), Kind: Tick})
	HandleInterrupt()

	require.Equal(t, 1, q.Len(), "a due tick must re-arm exactly one successor")
	next := q.events[0]
	require.Equal(t, Tick, next.Kind)
	require.Equal(t, Now().Add(int64(SchedulerInterval)), next.Deadline)
	require.True(t, percpu.Current().YieldPending, "a tick must request a yield")
	require.Equal(t, nanosToCycles(int64(next.Deadline)), riscv.ReadStimecmp(),
		"the compare register must track the heap top")
}

func TestWakeEventMakesBlockedTaskRunnable(t *testing.T) {
	q := resetTimerState(t)

	task := sched.NewTask(kmem.KernelStack{}, func() {})
	task.Shared.State = sched.Blocked

	q.push(Event{Deadline: Now(), Kind: Wake, Task: task.Shared.Self, taskID: task.ID})
	HandleInterrupt()

	require.Equal(t, sched.Runnable, task.Shared.State)
	require.Equal(t, 1, sched.Len())
	require.False(t, percpu.Current().YieldPending, "a wake alone must not request a yield")
}

func TestWakeOfCollectedTaskIsSkipped(t *testing.T) {
	q := resetTimerState(t)

	q.push(Event{Deadline: Now(), Kind: Wake, Task: weak.Pointer[sched.Task]{}, taskID: 42})
	HandleInterrupt()

	require.Equal(t, 0, q.Len())
	require.Equal(t, 0, sched.Len())
}

func TestReprogramDisarmsOnEmptyHeap(t *testing.T) {
	q := resetTimerState(t)
	q.reprogram()
	require.Equal(t, ^uint64(0), riscv.ReadStimecmp())
}

func TestClockConversionRoundTrip(t *testing.T) {
	Init(10_000_000)

	// One millisecond at a 10 MHz timebase is exactly 10_000 ticks.
	require.Equal(t, uint64(10_000), nanosToCycles(1_000_000))
	require.Equal(t, int64(1_000_000), cyclesToNanos(10_000))

	// Large uptimes must not overflow the conversion.
	week := int64(7 * 24 * 3600 * 1_000_000_000)
	require.Equal(t, week, cyclesToNanos(nanosToCycles(week)))
}

func TestNowTracksTheCycleCounter(t *testing.T) {
	Init(10_000_000)
	before := Now()
	riscv.AdvanceTime(10_000)
	require.Equal(t, before.Add(1_000_000), Now())
}
