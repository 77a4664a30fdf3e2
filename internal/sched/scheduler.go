package sched

import (
	"unsafe"

	"onix/internal/kerrors"
	"onix/internal/klog"
	"onix/internal/kmem"
	"onix/internal/percpu"
)

var log = klog.With("sched")

// StackSource supplies kernel stacks for spawned tasks. Production
// code backs this with the kernel memory manager; tests back it with
// plain Go slices.
type StackSource interface {
	AllocateKernelStack() (kmem.KernelStack, error)
}

var stacks StackSource

// liveTasks pins every spawned-but-not-exited task. The run queue and
// the timer heap deliberately hold only weak references, so without
// this table a task that is merely queued would be collectable.
var (
	tasksLock Spinlock
	liveTasks = make(map[uint64]*Task)
)

// Init installs the kernel-stack source. Must run once, before the
// first Spawn.
func Init(s StackSource) { stacks = s }

// Spawn creates a task that will run entry on its own kernel stack,
// prepares its first-dispatch register context to enter the task
// trampoline, and enqueues it.
func Spawn(entry func()) (*Task, error) {
	kerrors.Assert(stacks != nil, "sched: Spawn before Init")
	stack, err := stacks.AllocateKernelStack()
	if err != nil {
		return nil, kerrors.Wrap(err, "spawn: allocate kernel stack")
	}
	t := NewTask(stack, entry)
	prepareContext(t)

	tasksLock.Lock()
	liveTasks[t.ID] = t
	tasksLock.Unlock()

	Enqueue(t)
	log.Debugf("spawned task %d", t.ID)
	return t, nil
}

// CurrentTask returns the task running on the calling CPU, or nil when
// the scheduler loop itself is running.
func CurrentTask() *Task {
	return (*Task)(percpu.Current().CurrentTask)
}

// Schedule is the per-CPU scheduler loop; it never returns. Each
// iteration opens a brief interrupt window so pending interrupts
// drain, closes it, and dispatches the next runnable task. With
// nothing to run the CPU waits for the next interrupt.
func Schedule() {
	cpu := percpu.Current()
	var ctx Context
	cpu.SchedContext = unsafe.Pointer(&ctx)
	log.Debugf("scheduler loop up on cpu %d", cpu.ID)
	for {
		cpu.Interrupt.Enable()
		cpu.Interrupt.Disable()
		if dispatchNext(cpu, &ctx) {
			continue
		}
		cpu.Interrupt.Enable()
		cpu.Interrupt.Wait()
		cpu.Interrupt.Disable()
	}
}

// dispatchNext pops runnable tasks off the global queue until one is
// actually dispatchable and runs it until it switches back. It
// returns false when the queue had no runnable task.
func dispatchNext(cpu *percpu.CPU, ctx *Context) bool {
	for {
		t, ok := Dequeue()
		if !ok {
			return false
		}
		s := t.Shared
		s.Lock.Lock()
		if s.State != Runnable {
			// Blocked or exited after being queued; skip it.
			s.Lock.Unlock()
			continue
		}
		s.State = Running
		cpu.CurrentTask = unsafe.Pointer(t)

		// The task-side switch path releases this lock after it has
		// restored its interrupt policy; the scheduler reacquires
		// control holding whatever lock the task took to switch out.
		saved := cpu.Interrupt.Save()
		switchContext(ctx, &s.Ctx)

		here := percpu.Current()
		kerrors.Assert(here == cpu, "sched: scheduler context resumed on cpu %d, expected %d", here.ID, cpu.ID)
		cpu.CurrentTask = nil
		cpu.Interrupt.Restore(saved)
		s.Lock.Unlock()
		return true
	}
}

// switchOut hands the CPU back to its scheduler loop. The caller must
// hold s.Lock and have already set the task's next state; the lock is
// released by the scheduler side. On return — the task has been
// dispatched again, possibly on a different CPU — the task's saved
// interrupt policy has been reapplied and the dispatching scheduler's
// lock released.
func switchOut(s *Shared) {
	cpu := percpu.Current()
	s.Interrupt = cpu.Interrupt.Save()
	switchContext(&s.Ctx, (*Context)(cpu.SchedContext))

	kerrors.Assert(s.State == Running, "sched: task resumed in state %v", s.State)
	percpu.Current().Interrupt.Restore(s.Interrupt)
	s.Lock.Unlock()
}

// Yield moves the current task to the back of the run queue and
// returns once the scheduler dispatches it again. Interrupts are
// restored to their pre-yield configuration.
func Yield() {
	cpu := percpu.Current()
	t := (*Task)(cpu.CurrentTask)
	kerrors.Assert(t != nil, "sched: Yield outside a task")
	s := t.Shared
	s.Lock.Lock()
	s.State = Runnable
	Enqueue(t)
	switchOut(s)
}

// Park blocks the current task and returns to the scheduler. prepare,
// if non-nil, runs after the shared lock is taken and before the task
// becomes Blocked: interrupts are disabled for all of it, so a wake
// source armed inside prepare (a timer event, typically) cannot fire
// on this CPU until the task has actually blocked — closing the
// lost-wakeup window. Park returns when Wake has made the task
// runnable and a scheduler loop has dispatched it again.
func Park(prepare func()) {
	cpu := percpu.Current()
	t := (*Task)(cpu.CurrentTask)
	kerrors.Assert(t != nil, "sched: Park outside a task")
	s := t.Shared
	s.Lock.Lock()
	if prepare != nil {
		prepare()
	}
	s.State = Blocked
	switchOut(s)
}

// Wake transitions t from Blocked to Runnable and enqueues it. A task
// in any other state is left alone; a racing wake may already have
// run.
func Wake(t *Task) {
	s := t.Shared
	s.Lock.Lock()
	if s.State == Blocked {
		s.State = Runnable
		Enqueue(t)
	}
	s.Lock.Unlock()
}

// Exit terminates the current task. Its stack handle is dropped, its
// strong reference removed (queued weak references lapse on their
// own), and control returns to the scheduler for good.
func Exit() {
	cpu := percpu.Current()
	t := (*Task)(cpu.CurrentTask)
	kerrors.Assert(t != nil, "sched: Exit outside a task")
	log.Debugf("task %d exiting", t.ID)

	tasksLock.Lock()
	delete(liveTasks, t.ID)
	tasksLock.Unlock()
	t.Stack.Drop()

	s := t.Shared
	s.Lock.Lock()
	s.State = Exited
	s.Interrupt = cpu.Interrupt.Save()
	switchContext(&s.Ctx, (*Context)(cpu.SchedContext))
	kerrors.Assert(false, "sched: exited task %d resumed", t.ID)
}

// RequestYield asks the trap-return path to yield the current task
// before resuming it. Called from interrupt context by the timer tick.
func RequestYield() { percpu.Current().YieldPending = true }

// YieldIfPending is called just before a trap return: if the timer
// tick requested a yield and a task is current, yield it now.
func YieldIfPending() {
	cpu := percpu.Current()
	if !cpu.YieldPending {
		return
	}
	cpu.YieldPending = false
	if cpu.CurrentTask != nil {
		Yield()
	}
}

// taskMain is the Go half of the task trampoline: the assembly half
// moves the task pointer out of its preserved register and calls in
// here. The shared record is still locked by the dispatching
// scheduler; releasing it from a one-deep enabled-on-release state
// both unlocks and turns interrupts on for the new task.
func taskMain(t *Task) {
	s := t.Shared
	percpu.Current().Interrupt.Restore(percpu.SavedState{DisabledDepth: 1, InitialFlag: true})
	s.Lock.Unlock()
	t.Entry()
	Exit()
}
