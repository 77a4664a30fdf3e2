package sched

import (
	"weak"

	"onix/internal/kmem"
	"onix/internal/percpu"
)

// State is a task's lifecycle state.
type State int

const (
	Runnable State = iota
	Running
	Blocked
	Exited
)

func (s State) String() string {
	switch s {
	case Runnable:
		return "runnable"
	case Running:
		return "running"
	case Blocked:
		return "blocked"
	case Exited:
		return "exited"
	default:
		return "unknown"
	}
}

// Context is the callee-saved register snapshot a context switch
// saves and restores: return address, stack pointer, and
// the s0..s11 preserved registers. Field order and layout are fixed —
// switch_riscv64.s indexes into this struct at constant offsets.
type Context struct {
	RA uintptr
	SP uintptr
	S  [12]uintptr
}

// Shared is the spinlock-protected record backing one task: its
// lifecycle state, a weak back-reference to the owning Task (so the
// timer heap and run queue can hold weak references without keeping
// the task alive on their own), and the saved register context.
type Shared struct {
	Lock  Spinlock
	State State
	Self  weak.Pointer[Task]
	Ctx   Context
	// Interrupt is the portion of a task's interrupt policy that
	// travels with it across a context switch.
	Interrupt percpu.SavedState
}

// Task owns a unique ID, a kernel stack, and the spinlock-protected
// shared record every other subsystem actually touches.
type Task struct {
	ID     uint64
	Stack  kmem.KernelStack
	Shared *Shared

	// Entry is the function this task's trampoline calls on first run.
	// It is read by the trampoline once, then never touched again; it
	// does not need spinlock protection.
	Entry func()
}

var nextTaskID uint64

// allocTaskID hands out ascending task IDs, used both as the task's
// identity and as the timer heap's tie-break key.
func allocTaskID() uint64 {
	nextTaskID++
	return nextTaskID
}

// NewTask constructs a task in the Runnable state on the given kernel
// stack and calls Own, so Shared.Self already points back at it.
func NewTask(stack kmem.KernelStack, entry func()) *Task {
	t := &Task{
		ID:    allocTaskID(),
		Stack: stack,
		Entry: entry,
		Shared: &Shared{
			State: Runnable,
		},
	}
	t.Shared.Ctx.SP = uintptr(stack.Top())
	t.Own()
	return t
}

// Own installs the weak self-reference. Split out from NewTask so
// tests can rebuild a Shared's Self after deliberately dropping a Task
// to observe weak-upgrade failure.
func (t *Task) Own() {
	t.Shared.Self = weak.Make(t)
}
