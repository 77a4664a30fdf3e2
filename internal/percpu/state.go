package percpu

import (
	"unsafe"

	"onix/internal/cpu"
	"onix/internal/kerrors"
	"onix/internal/riscv"
)

// CPU holds the per-hart state that must be addressable without
// allocation. The cross-package references (scheduler context, current
// task, timer queue) are stored as untyped pointers so this package
// sits below internal/sched and internal/timer in the import graph.
// Each instance is padded to its own cache line; harts update their
// slots concurrently and the slots are adjacent in the cpus slice.
type CPU struct {
	ID        int
	Interrupt InterruptState

	// SchedContext points at this CPU's saved scheduler-loop register
	// context (internal/sched.Context); nil until the scheduler loop
	// installs it.
	SchedContext unsafe.Pointer

	// CurrentTask points at the task currently running on this CPU, or
	// nil while the scheduler loop itself is running.
	CurrentTask unsafe.Pointer

	// TimerQueue points at this CPU's timer event heap
	// (internal/timer.Queue); nil until the timer subsystem sets it up.
	TimerQueue unsafe.Pointer

	// YieldPending is set by the timer tick to ask the trap-return
	// path to yield the current task before resuming it. Touched only
	// by the owning hart with interrupts disabled.
	YieldPending bool

	_ cpu.CacheLinePad
}

// bootCPU is the fallback instance used for all interrupt accounting
// before per-CPU storage is wired up.
var bootCPU CPU

// cpus holds one CPU per hart, indexed by hart ID. Nil until Init runs.
var cpus []CPU

// initialized reports whether Init has installed per-CPU storage.
var initialized bool

// Init installs per-CPU storage for numCPUs harts and marks bootCPUID
// as the one that was running before Init (its accumulated interrupt
// bookkeeping is carried forward rather than discarded).
func Init(bootCPUID, numCPUs int) {
	kerrors.Assert(bootCPUID >= 0 && bootCPUID < numCPUs, "percpu: bad boot CPU id %d of %d", bootCPUID, numCPUs)
	cpus = make([]CPU, numCPUs)
	for i := range cpus {
		cpus[i].ID = i
	}
	cpus[bootCPUID].Interrupt = bootCPU.Interrupt
	initialized = true
}

// Current returns the calling hart's CPU instance: the boot fallback
// before Init, or this hart's own slot afterward, addressed via the ID
// the boot assembly stashed in tp.
func Current() *CPU {
	if !initialized {
		return &bootCPU
	}
	id := int(riscv.HartID())
	kerrors.Assert(id < len(cpus), "percpu: hart id %d out of range of %d CPUs", id, len(cpus))
	return &cpus[id]
}

// NumCPUs returns the number of CPUs installed by Init, or 0 before
// Init runs.
func NumCPUs() int { return len(cpus) }
