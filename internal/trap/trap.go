// Package trap is the Go half of the supervisor trap path: the vector
// in trap_riscv64.s saves the interrupted frame and calls Handle,
// which accounts IRQ depth, dispatches the cause, and gives the timer
// a chance to preempt the interrupted task before the vector restores
// the frame and returns.
package trap

import (
	"onix/internal/kerrors"
	"onix/internal/klog"
	"onix/internal/percpu"
	"onix/internal/sched"
	"onix/internal/timer"
)

var log = klog.With("trap")

// scause encoding: bit 63 distinguishes interrupts from exceptions;
// the low bits carry the cause code.
const (
	interruptBit uint64 = 1 << 63

	causeSupervisorSoftware = 1
	causeSupervisorTimer    = 5
	causeSupervisorExternal = 9
)

// ExternalHandler is the external-interrupt claim/complete loop,
// installed by the boot path once the PLIC is up.
var ExternalHandler func()

// Handle dispatches one trap. Called from the vector with interrupts
// disabled and the interrupted frame saved.
//
// IRQ depth brackets only the dispatch itself: it is dropped before
// the tick-requested yield runs, so a task preempted here parks at
// depth 0 and the depth counter never travels into the scheduler.
func Handle(scause, stval, sepc uint64) {
	cpu := percpu.Current()
	cpu.Interrupt.EnterIRQ()

	if scause&interruptBit != 0 {
		switch scause &^ interruptBit {
		case causeSupervisorTimer:
			timer.HandleInterrupt()
		case causeSupervisorExternal:
			if ExternalHandler != nil {
				ExternalHandler()
			}
		case causeSupervisorSoftware:
			// No IPIs beyond the SBI remote fences yet; nothing to do.
		default:
			kerrors.Fatal(log.Errorf,
				kerrors.Wrapf(kerrors.ErrUnexpectedTrap, "interrupt cause %d", scause&^interruptBit))
		}
		cpu.Interrupt.LeaveIRQ()
		sched.YieldIfPending()
		return
	}

	// A synchronous exception in supervisor mode is an invariant
	// violation; halt this hart with enough context to diagnose it.
	kerrors.Fatal(log.Errorf,
		kerrors.Wrapf(kerrors.ErrUnexpectedTrap, "exception cause %d stval %#x sepc %#x", scause, stval, sepc))
}
