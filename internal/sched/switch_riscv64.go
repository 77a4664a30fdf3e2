//go:build riscv64

package sched

import "unsafe"

// switchContext saves the callee-saved registers {ra, sp, s0..s11}
// into *save at fixed offsets, loads them from *load, and returns on
// the incoming context's stack. Implemented in switch_riscv64.s; the
// Context struct's field layout is part of its contract.
//
//go:nosplit
func switchContext(save, load *Context)

// taskTrampoline is the first code a freshly spawned task executes.
// Implemented in switch_riscv64.s.
func taskTrampoline()

// trampolinePC returns taskTrampoline's entry address; implemented in
// switch_riscv64.s because Go code cannot take the address of an
// assembly TEXT symbol directly.
func trampolinePC() uintptr

// prepareContext arranges a new task's first dispatch: the context
// switch will "return" into the trampoline with the task pointer in
// s0 and sp at the top of the task's stack.
func prepareContext(t *Task) {
	t.Shared.Ctx.RA = trampolinePC()
	t.Shared.Ctx.S[0] = uintptr(unsafe.Pointer(t))
}
