// Package percpu implements the per-CPU interrupt bookkeeping: a
// disabled-depth counter that lets critical sections nest safely, and
// an irq-depth counter that tracks trap-handler nesting.
package percpu

import (
	"onix/internal/kerrors"
	"onix/internal/riscv"
)

// InterruptState holds both counters plus the hardware flag saved by
// the outermost PushDisabled.
type InterruptState struct {
	disabledDepth uint32
	initialFlag   bool
	irqDepth      uint32
}

// Disable hard-disables interrupts. Only valid outside any
// PushDisabled nesting.
func (s *InterruptState) Disable() {
	kerrors.Assert(s.disabledDepth == 0, "percpu: Disable at depth %d", s.disabledDepth)
	riscv.DisableSIE()
}

// Enable hard-enables interrupts. Only valid outside any PushDisabled
// nesting.
func (s *InterruptState) Enable() {
	kerrors.Assert(s.disabledDepth == 0, "percpu: Enable at depth %d", s.disabledDepth)
	riscv.EnableSIE()
}

// IsEnabled reports whether interrupts are currently enabled.
func (s *InterruptState) IsEnabled() bool { return riscv.SIEEnabled() }

// DisabledDepth returns the current PushDisabled nesting depth.
func (s *InterruptState) DisabledDepth() uint32 { return s.disabledDepth }

// Wait waits for the next interrupt. Valid only while interrupts are
// enabled.
func (s *InterruptState) Wait() {
	kerrors.Assert(s.IsEnabled(), "percpu: Wait with interrupts disabled")
	riscv.WFI()
}

// Guard is returned by PushDisabled. Release pops exactly one level of
// nesting.
type Guard struct {
	state *InterruptState
}

// PushDisabled reads-and-clears the hardware interrupt-enable flag. On
// the outermost call (depth 0 → 1) it remembers the prior flag so the
// matching Release can restore it.
func (s *InterruptState) PushDisabled() Guard {
	wasEnabled := riscv.DisableSIE()
	if s.disabledDepth == 0 {
		s.initialFlag = wasEnabled
	}
	s.disabledDepth++
	return Guard{state: s}
}

// Release decrements the nesting depth and, once it reaches zero,
// restores the flag recorded by the outermost PushDisabled.
func (g Guard) Release() {
	s := g.state
	kerrors.Assert(s.disabledDepth > 0, "percpu: Release at depth 0")
	s.disabledDepth--
	if s.disabledDepth == 0 && s.initialFlag {
		riscv.EnableSIE()
	}
}

// EnterIRQ is called at the first instruction of a trap handler.
func (s *InterruptState) EnterIRQ() { s.irqDepth++ }

// LeaveIRQ is called just before a trap return.
func (s *InterruptState) LeaveIRQ() {
	kerrors.Assert(s.irqDepth > 0, "percpu: LeaveIRQ at depth 0")
	s.irqDepth--
}

// InInterruptHandler reports whether execution is nested inside a trap
// handler.
func (s *InterruptState) InInterruptHandler() bool { return s.irqDepth > 0 }

// SavedState is a snapshot of InterruptState that travels with a task
// across a context switch: captured while interrupts are
// disabled and later applied back verbatim, so a task's interrupt
// policy survives being moved between CPUs.
type SavedState struct {
	DisabledDepth uint32
	InitialFlag   bool
	IRQDepth      uint32
}

// Save captures the current state.
func (s *InterruptState) Save() SavedState {
	return SavedState{
		DisabledDepth: s.disabledDepth,
		InitialFlag:   s.initialFlag,
		IRQDepth:      s.irqDepth,
	}
}

// Restore applies a previously captured state verbatim. It does not
// itself touch the hardware flag; the caller is expected to already be
// in the disabled region the saved state describes.
func (s *InterruptState) Restore(saved SavedState) {
	s.disabledDepth = saved.DisabledDepth
	s.initialFlag = saved.InitialFlag
	s.irqDepth = saved.IRQDepth
}
