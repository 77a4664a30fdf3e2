package trap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"onix/internal/kerrors"
	"onix/internal/percpu"
	"onix/internal/timer"
)

func TestTimerInterruptWithNothingDueRebalancesDepthWithoutYield(t *testing.T) {
	cpu := percpu.Current()
	cpu.TimerQueue = nil
	cpu.YieldPending = false

	timer.Init(10_000_000)
	timer.StartTicking()

	// Nothing is due yet; the dispatch must still run and rebalance
	// the IRQ depth.
	Handle(interruptBit|causeSupervisorTimer, 0, 0)
	require.False(t, cpu.Interrupt.InInterruptHandler())
	require.False(t, cpu.YieldPending)
}

func TestExternalInterruptRoutesToInstalledHandler(t *testing.T) {
	called := false
	ExternalHandler = func() { called = true }
	defer func() { ExternalHandler = nil }()

	Handle(interruptBit|causeSupervisorExternal, 0, 0)
	require.True(t, called)
	require.False(t, percpu.Current().Interrupt.InInterruptHandler())
}

func TestSupervisorExceptionIsFatal(t *testing.T) {
	halted := false
	prev := kerrors.Halt
	kerrors.Halt = func() { halted = true; panic("halt") }
	defer func() { kerrors.Halt = prev }()

	require.Panics(t, func() { Handle(2, 0xdead, 0x8020_0000) })
	require.True(t, halted)
}
