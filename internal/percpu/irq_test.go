package percpu

import (
	"testing"

	"github.com/stretchr/testify/require"

	"onix/internal/riscv"
)

func resetSIE(enabled bool) {
	if enabled {
		riscv.EnableSIE()
	} else {
		riscv.DisableSIE()
	}
}

func TestPushDisabledNestsAndRestoresOuterFlag(t *testing.T) {
	resetSIE(true)
	var s InterruptState

	g1 := s.PushDisabled()
	require.Equal(t, uint32(1), s.DisabledDepth())
	require.False(t, s.IsEnabled())

	g2 := s.PushDisabled()
	require.Equal(t, uint32(2), s.DisabledDepth())

	g2.Release()
	require.Equal(t, uint32(1), s.DisabledDepth())
	require.False(t, s.IsEnabled(), "interrupts must stay disabled until the outermost guard releases")

	g1.Release()
	require.Equal(t, uint32(0), s.DisabledDepth())
	require.True(t, s.IsEnabled(), "outermost release restores the flag that was in effect before the first PushDisabled")
}

func TestPushDisabledRestoresAlreadyDisabledFlag(t *testing.T) {
	resetSIE(false)
	var s InterruptState

	g := s.PushDisabled()
	g.Release()
	require.False(t, s.IsEnabled(), "interrupts were already disabled before the guard; release must not turn them on")
}

func TestIRQDepthTracksHandlerNesting(t *testing.T) {
	var s InterruptState
	require.False(t, s.InInterruptHandler())

	s.EnterIRQ()
	require.True(t, s.InInterruptHandler())

	s.EnterIRQ()
	s.LeaveIRQ()
	require.True(t, s.InInterruptHandler())

	s.LeaveIRQ()
	require.False(t, s.InInterruptHandler())
}

func TestSavedStateRoundTrip(t *testing.T) {
	var s InterruptState
	s.EnterIRQ()
	g := s.PushDisabled()
	_ = g

	saved := s.Save()
	require.Equal(t, uint32(1), saved.DisabledDepth)
	require.Equal(t, uint32(1), saved.IRQDepth)

	var other InterruptState
	other.Restore(saved)
	require.Equal(t, s.DisabledDepth(), other.DisabledDepth())
	require.Equal(t, s.InInterruptHandler(), other.InInterruptHandler())

	g.Release()
}
