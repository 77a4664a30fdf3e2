package plic

import (
	"testing"

	"github.com/stretchr/testify/require"

	"onix/internal/mmio"
)

func newTestPLIC(ndev uint32) (*PLIC, mmio.Buffer) {
	buf := make(mmio.Buffer, contextBase+4*contextStride)
	return New(buf, ndev), buf
}

func TestEnableDisableSetsBitmapBits(t *testing.T) {
	p, buf := newTestPLIC(95)
	ctx := SContext(0)

	p.Enable(ctx, 10)
	p.Enable(ctx, 33)
	require.Equal(t, uint32(1<<10), buf.Read32(enableBase+uintptr(ctx)*enableStride))
	require.Equal(t, uint32(1<<1), buf.Read32(enableBase+uintptr(ctx)*enableStride+4))

	p.Disable(ctx, 10)
	require.Equal(t, uint32(0), buf.Read32(enableBase+uintptr(ctx)*enableStride))
	require.Equal(t, uint32(1<<1), buf.Read32(enableBase+uintptr(ctx)*enableStride+4),
		"disabling one source must not disturb others")
}

func TestPriorityAndThresholdRegisters(t *testing.T) {
	p, buf := newTestPLIC(95)

	p.SetPriority(10, 7)
	require.Equal(t, uint32(7), buf.Read32(priorityBase+4*10))

	p.SetThreshold(SContext(1), 3)
	require.Equal(t, uint32(3), buf.Read32(contextBase+uintptr(SContext(1))*contextStride+ctxThreshold))
}

func TestClaimCompleteRoundTrip(t *testing.T) {
	p, buf := newTestPLIC(95)
	ctx := SContext(0)

	claimOff := contextBase + uintptr(ctx)*contextStride + ctxClaim
	buf.Write32(claimOff, 10)
	require.Equal(t, uint32(10), p.Claim(ctx))

	p.Complete(ctx, 10)
	require.Equal(t, uint32(10), buf.Read32(claimOff))
}

func TestInitContextMasksEverything(t *testing.T) {
	p, buf := newTestPLIC(95)
	ctx := SContext(0)

	p.SetPriority(5, 1)
	p.Enable(ctx, 5)
	p.InitContext(ctx)

	require.Equal(t, uint32(0), buf.Read32(priorityBase+4*5))
	require.Equal(t, uint32(0), buf.Read32(enableBase+uintptr(ctx)*enableStride))
}

func TestSourceRangeIsAsserted(t *testing.T) {
	p, _ := newTestPLIC(95)
	require.Panics(t, func() { p.SetPriority(96, 1) })
	require.Panics(t, func() { p.Enable(SContext(0), 0) })
}
