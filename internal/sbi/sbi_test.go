package sbi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingCaller struct {
	ext, fn uint64
	args    [6]uint64
	code    int64
	value   uint64
}

func (c *recordingCaller) ECall(ext, fn uint64, args [6]uint64) (int64, uint64) {
	c.ext, c.fn, c.args = ext, fn, args
	return c.code, c.value
}

func TestHartMaskPacking(t *testing.T) {
	mask, base := hartMask([]int{2, 3, 5})
	require.Equal(t, uint64(2), base)
	require.Equal(t, uint64(0b1011), mask)

	mask, base = hartMask(nil)
	require.Equal(t, ^uint64(0), base, "empty hart list must mean all harts")
	require.Equal(t, uint64(0), mask)
}

func TestHSMCallsUseTheHSMExtension(t *testing.T) {
	c := &recordingCaller{}
	h := HSM{Caller: c}

	require.NoError(t, h.HartStart(3, 0x8020_0000, 7))
	require.Equal(t, uint64(extHSM), c.ext)
	require.Equal(t, uint64(fnHartStart), c.fn)
	require.Equal(t, [6]uint64{3, 0x8020_0000, 7}, c.args)
}

func TestRFENCECallsUseTheRFENCEExtension(t *testing.T) {
	c := &recordingCaller{}
	r := RFENCE{Caller: c}

	require.NoError(t, r.RemoteSfenceVMAASID([]int{0, 1}, 0x1000, 0x2000, 42))
	require.Equal(t, uint64(extRFENCE), c.ext)
	require.Equal(t, uint64(fnRemoteSfenceVMAASID), c.fn)
	require.Equal(t, [6]uint64{0b11, 0, 0x1000, 0x2000, 42}, c.args)
}

func TestNegativeCodesMapToTheFixedErrorEnum(t *testing.T) {
	c := &recordingCaller{code: -2}
	h := HSM{Caller: c}

	err := h.HartStop()
	require.ErrorIs(t, err, NotSupported)
}

func TestHartGetStatusMapsValues(t *testing.T) {
	c := &recordingCaller{value: uint64(StatusSuspended)}
	h := HSM{Caller: c}

	st, err := h.HartGetStatus(0)
	require.NoError(t, err)
	require.Equal(t, StatusSuspended, st)

	c.value = 99
	st, err = h.HartGetStatus(0)
	require.NoError(t, err)
	require.Equal(t, StatusUnknown, st)
}
