package uart

import (
	"testing"

	"github.com/stretchr/testify/require"

	"onix/internal/mmio"
)

// fakePort records register traffic and always reports a ready
// transmitter.
type fakePort struct {
	mmio.Buffer
	tx []byte
}

func newFakePort() *fakePort {
	p := &fakePort{Buffer: make(mmio.Buffer, 8)}
	p.Buffer[regLSR] = lsrTHRE | lsrTEMT
	return p
}

func (p *fakePort) Write8(off uintptr, v byte) {
	if off == regTHR && p.Buffer[regLCR]&lcrDLAB == 0 {
		p.tx = append(p.tx, v)
		return
	}
	p.Buffer.Write8(off, v)
}

func TestInitProgramsDivisorAndLineFormat(t *testing.T) {
	p := newFakePort()
	u := NewNS16550A(p, 3_686_400)
	u.Init()

	// 3686400 / (16 * 115200) = 2.
	require.Equal(t, byte(2), p.Buffer[regDLL])
	require.Equal(t, byte(0), p.Buffer[regDLM])
	require.Equal(t, byte(lcrWord8N1), p.Buffer[regLCR])
	require.Equal(t, byte(0), p.Buffer[regIER], "init must leave interrupts off")
	require.Empty(t, p.tx, "divisor writes must not leak into the data stream")
}

func TestWriteByteAndTxIdle(t *testing.T) {
	p := newFakePort()
	u := NewNS16550A(p, 0)
	u.Init()

	u.WriteByte('o')
	u.WriteByte('k')
	require.Equal(t, []byte("ok"), p.tx)
	require.True(t, u.IsTxIdle())
}

func TestWriterExpandsNewlines(t *testing.T) {
	p := newFakePort()
	u := NewNS16550A(p, 0)
	u.Init()

	n, err := Writer{D: u}.Write([]byte("a\nb"))
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, []byte("a\r\nb"), p.tx)
}
