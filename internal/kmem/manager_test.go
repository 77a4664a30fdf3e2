package kmem

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"onix/internal/sv39"
)

type fakePages struct {
	buf   []byte
	base  uintptr
	limit uintptr
	next  uintptr
}

func newFakePages(pages int) *fakePages {
	buf := make([]byte, (pages+1)*sv39.PageSize)
	raw := uintptr(unsafe.Pointer(&buf[0]))
	aligned := (raw + sv39.PageSize - 1) &^ (sv39.PageSize - 1)
	return &fakePages{buf: buf, base: aligned, limit: aligned + uintptr(pages)*sv39.PageSize, next: aligned}
}

func (f *fakePages) AllocPages(count int) (sv39.PPN, bool) {
	size := uintptr(count) * sv39.PageSize
	if f.next+size > f.limit {
		return 0, false
	}
	addr := f.next
	f.next += size
	return sv39.PhysAddr(addr).PageNum(), true
}

type fakeFencer struct {
	calls int
	err   error
}

func (f *fakeFencer) RemoteSfenceVMAASID(harts []int, startAddr, size uint64, asid uint16) error {
	f.calls++
	return f.err
}

func TestManagerIdentityMapRangeBeforeApplySkipsFlush(t *testing.T) {
	pages := newFakePages(16)
	fencer := &fakeFencer{}
	m, err := Init(pages, fencer, sv39.VPN(0x1000), 4, 2)
	require.NoError(t, err)

	err = m.IdentityMapRange(PhysRange{Start: 0, End: sv39.PageSize}, sv39.FlagR|sv39.FlagW, nil)
	require.NoError(t, err)
	require.Equal(t, 0, fencer.calls)
}

func TestManagerIdentityMapRangeAfterApplyFlushes(t *testing.T) {
	pages := newFakePages(16)
	fencer := &fakeFencer{}
	m, err := Init(pages, fencer, sv39.VPN(0x1000), 4, 2)
	require.NoError(t, err)

	m.Apply()

	err = m.IdentityMapRange(PhysRange{Start: 0, End: sv39.PageSize}, sv39.FlagR|sv39.FlagW, nil)
	require.NoError(t, err)
	require.Equal(t, 1, fencer.calls)
}

func TestAllocateKernelStackExhaustion(t *testing.T) {
	pages := newFakePages(32)
	m, err := Init(pages, nil, sv39.VPN(0x2000), 2, 2)
	require.NoError(t, err)

	s1, err := m.AllocateKernelStack()
	require.NoError(t, err)
	s2, err := m.AllocateKernelStack()
	require.NoError(t, err)
	require.NotEqual(t, s1.Top(), s2.Top())

	_, err = m.AllocateKernelStack()
	require.Error(t, err)
}
