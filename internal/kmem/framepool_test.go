package kmem

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"onix/internal/alloc"
	"onix/internal/sv39"
)

func TestFramePoolHandsOutAlignedZeroedFrames(t *testing.T) {
	backing := make([]byte, 16*sv39.PageSize)
	for i := range backing {
		backing[i] = 0xAA
	}
	heap := &alloc.FreeListAllocator{}
	heap.AddHeap(uintptr(unsafe.Pointer(&backing[0])), uintptr(len(backing)))

	pool := FramePool{Heap: heap}
	ppn, ok := pool.AllocPages(2)
	require.True(t, ok)

	addr := uintptr(sv39.PhysAddrFromPPN(ppn))
	require.Zero(t, addr%sv39.PageSize, "frames must be page-aligned")

	frame := unsafe.Slice((*byte)(unsafe.Pointer(addr)), 2*sv39.PageSize)
	for _, b := range frame {
		require.Zero(t, b, "frames must be zeroed")
	}
}

func TestFramePoolPropagatesExhaustion(t *testing.T) {
	heap := &alloc.FreeListAllocator{}
	pool := FramePool{Heap: heap}
	_, ok := pool.AllocPages(1)
	require.False(t, ok)
}
