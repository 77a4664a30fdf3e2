package kmem

import (
	"unsafe"

	"onix/internal/alloc"
	"onix/internal/sv39"
)

// Allocator is the slice of the heap-allocator surface FramePool
// needs; both the slab layer and the bare free-list satisfy it (a
// page-sized, page-aligned request falls through the slab's size
// classes to the free-list either way).
type Allocator interface {
	Allocate(layout alloc.Layout) (uintptr, bool)
}

// FramePool adapts the heap allocator into the page-table engine's
// page source: page-aligned, page-multiple, zeroed allocations carved
// from the boot heap. Frames handed to page tables are never
// returned; the kernel root lives for the kernel's lifetime.
type FramePool struct {
	Heap Allocator
}

// AllocPages returns count zeroed, contiguous, 4096-byte-aligned
// frames.
func (p FramePool) AllocPages(count int) (sv39.PPN, bool) {
	size := uintptr(count) * sv39.PageSize
	addr, ok := p.Heap.Allocate(alloc.Layout{Size: size, Align: sv39.PageSize})
	if !ok {
		return 0, false
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	for i := range b {
		b[i] = 0
	}
	return sv39.PhysAddr(addr).PageNum(), true
}
