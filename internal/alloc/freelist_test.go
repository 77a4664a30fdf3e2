package alloc

import (
	"testing"
	"unsafe"
)

func newTestHeap(t *testing.T, size int) (*FreeListAllocator, uintptr) {
	t.Helper()
	buf := make([]byte, size)
	start := uintptr(unsafe.Pointer(&buf[0]))
	f := &FreeListAllocator{}
	f.AddHeap(start, uintptr(size))
	// Keep buf alive for the duration of the test by registering a
	// cleanup that references it.
	t.Cleanup(func() { _ = buf[0] })
	return f, start
}

func TestFreeListBasicRoundTrip(t *testing.T) {
	// Room for exactly four 64-byte blocks.
	f, start := newTestHeap(t, 256)

	layout := Layout{Size: 64, Align: 1}
	p1, ok := f.Allocate(layout)
	if !ok {
		t.Fatal("expected allocation to succeed")
	}
	p2, ok := f.Allocate(layout)
	if !ok {
		t.Fatal("expected allocation to succeed")
	}
	p3, ok := f.Allocate(layout)
	if !ok {
		t.Fatal("expected allocation to succeed")
	}
	p4, ok := f.Allocate(layout)
	if !ok {
		t.Fatal("expected allocation to succeed")
	}

	if !(p1 < p2 && p2 < p3 && p3 < p4) {
		t.Fatalf("expected strictly increasing addresses, got %x %x %x %x", p1, p2, p3, p4)
	}

	if _, ok := f.Allocate(layout); ok {
		t.Fatal("expected fifth allocation to fail")
	}

	f.Deallocate(p2, layout)
	f.Deallocate(p1, layout)

	big, ok := f.Allocate(Layout{Size: 128, Align: 1})
	if !ok {
		t.Fatal("expected coalesced allocation to succeed")
	}
	if big != alignUp(start, HeaderAlign) {
		t.Fatalf("expected coalesced allocation to reuse freed region, got %x", big)
	}
}

func TestFreeListFullCycleLeavesOneNode(t *testing.T) {
	f, start := newTestHeap(t, 4096)
	alignedStart := alignUp(start, HeaderAlign)
	alignedSize := alignDown(4096-(alignedStart-start), HeaderAlign)

	layout := Layout{Size: 48, Align: 16}
	var ptrs []uintptr
	for {
		p, ok := f.Allocate(layout)
		if !ok {
			break
		}
		ptrs = append(ptrs, p)
	}
	for _, p := range ptrs {
		f.Deallocate(p, layout)
	}

	if f.head == nil {
		t.Fatal("expected one coalesced free node")
	}
	if f.head.next != nil {
		t.Fatal("expected exactly one free node after full cycle")
	}
	if addrOfNode(f.head) != alignedStart || f.head.size != alignedSize {
		t.Fatalf("expected free node to cover the aligned heap interior, got addr=%x size=%d", addrOfNode(f.head), f.head.size)
	}
}

func TestFreeListAllocateExhaustion(t *testing.T) {
	f, _ := newTestHeap(t, 64)
	if _, ok := f.Allocate(Layout{Size: 128, Align: 1}); ok {
		t.Fatal("expected allocation larger than heap to fail")
	}
}

func TestFreeListDeallocateRejectsMisalignedPointer(t *testing.T) {
	f, start := newTestHeap(t, 256)
	_ = f
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on misaligned pointer")
		}
	}()
	f.Deallocate(start+1, Layout{Size: 16, Align: 1})
}
