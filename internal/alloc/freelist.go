package alloc

import "unsafe"

// freeNode is the header written into the first bytes of every free
// block. Its footprint is exactly one header-alignment unit (16 bytes
// on a 64-bit target: an 8-byte size plus an 8-byte next pointer), per
// the free-list allocator's data model.
type freeNode struct {
	size uintptr
	next *freeNode
}

// HeaderAlign is the free-list header's footprint and alignment unit.
const HeaderAlign = unsafe.Sizeof(freeNode{})

// FreeListAllocator is a single-linked, address-ordered list of free
// blocks with eager coalescing on insert. It is not internally
// synchronized; callers (internal/kmem, internal/alloc.SlabAllocator)
// are responsible for serializing access the way the kernel's heap
// wrapper serializes callers of the allocators it presents.
type FreeListAllocator struct {
	head *freeNode
}

func nodeAt(addr uintptr) *freeNode {
	return (*freeNode)(unsafe.Pointer(addr))
}

func addrOfNode(n *freeNode) uintptr {
	return uintptr(unsafe.Pointer(n))
}

// AddHeap rounds start upward and size downward to HeaderAlign and, if
// anything remains, inserts a single free node covering the aligned
// region. A region too small to hold one header after rounding is a
// silent no-op.
func (f *FreeListAllocator) AddHeap(start, size uintptr) {
	alignedStart := alignUp(start, HeaderAlign)
	pad := alignedStart - start
	if pad >= size {
		return
	}
	alignedSize := alignDown(size-pad, HeaderAlign)
	if alignedSize == 0 {
		return
	}
	n := nodeAt(alignedStart)
	n.size = alignedSize
	n.next = nil
	f.insertCoalesce(n)
}

// insertCoalesce inserts n into the address-ordered list and merges it
// with an address-contiguous predecessor and/or successor. Adjacent
// free blocks never persist past this call, preserving the "no two
// adjacent nodes share a boundary" invariant.
func (f *FreeListAllocator) insertCoalesce(n *freeNode) {
	nAddr := addrOfNode(n)

	var prev *freeNode
	cur := f.head
	for cur != nil && addrOfNode(cur) < nAddr {
		prev = cur
		cur = cur.next
	}

	// Splice n between prev and cur.
	n.next = cur
	if prev == nil {
		f.head = n
	} else {
		prev.next = n
	}

	// Coalesce with successor first so a subsequent merge with the
	// predecessor observes the fully-merged size.
	if n.next != nil && nAddr+n.size == addrOfNode(n.next) {
		succ := n.next
		n.size += succ.size
		n.next = succ.next
	}

	if prev != nil && addrOfNode(prev)+prev.size == nAddr {
		prev.size += n.size
		prev.next = n.next
	}
}

// Allocate finds the first free block (in address order) into which a
// block of layout.Size bytes aligned to layout.Align fits, splitting
// off any leading and/or trailing remainder. It reports ok=false if no
// block is large enough once alignment padding is accounted for.
func (f *FreeListAllocator) Allocate(layout Layout) (addr uintptr, ok bool) {
	size := alignUp(layout.Size, HeaderAlign)
	align := layout.Align
	if align < HeaderAlign {
		align = HeaderAlign
	}
	align = alignUp(align, HeaderAlign)
	if size == 0 {
		size = HeaderAlign
	}

	var prev *freeNode
	cur := f.head
	for cur != nil {
		blockStart := addrOfNode(cur)
		blockEnd := blockStart + cur.size

		allocStart := alignUp(blockStart, align)
		allocEnd := allocStart + size

		if allocEnd > blockEnd {
			prev = cur
			cur = cur.next
			continue
		}

		hasLeading := allocStart > blockStart
		hasTrailing := allocEnd < blockEnd

		var trailing *freeNode
		if hasTrailing {
			trailing = nodeAt(allocEnd)
			trailing.size = blockEnd - allocEnd
			trailing.next = cur.next
		}

		switch {
		case hasLeading:
			// cur stays in place as the shrunk leading remainder; its
			// successor becomes the trailing remainder if any, else
			// whatever followed the original block.
			cur.size = allocStart - blockStart
			if hasTrailing {
				cur.next = trailing
			}
			// cur was already linked from prev/head; no relink needed.
		case hasTrailing:
			// No leading remainder: trailing replaces cur in the chain.
			if prev == nil {
				f.head = trailing
			} else {
				prev.next = trailing
			}
		default:
			// Exact fit: unlink cur entirely.
			if prev == nil {
				f.head = cur.next
			} else {
				prev.next = cur.next
			}
		}
		return allocStart, true
	}

	return 0, false
}

// Deallocate reconstructs a free node covering [ptr, ptr+paddedSize) and
// reinserts it with eager coalescing. layout must be the same layout
// passed to the matching Allocate call; the allocator derives the
// padded size from it exactly as Allocate did.
func (f *FreeListAllocator) Deallocate(ptr uintptr, layout Layout) {
	if ptr == 0 {
		panic("alloc: Deallocate of nil pointer")
	}
	if ptr%HeaderAlign != 0 {
		panic("alloc: Deallocate of misaligned pointer")
	}
	size := alignUp(layout.Size, HeaderAlign)
	if size == 0 {
		size = HeaderAlign
	}
	n := nodeAt(ptr)
	n.size = size
	n.next = nil
	f.insertCoalesce(n)
}
