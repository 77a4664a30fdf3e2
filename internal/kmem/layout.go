// Package kmem is the kernel-space memory manager: the boot-time
// physical memory layout computation and the single shared kernel
// PageTableRoot behind it.
package kmem

import "sort"

// PhysRange is a half-open physical byte range [Start, End).
type PhysRange struct {
	Start uint64
	End   uint64
}

// Size returns the range's length in bytes.
func (r PhysRange) Size() uint64 { return r.End - r.Start }

// Empty reports whether the range contains no bytes.
func (r PhysRange) Empty() bool { return r.End <= r.Start }

// subtractOne removes sub from every range in ranges, splitting a
// range into up to two pieces when sub falls in its interior.
func subtractOne(ranges []PhysRange, sub PhysRange) []PhysRange {
	if sub.Empty() {
		return ranges
	}
	out := make([]PhysRange, 0, len(ranges)+1)
	for _, r := range ranges {
		if sub.End <= r.Start || sub.Start >= r.End {
			out = append(out, r)
			continue
		}
		if sub.Start > r.Start {
			out = append(out, PhysRange{Start: r.Start, End: sub.Start})
		}
		if sub.End < r.End {
			out = append(out, PhysRange{Start: sub.End, End: r.End})
		}
	}
	return out
}

// Subtract removes every range in subs from ranges, returning the
// remaining non-overlapping ranges in ascending start-address order.
func Subtract(ranges []PhysRange, subs ...PhysRange) []PhysRange {
	for _, s := range subs {
		ranges = subtractOne(ranges, s)
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })
	return ranges
}

// OpenSBIRange is the physical range the firmware keeps for itself.
var OpenSBIRange = PhysRange{Start: 0x8000_0000, End: 0x8020_0000}

// MemoryLayout is the set of non-overlapping physical ranges computed
// once at boot:
//
//	available = memory_nodes(FDT) − mem_rsvmap(FDT) −
//	            reserved_memory_nodes(FDT) − opensbi_range −
//	            kernel_image_range
//
// and the further subtraction of the boot stack and FDT blob region
// that yields the initial heap.
type MemoryLayout struct {
	Available []PhysRange
	Heap      []PhysRange
}

// ComputeLayout derives a MemoryLayout from the boot-time inputs. Each
// argument is a list of ranges to exclude from memoryNodes;
// bootStack and fdtBlob are then further
// subtracted from the result to produce Heap.
func ComputeLayout(memoryNodes, memRsvmap, reservedMemoryNodes []PhysRange, kernelImage, bootStack, fdtBlob PhysRange) MemoryLayout {
	available := append([]PhysRange(nil), memoryNodes...)
	available = Subtract(available, memRsvmap...)
	available = Subtract(available, reservedMemoryNodes...)
	available = Subtract(available, OpenSBIRange, kernelImage)

	heap := Subtract(append([]PhysRange(nil), available...), bootStack, fdtBlob)

	return MemoryLayout{Available: available, Heap: heap}
}
