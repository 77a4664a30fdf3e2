// Package mmio gives device drivers register-level access to a
// memory-mapped window. Production windows dereference the device's
// identity-mapped physical address; tests substitute a RAM-backed
// Buffer so driver logic runs on any host.
package mmio

import (
	"encoding/binary"
	"unsafe"

	"onix/internal/kerrors"
)

// Region is one device's register window.
type Region interface {
	Read8(off uintptr) byte
	Write8(off uintptr, v byte)
	Read32(off uintptr) uint32
	Write32(off uintptr, v uint32)
}

// Map returns a Region over the identity-mapped physical address
// base. The kernel must have mapped the range with R|W before any
// access.
func Map(base uintptr) Region { return window(base) }

type window uintptr

func (w window) Read8(off uintptr) byte {
	return *(*byte)(unsafe.Pointer(uintptr(w) + off))
}

func (w window) Write8(off uintptr, v byte) {
	*(*byte)(unsafe.Pointer(uintptr(w) + off)) = v
}

func (w window) Read32(off uintptr) uint32 {
	return *(*uint32)(unsafe.Pointer(uintptr(w) + off))
}

func (w window) Write32(off uintptr, v uint32) {
	*(*uint32)(unsafe.Pointer(uintptr(w) + off)) = v
}

// Buffer is a RAM-backed Region for driver tests. Multi-byte accesses
// are little-endian, matching the CPU's view of a real window.
type Buffer []byte

func (b Buffer) check(off, size uintptr) {
	kerrors.Assert(off+size <= uintptr(len(b)), "mmio: access at %#x+%d outside %d-byte buffer", off, size, len(b))
}

func (b Buffer) Read8(off uintptr) byte { b.check(off, 1); return b[off] }

func (b Buffer) Write8(off uintptr, v byte) { b.check(off, 1); b[off] = v }

func (b Buffer) Read32(off uintptr) uint32 {
	b.check(off, 4)
	return binary.LittleEndian.Uint32(b[off:])
}

func (b Buffer) Write32(off uintptr, v uint32) {
	b.check(off, 4)
	binary.LittleEndian.PutUint32(b[off:], v)
}
