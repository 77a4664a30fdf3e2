// Package cpu holds processor-level constants and feature flags for
// the RV64 target. There is no runtime feature probing on bare metal;
// the boot path fills in RISCV64 from the devicetree CPU node's ISA
// string before secondary harts start.
package cpu

// CacheLinePad is used to pad structs to avoid false sharing.
type CacheLinePad struct{ _ [64]byte }

// RISCV64 contains RV64-specific CPU feature flags consulted by the
// timer and fence paths.
var RISCV64 struct {
	_ CacheLinePad
	// HasSstc reports the Sstc extension: a supervisor-writable
	// stimecmp CSR. Without it the timer would have to program
	// compares through the SBI TIME extension instead.
	HasSstc bool
	_ CacheLinePad
}

func init() {
	// QEMU virt with recent OpenSBI exposes Sstc; the boot path
	// clears this if the devicetree's riscv,isa string disagrees.
	RISCV64.HasSstc = true
}
