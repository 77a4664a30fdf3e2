//go:build riscv64

package trap

import "onix/internal/riscv"

// vector is the stvec entry point; implemented in trap_riscv64.s and
// never called from Go.
func vector()

// vectorPC returns the trap vector's entry address; implemented in
// trap_riscv64.s.
func vectorPC() uintptr

// Install points stvec at the trap vector in direct mode. Each hart
// calls this once before enabling interrupts.
func Install() {
	riscv.WriteStvec(vectorPC())
}
