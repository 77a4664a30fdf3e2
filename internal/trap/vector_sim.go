//go:build !riscv64

package trap

// Install is a no-op on hosts: there is no stvec to program, and
// tests invoke Handle directly.
func Install() {}
