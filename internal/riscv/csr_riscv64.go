//go:build riscv64

package riscv

import _ "unsafe" // for go:linkname

// The actual CSR instructions are implemented in csr_riscv64.s: one
// go:linkname'd, argument-passing assembly routine per instruction,
// since Go has no inline assembly.

//go:linkname readTimeCSR riscv_read_time
//go:nosplit
func readTimeCSR() uint64

//go:linkname writeStimecmpCSR riscv_write_stimecmp
//go:nosplit
func writeStimecmpCSR(v uint64)

//go:linkname writeSatpCSR riscv_write_satp
//go:nosplit
func writeSatpCSR(v uint64)

//go:linkname sfenceVMA riscv_sfence_vma
//go:nosplit
func sfenceVMA(vaddr, asid uint64)

//go:linkname sfenceVMAAll riscv_sfence_vma_all
//go:nosplit
func sfenceVMAAll(asid uint64)

//go:linkname enableSIE riscv_enable_sie
//go:nosplit
func enableSIE()

//go:linkname disableSIE riscv_disable_sie
//go:nosplit
func disableSIE() (wasEnabled bool)

//go:linkname wfi riscv_wfi
//go:nosplit
func wfi()

//go:linkname sieEnabled riscv_sie_enabled
//go:nosplit
func sieEnabled() bool

//go:linkname hartID riscv_hart_id
//go:nosplit
func hartID() uint64

// ReadTime returns the raw `time` CSR value.
func ReadTime() uint64 { return readTimeCSR() }

// WriteStimecmp programs this hart's next timer compare value.
func WriteStimecmp(v uint64) { writeStimecmpCSR(v) }

// WriteSatp installs satp; callers must immediately follow it with
// SfenceVMAAll before consulting any translated memory.
func WriteSatp(v uint64) { writeSatpCSR(v) }

// SfenceVMA invalidates the local TLB entry for vaddr tagged with asid.
func SfenceVMA(vaddr, asid uint64) { sfenceVMA(vaddr, asid) }

// SfenceVMAAll invalidates every local TLB entry tagged with asid.
func SfenceVMAAll(asid uint64) { sfenceVMAAll(asid) }

// EnableSIE hard-enables supervisor interrupts.
func EnableSIE() { enableSIE() }

// DisableSIE hard-disables supervisor interrupts and returns whether
// they were enabled beforehand.
func DisableSIE() bool { return disableSIE() }

// WFI waits for the next interrupt.
func WFI() { wfi() }

// SIEEnabled reports whether supervisor interrupts are currently
// enabled, without disturbing sstatus.
func SIEEnabled() bool { return sieEnabled() }

// HartID returns this hart's ID, stashed in tp by the boot assembly
// before Go code ever runs.
func HartID() uint64 { return hartID() }

//go:linkname writeStvecCSR riscv_write_stvec
//go:nosplit
func writeStvecCSR(v uintptr)

// WriteStvec installs the supervisor trap vector in direct mode; addr
// must be 4-byte aligned.
func WriteStvec(addr uintptr) { writeStvecCSR(addr) }
