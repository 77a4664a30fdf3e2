//go:build riscv64

package sbi

import _ "unsafe" // for go:linkname

//go:linkname sbiECall sbi_ecall
//go:nosplit
func sbiECall(ext, fn, a0, a1, a2, a3, a4, a5 uint64) (errorCode int64, value uint64)

// FirmwareCaller issues real ecalls into the machine-mode firmware.
type FirmwareCaller struct{}

func (FirmwareCaller) ECall(ext, fn uint64, args [6]uint64) (int64, uint64) {
	return sbiECall(ext, fn, args[0], args[1], args[2], args[3], args[4], args[5])
}
