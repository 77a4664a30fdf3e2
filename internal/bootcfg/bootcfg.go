// Package bootcfg consolidates the kernel's boot-time tunables and
// the hardware description probed out of the devicetree into one
// place, so the boot path threads a single value through its setup
// steps instead of reading scattered globals.
package bootcfg

import "time"

// Config carries the tunables the boot path needs before and while
// the devicetree is parsed. Default returns the built-in values; no
// code here fills zero-value fields of a caller-built Config.
type Config struct {
	// TickInterval is the scheduler tick period.
	TickInterval time.Duration

	// StackSlotBase is the virtual address where the kernel-stack
	// slot pool begins.
	StackSlotBase uint64
	// StackSlotPages is the size of one kernel stack in pages.
	StackSlotPages uint64
	// StackSlots is the number of slots in the pool.
	StackSlots int
}

// Default returns the built-in configuration for the QEMU virt
// machine.
func Default() Config {
	return Config{
		TickInterval:   100 * time.Millisecond,
		StackSlotBase:  0x40_0000_0000 - (1 << 30), // top gigabyte below the Sv39 hole
		StackSlotPages: 4,
		StackSlots:     64,
	}
}
