// Package timer implements the per-CPU monotonic clock, the timer
// event heap, and the sleep path: the `time` CSR divided by the
// devicetree-supplied timebase-frequency yields the clock, and
// stimecmp drives the event heap.
package timer

import "onix/internal/riscv"

// Instant is a monotonic point in time, expressed in nanoseconds since
// boot.
type Instant int64

// Add returns the instant d nanoseconds after i.
func (i Instant) Add(d int64) Instant { return i + Instant(d) }

// Before reports whether i happens before other.
func (i Instant) Before(other Instant) bool { return i < other }

// frequencyHz is the local CPU's timer frequency, read from the
// devicetree CPU node's timebase-frequency property. QEMU
// virt's default stands in until Init runs.
var frequencyHz uint64 = 10_000_000

// Init records the timer frequency obtained from the devicetree CPU
// node. It must run once, at boot, before Now or Sleep are called.
func Init(timebaseFrequencyHz uint64) {
	if timebaseFrequencyHz != 0 {
		frequencyHz = timebaseFrequencyHz
	}
}

// Now reads the hardware cycle counter and converts it to a monotonic
// Instant using the CPU's timer frequency.
func Now() Instant {
	cycles := riscv.ReadTime()
	return Instant(cyclesToNanos(cycles))
}

// cyclesToNanos converts a raw cycle count to nanoseconds without
// overflowing uint64 the way a naive cycles*1e9/freq would once
// uptime grows past about half an hour at a 10 MHz timebase.
func cyclesToNanos(cycles uint64) int64 {
	whole := cycles / frequencyHz
	frac := cycles % frequencyHz
	return int64(whole*1_000_000_000 + frac*1_000_000_000/frequencyHz)
}

// nanosToCycles is cyclesToNanos's inverse, used to program the
// hardware compare register from a deadline Instant.
func nanosToCycles(nanos int64) uint64 {
	n := uint64(nanos)
	whole := n / 1_000_000_000
	frac := n % 1_000_000_000
	return whole*frequencyHz + frac*frequencyHz/1_000_000_000
}
