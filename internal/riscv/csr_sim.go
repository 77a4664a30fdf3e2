//go:build !riscv64

package riscv

import "sync/atomic"

// Software simulation of the CSR/fence primitives, used whenever this
// module is built for a host GOARCH (i.e. by `go test`). It gives
// internal/sv39, internal/timer, and internal/sched a real, observable
// backing store instead of requiring riscv64 hardware.

var (
	simTime       uint64
	simStimecmp   uint64
	simSatp       uint64
	simSIEEnabled int32 = 1
	simHartID     uint64
	SfenceCalls   []SfenceCall
)

// SfenceCall records one simulated sfence.vma for assertions in tests.
type SfenceCall struct {
	Vaddr uint64
	ASID  uint64
	All   bool
}

// AdvanceTime is a test hook: it lets timer tests move the simulated
// clock forward deterministically.
func AdvanceTime(delta uint64) { atomic.AddUint64(&simTime, delta) }

func ReadTime() uint64 { return atomic.LoadUint64(&simTime) }

func WriteStimecmp(v uint64) { atomic.StoreUint64(&simStimecmp, v) }

func ReadStimecmp() uint64 { return atomic.LoadUint64(&simStimecmp) }

func WriteSatp(v uint64) { atomic.StoreUint64(&simSatp, v) }

func ReadSatp() uint64 { return atomic.LoadUint64(&simSatp) }

func SfenceVMA(vaddr, asid uint64) {
	SfenceCalls = append(SfenceCalls, SfenceCall{Vaddr: vaddr, ASID: asid})
}

func SfenceVMAAll(asid uint64) {
	SfenceCalls = append(SfenceCalls, SfenceCall{ASID: asid, All: true})
}

func EnableSIE() { atomic.StoreInt32(&simSIEEnabled, 1) }

func DisableSIE() bool {
	return atomic.SwapInt32(&simSIEEnabled, 0) != 0
}

func SIEEnabled() bool { return atomic.LoadInt32(&simSIEEnabled) != 0 }

func WFI() {
	// Nothing to wait for in simulation; callers loop on state already
	// set by the (simulated) interrupt source before calling WFI.
}

// SetHartID is a test hook standing in for the boot assembly that
// stashes the real hart ID in tp before Go code ever runs.
func SetHartID(id uint64) { atomic.StoreUint64(&simHartID, id) }

// HartID returns the simulated hart ID set by SetHartID (0 by default).
func HartID() uint64 { return atomic.LoadUint64(&simHartID) }

var simStvec uint64

// WriteStvec records the simulated trap vector address.
func WriteStvec(addr uintptr) { atomic.StoreUint64(&simStvec, uint64(addr)) }

// ReadStvec returns the last simulated stvec write, for tests.
func ReadStvec() uintptr { return uintptr(atomic.LoadUint64(&simStvec)) }
