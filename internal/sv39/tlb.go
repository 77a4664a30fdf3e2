package sv39

import (
	"onix/internal/kerrors"
	"onix/internal/riscv"
)

// bulkFlushThreshold is the page count above which a per-page
// sfence.vma loop is replaced by a single sfence.vma(asid, all).
const bulkFlushThreshold = 32

// RemoteFencer issues the cross-CPU half of a TLB shootdown: an
// sfence.vma covering [startAddr, startAddr+size)
// scoped to asid, broadcast to every hart in harts (nil/empty means
// all harts) via the platform's SBI RFENCE extension.
type RemoteFencer interface {
	RemoteSfenceVMAASID(harts []int, startAddr, size uint64, asid uint16) error
}

// FlushLocal issues the local half of the TLB discipline for count
// pages starting at vpn tagged with asid: a per-page sfence.vma below
// bulkFlushThreshold pages, or a single bulk sfence.vma(asid, all)
// above it.
func FlushLocal(vpn VPN, count uint64, asid uint16) {
	if count > bulkFlushThreshold {
		riscv.SfenceVMAAll(uint64(asid))
		return
	}
	for i := uint64(0); i < count; i++ {
		riscv.SfenceVMA(VirtAddrFromVPN(vpn+VPN(i)).Value(), uint64(asid))
	}
}

// FlushRemote broadcasts the same invalidation to every remote CPU via
// fencer. A failure here is recoverable, the caller's local
// invalidation has already taken effect, so it is returned rather
// than treated as fatal.
func FlushRemote(fencer RemoteFencer, harts []int, vpn VPN, count uint64, asid uint16) error {
	if fencer == nil {
		return nil
	}
	start := VirtAddrFromVPN(vpn).Value()
	size := count * PageSize
	if err := fencer.RemoteSfenceVMAASID(harts, start, size, asid); err != nil {
		return kerrors.Wrap(err, "remote tlb shootdown")
	}
	return nil
}

// Install writes SATP for root then performs the install-time local
// sfence.vma(asid, all), in that order. A CPU must not consult
// translated memory between those
// two operations; keeping them in one function is what guarantees
// that ordering.
func Install(root *PageTableRoot) {
	riscv.WriteSatp(root.Satp())
	riscv.SfenceVMAAll(uint64(root.ASID()))
}
