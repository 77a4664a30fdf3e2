package sv39

import (
	"unsafe"

	"onix/internal/kerrors"
	"onix/internal/riscv"
)

// PageAllocator supplies zeroed, 4096-byte-aligned physical pages to
// the page-table engine: one per intermediate table, and — for
// AllocatePages — count of them per backing region. Production code
// backs this with internal/kmem's physical frame pool; tests back it
// with a bump allocator over a plain Go byte slice (physical addresses
// and host addresses coincide in that setting, the same trick
// internal/alloc's tests use for the free-list allocator).
type PageAllocator interface {
	AllocPages(count int) (PPN, bool)
}

// PageTableRoot owns one top-level page table and an ASID and produces
// the SATP value that installs it.
type PageTableRoot struct {
	root  PPN
	asid  uint16
	pages PageAllocator
}

// NewPageTableRoot zero-allocates a root table from pages and assigns
// asid.
func NewPageTableRoot(pages PageAllocator, asid uint16) (*PageTableRoot, error) {
	ppn, ok := pages.AllocPages(1)
	if !ok {
		return nil, kerrors.Wrap(kerrors.ErrAllocPageTable, "allocate root page table")
	}
	return &PageTableRoot{root: ppn, asid: asid, pages: pages}, nil
}

// ASID returns the address-space identifier this root was built with.
func (r *PageTableRoot) ASID() uint16 { return r.asid }

// RootPPN returns the physical page number of the top-level table.
func (r *PageTableRoot) RootPPN() PPN { return r.root }

// Satp returns the SATP register value {mode=Sv39, asid, ppn(root)}.
func (r *PageTableRoot) Satp() uint64 {
	return riscv.MakeSatp(r.asid, uint64(r.root))
}

func tableAt(ppn PPN) *Table {
	return (*Table)(unsafe.Pointer(uintptr(PhysAddrFromPPN(ppn))))
}

var allowedMapFlags = FlagR | FlagW | FlagX | FlagU

func validateMapFlags(flags Flags) error {
	if flags == 0 || flags&^allowedMapFlags != 0 {
		return kerrors.Wrapf(kerrors.ErrInvalidMapFlags, "flags %#x must be a non-empty subset of R|W|X|U", flags)
	}
	return nil
}

// MapFixedPages installs count identity/fixed mappings starting at
// vpn→ppn with the given flags, attempting a superpage at L1/L2
// wherever vpn and ppn are level-aligned and the remaining count is at
// least the level's span.
// It returns the number of pages actually mapped, which is count
// unless an error cuts the walk short.
func (r *PageTableRoot) MapFixedPages(vpn VPN, ppn PPN, count uint64, flags Flags) (uint64, error) {
	if err := validateMapFlags(flags); err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, kerrors.Wrap(kerrors.ErrInvalidMapFlags, "map_fixed_pages: count must be non-zero")
	}
	p := ppn
	return r.mapRange(r.root, NumLevels-1, vpn, &p, true, count, flags)
}

// AllocatePages is MapFixedPages but allocates fresh zeroed backing
// pages from r's PageAllocator at each leaf instead of using a
// caller-supplied PPN.
func (r *PageTableRoot) AllocatePages(vpn VPN, count uint64, flags Flags) (uint64, error) {
	if err := validateMapFlags(flags); err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, kerrors.Wrap(kerrors.ErrInvalidMapFlags, "allocate_pages: count must be non-zero")
	}
	var unused PPN
	return r.mapRange(r.root, NumLevels-1, vpn, &unused, false, count, flags)
}

// mapRange walks the table rooted at tablePPN at the given level,
// installing leaf entries for count pages starting at vpn (and, if
// fixedPPN, at *ppnBase, which it advances as it consumes pages).
// It recurses into (creating if absent) child tables for any entry
// whose remaining sub-range cannot be covered by a single superpage.
func (r *PageTableRoot) mapRange(tablePPN PPN, level int, vpn VPN, ppnBase *PPN, fixedPPN bool, count uint64, flags Flags) (uint64, error) {
	table := tableAt(tablePPN)
	span := pagesCovered(level)
	idx := vpn.Index(level)

	var mapped uint64
	for count > 0 && idx < EntriesPerTable {
		entry := &table[idx]

		canSuperpage := count >= span && levelAligned(vpn, level) &&
			(!fixedPPN || levelAligned(VPN(uint64(*ppnBase)), level))

		if canSuperpage || level == 0 {
			if entry.Valid() {
				return mapped, kerrors.Wrap(kerrors.ErrAlreadyMapped, "map_fixed_pages")
			}
			var leafPPN PPN
			if fixedPPN {
				leafPPN = *ppnBase
			} else {
				p, ok := r.pages.AllocPages(int(span))
				if !ok {
					return mapped, kerrors.Wrap(kerrors.ErrAllocPageTable, "allocate backing pages")
				}
				leafPPN = p
			}
			*entry = MakeLeafPTE(leafPPN, flags)
			mapped += span
			count -= span
			vpn += VPN(span)
			if fixedPPN {
				*ppnBase += PPN(span)
			}
			idx++
			continue
		}

		var childPPN PPN
		switch {
		case !entry.Valid():
			p, ok := r.pages.AllocPages(1)
			if !ok {
				return mapped, kerrors.Wrap(kerrors.ErrAllocPageTable, "allocate intermediate table")
			}
			childPPN = p
			*entry = MakeNonLeafPTE(childPPN)
		case entry.IsLeaf():
			return mapped, kerrors.Wrap(kerrors.ErrAlreadyMapped, "map_fixed_pages")
		default:
			childPPN = entry.PPN()
		}

		sub := span
		if count < sub {
			sub = count
		}
		n, err := r.mapRange(childPPN, level-1, vpn, ppnBase, fixedPPN, sub, flags)
		mapped += n
		count -= n
		vpn += VPN(n)
		if err != nil {
			return mapped, err
		}
		idx++
	}
	return mapped, nil
}

// Mapping describes a resolved translation: the physical page it
// targets, the flags the covering leaf entry carries, and the level
// (0, 1, or 2) that leaf was installed at.
type Mapping struct {
	PPN   PPN
	Flags Flags
	Level int
}

// ByteRange returns the byte range [minVA, maxVA] that the mapping
// covering vpn was installed over, derived from m.Level and vpn.
func (m Mapping) ByteRange(vpn VPN) (minVA, maxVA VirtAddr) {
	span := pagesCovered(m.Level)
	base := VPN(uint64(vpn) / span * span)
	minVA = VirtAddrFromVPN(base)
	maxVA = VirtAddr(uint64(minVA) + span*PageSize - 1)
	return
}

// Lookup walks the table from the root and returns the mapping
// covering vpn, if any.
func (r *PageTableRoot) Lookup(vpn VPN) (Mapping, bool) {
	tablePPN := r.root
	for level := NumLevels - 1; level >= 0; level-- {
		table := tableAt(tablePPN)
		entry := table[vpn.Index(level)]
		if !entry.Valid() {
			return Mapping{}, false
		}
		if entry.IsLeaf() {
			span := pagesCovered(level)
			within := uint64(vpn) % span
			return Mapping{PPN: entry.PPN() + PPN(within), Flags: entry.Flags() &^ FlagV, Level: level}, true
		}
		tablePPN = entry.PPN()
	}
	return Mapping{}, false
}
