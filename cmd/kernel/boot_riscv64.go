//go:build riscv64

// The kernel entry point: OpenSBI hands control to the early boot
// assembly with the hart ID in a0 and the devicetree blob address in
// a1; the assembly sets up a stack, stashes both values, and calls
// main. Everything after that is the boot flow below.
package main

import (
	"unsafe"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	"onix/internal/alloc"
	"onix/internal/bootcfg"
	"onix/internal/cpu"
	"onix/internal/fdt"
	"onix/internal/kerrors"
	"onix/internal/klog"
	"onix/internal/kmem"
	"onix/internal/mmio"
	"onix/internal/percpu"
	"onix/internal/plic"
	"onix/internal/riscv"
	"onix/internal/sbi"
	"onix/internal/sched"
	"onix/internal/sv39"
	"onix/internal/timer"
	"onix/internal/trap"
	"onix/internal/uart"
)

// Linker-defined segment boundaries, page-rounded outward before
// protection flags are assigned.
//
//go:linkname kernelStart __onix_kernel_start
var kernelStart byte

//go:linkname kernelEnd __onix_kernel_end
var kernelEnd byte

//go:linkname rxStart __onix_rx_start
var rxStart byte

//go:linkname rxEnd __onix_rx_end
var rxEnd byte

//go:linkname roStart __onix_ro_start
var roStart byte

//go:linkname roEnd __onix_ro_end
var roEnd byte

//go:linkname rwStart __onix_rw_start
var rwStart byte

//go:linkname rwEnd __onix_rw_end
var rwEnd byte

//go:linkname bootStackStart __onix_boot_stack_start
var bootStackStart byte

//go:linkname bootStackEnd __onix_boot_stack_end
var bootStackEnd byte

// bootFDT is filled by the early boot assembly from a1.
//
//go:linkname bootFDT __onix_boot_fdt
var bootFDT uintptr

// secondaryEntry is the boot assembly's secondary-hart entry point,
// handed to HSM.HartStart.
//
//go:linkname secondaryEntry __onix_secondary_entry
var secondaryEntry byte

func segment(start, end *byte) kmem.PhysRange {
	s := uint64(uintptr(unsafe.Pointer(start))) &^ (sv39.PageSize - 1)
	e := (uint64(uintptr(unsafe.Pointer(end))) + sv39.PageSize - 1) &^ (sv39.PageSize - 1)
	return kmem.PhysRange{Start: s, End: e}
}

// maxFDTSize bounds the raw blob view before its header is validated.
const maxFDTSize = 2 << 20

var (
	bootLog klog.Logger
	manager *kmem.Manager
	console uart.Driver
	irqCtrl *plic.PLIC
	hw      *bootcfg.Hardware
)

func main() {
	hartID := riscv.HartID()
	raw := unsafe.Slice((*byte)(unsafe.Pointer(bootFDT)), maxFDTSize)

	flat, err := fdt.Parse(raw)
	if err != nil {
		kerrors.Fatal(nil, kerrors.Wrap(err, "boot: parse devicetree"))
	}
	tree, err := fdt.ParseTree(raw[:flat.TotalSize()])
	if err != nil {
		kerrors.Fatal(nil, kerrors.Wrap(err, "boot: build devicetree"))
	}
	hw, err = bootcfg.Probe(tree)
	if err != nil {
		kerrors.Fatal(nil, kerrors.Wrap(err, "boot: probe hardware"))
	}

	// Console first: everything after this line can log.
	if len(hw.Serials) > 0 {
		dev := uart.NewNS16550A(mmio.Map(uintptr(hw.Serials[0].Reg.Address)), hw.Serials[0].ClockFrequencyHz)
		dev.Init()
		console = dev
		klog.Init(uart.Writer{D: console}, zapcore.InfoLevel)
	}
	bootLog = klog.With("boot")
	bootLog.Infof("onix starting on hart %d, %d cpus", hartID, len(hw.CPUs))

	cfg := bootcfg.Default()
	cpu.RISCV64.HasSstc = hw.HasSstc()
	timer.Init(hw.CPUs[0].TimebaseFrequencyHz)
	timer.SetTickInterval(cfg.TickInterval)

	// Memory layout: strip firmware, kernel image, boot stack, and
	// the blob itself out of the devicetree's memory nodes.
	rsv, err := flat.MemReservations()
	if err != nil {
		kerrors.Fatal(bootLog.Errorf, kerrors.Wrap(err, "boot: memory reservations"))
	}
	var rsvRanges []kmem.PhysRange
	for _, r := range rsv {
		rsvRanges = append(rsvRanges, kmem.PhysRange{Start: r.Address, End: r.Address + r.Size})
	}
	fdtRange := kmem.PhysRange{
		Start: uint64(bootFDT) &^ (sv39.PageSize - 1),
		End:   (uint64(bootFDT) + uint64(flat.TotalSize()) + sv39.PageSize - 1) &^ (sv39.PageSize - 1),
	}
	layout := kmem.ComputeLayout(
		hw.Memory, rsvRanges, hw.ReservedMemory,
		segment(&kernelStart, &kernelEnd),
		segment(&bootStackStart, &bootStackEnd),
		fdtRange,
	)

	heap := &alloc.FreeListAllocator{}
	for _, r := range layout.Heap {
		heap.AddHeap(uintptr(r.Start), uintptr(r.Size()))
	}
	slab := alloc.NewSlabAllocator(heap)
	bootLog.Infof("heap seeded with %d ranges", len(layout.Heap))

	percpu.Init(int(hartID), len(hw.CPUs))

	fencer := sbi.RFENCE{Caller: sbi.FirmwareCaller{}}
	manager, err = kmem.Init(
		kmem.FramePool{Heap: slab},
		fencer,
		sv39.VPN(cfg.StackSlotBase>>sv39.PageShift),
		cfg.StackSlotPages,
		cfg.StackSlots,
	)
	if err != nil {
		kerrors.Fatal(bootLog.Errorf, kerrors.Wrap(err, "boot: kernel page table"))
	}

	if err := buildKernelMappings(layout, fdtRange); err != nil {
		kerrors.Fatal(bootLog.Errorf, kerrors.Wrap(err, "boot: identity maps"))
	}
	manager.Apply()
	bootLog.Infof("sv39 enabled, asid 0")

	setupInterrupts(int(hartID))
	trap.Install()

	sched.Init(manager)
	if _, err := sched.Spawn(initTask); err != nil {
		kerrors.Fatal(bootLog.Errorf, kerrors.Wrap(err, "boot: spawn init"))
	}

	startSecondaries(hartID)

	timer.StartTicking()
	sched.Schedule()
}

// buildKernelMappings installs the identity maps every hart needs:
// kernel text RX, rodata RO, data/bss/stacks RW, the heap RW, the
// devicetree blob RO, and the device windows RW. Mapping failures are
// collected so one bad range reports alongside the rest.
func buildKernelMappings(layout kmem.MemoryLayout, fdtRange kmem.PhysRange) error {
	var errs error
	ident := func(r kmem.PhysRange, flags sv39.Flags) {
		if r.Empty() {
			return
		}
		errs = multierr.Append(errs, manager.IdentityMapRange(r, flags, nil))
	}

	ident(segment(&rxStart, &rxEnd), sv39.FlagR|sv39.FlagX)
	ident(segment(&roStart, &roEnd), sv39.FlagR)
	ident(segment(&rwStart, &rwEnd), sv39.FlagR|sv39.FlagW)
	ident(segment(&bootStackStart, &bootStackEnd), sv39.FlagR|sv39.FlagW)
	ident(fdtRange, sv39.FlagR)
	for _, r := range layout.Heap {
		ident(r, sv39.FlagR|sv39.FlagW)
	}
	for _, p := range hw.PLICs {
		ident(kmem.PhysRange{Start: p.Reg.Address, End: p.Reg.Address + p.Reg.Size}, sv39.FlagR|sv39.FlagW)
	}
	for _, s := range hw.Serials {
		ident(kmem.PhysRange{Start: s.Reg.Address, End: s.Reg.Address + s.Reg.Size}, sv39.FlagR|sv39.FlagW)
	}
	return errs
}

// setupInterrupts brings up the hart's PLIC context and routes the
// console interrupt; the claim/complete loop becomes the trap path's
// external handler.
func setupInterrupts(hart int) {
	if len(hw.PLICs) == 0 {
		return
	}
	p := hw.PLICs[0]
	irqCtrl = plic.New(mmio.Map(uintptr(p.Reg.Address)), p.NDev)
	ctx := plic.SContext(hart)
	irqCtrl.InitContext(ctx)
	for _, s := range hw.Serials {
		if s.Interrupt != 0 {
			irqCtrl.SetPriority(s.Interrupt, 1)
			irqCtrl.Enable(ctx, s.Interrupt)
		}
	}
	trap.ExternalHandler = func() {
		ctx := plic.SContext(percpu.Current().ID)
		for {
			irq := irqCtrl.Claim(ctx)
			if irq == 0 {
				return
			}
			// Console TX drains by polling; claim/complete keeps the
			// gateway happy until per-device handlers are registered.
			irqCtrl.Complete(ctx, irq)
		}
	}
}

// startSecondaries asks the firmware to bring every other hart into
// the boot assembly's secondary entry, which lands in secondaryMain.
func startSecondaries(bootHart uint64) {
	hsm := sbi.HSM{Caller: sbi.FirmwareCaller{}}
	entry := uint64(uintptr(unsafe.Pointer(&secondaryEntry)))
	for _, c := range hw.CPUs {
		if c.HartID == bootHart {
			continue
		}
		if err := hsm.HartStart(c.HartID, entry, 0); err != nil {
			bootLog.Warnf("hart %d failed to start: %v", c.HartID, err)
		}
	}
}

// secondaryMain is called by the boot assembly on each secondary hart
// once its stack is up: install the shared address space and this
// hart's interrupt plumbing, then join the scheduler.
//
//go:linkname secondaryMain __onix_secondary_main
func secondaryMain() {
	hart := int(riscv.HartID())
	manager.Apply()
	if irqCtrl != nil {
		irqCtrl.InitContext(plic.SContext(hart))
	}
	trap.Install()
	timer.StartTicking()
	bootLog.Infof("hart %d joined", hart)
	sched.Schedule()
}

// initTask is the first spawned task: it reports boot completion and
// then idles on the timer, exercising the sleep path end to end.
func initTask() {
	bootLog.Infof("boot complete")
	for {
		timer.Sleep(10 * timer.SchedulerInterval)
		bootLog.Debugf("init heartbeat")
	}
}
