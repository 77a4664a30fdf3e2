//go:build !riscv64

// On a host this binary cannot boot; instead it runs the boot path's
// front half — parse the devicetree, probe the hardware, compute the
// memory layout — against a .dtb file and reports what the kernel
// would do with it. Useful for validating a machine's devicetree
// without a serial console.
package main

import (
	"fmt"
	"os"

	"onix/internal/bootcfg"
	"onix/internal/fdt"
	"onix/internal/fdttool"
	"onix/internal/kmem"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <devicetree.dtb>\n", os.Args[0])
		os.Exit(2)
	}
	if err := dryRun(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %+v\n", os.Args[0], err)
		os.Exit(1)
	}
}

func dryRun(path string) error {
	blob, done, err := fdttool.Open(path)
	if err != nil {
		return err
	}
	defer done()

	flat, err := fdt.Parse(blob)
	if err != nil {
		return err
	}
	tree, err := fdt.ParseTree(blob[:flat.TotalSize()])
	if err != nil {
		return err
	}
	hw, err := bootcfg.Probe(tree)
	if err != nil {
		return err
	}

	fmt.Printf("cpus: %d\n", len(hw.CPUs))
	for _, c := range hw.CPUs {
		fmt.Printf("  hart %d  timebase %d Hz  isa %q\n", c.HartID, c.TimebaseFrequencyHz, c.ISA)
	}

	rsv, err := flat.MemReservations()
	if err != nil {
		return err
	}
	var rsvRanges []kmem.PhysRange
	for _, r := range rsv {
		rsvRanges = append(rsvRanges, kmem.PhysRange{Start: r.Address, End: r.Address + r.Size})
	}

	// Without linker symbols there is no kernel image to subtract;
	// the layout below is what the firmware and devicetree alone
	// leave available.
	layout := kmem.ComputeLayout(hw.Memory, rsvRanges, hw.ReservedMemory,
		kmem.PhysRange{}, kmem.PhysRange{}, kmem.PhysRange{})

	fmt.Printf("memory:\n")
	for _, r := range hw.Memory {
		fmt.Printf("  %#x..%#x (%d MiB)\n", r.Start, r.End, r.Size()>>20)
	}
	fmt.Printf("available after reservations:\n")
	for _, r := range layout.Available {
		fmt.Printf("  %#x..%#x (%d MiB)\n", r.Start, r.End, r.Size()>>20)
	}

	for _, p := range hw.PLICs {
		fmt.Printf("plic: %#x ndev %d\n", p.Reg.Address, p.NDev)
	}
	for _, s := range hw.Serials {
		fmt.Printf("serial: %#x clock %d Hz irq %d\n", s.Reg.Address, s.ClockFrequencyHz, s.Interrupt)
	}
	return nil
}
