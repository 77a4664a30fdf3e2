package bootcfg

import (
	"strings"

	"onix/internal/fdt"
	"onix/internal/kerrors"
	"onix/internal/kmem"
)

// CPUInfo describes one hart enumerated from /cpus.
type CPUInfo struct {
	HartID              uint64
	TimebaseFrequencyHz uint64
	ISA                 string
}

// PLICInfo describes one riscv,plic0 interrupt controller under /soc.
type PLICInfo struct {
	Reg fdt.RegEntry
	// NDev is the number of interrupt sources (riscv,ndev).
	NDev uint32
	// InterruptsExtended is the raw specifier list, one entry per
	// hart×privilege context.
	InterruptsExtended []byte
}

// SerialInfo describes one ns16550a serial device under /soc.
type SerialInfo struct {
	Reg              fdt.RegEntry
	ClockFrequencyHz uint32
	Interrupt        uint32
}

// Hardware is everything the boot path learns from the devicetree:
// CPUs, memory, and interrupt controllers, plus the serial devices
// the log sink needs.
type Hardware struct {
	CPUs           []CPUInfo
	Memory         []kmem.PhysRange
	ReservedMemory []kmem.PhysRange
	PLICs          []PLICInfo
	Serials        []SerialInfo
}

// cells reads a node's #address-cells/#size-cells pair, with the
// devicetree-specification defaults of 2 and 1 when absent.
func cells(n *fdt.Node) (addressCells, sizeCells uint32, err error) {
	addressCells, sizeCells = 2, 1
	if p, ok := n.Property("#address-cells"); ok {
		if addressCells, err = p.Uint32(); err != nil {
			return 0, 0, err
		}
	}
	if p, ok := n.Property("#size-cells"); ok {
		if sizeCells, err = p.Uint32(); err != nil {
			return 0, 0, err
		}
	}
	return addressCells, sizeCells, nil
}

func regOf(n *fdt.Node, parent *fdt.Node) ([]fdt.RegEntry, error) {
	p, ok := n.Property("reg")
	if !ok {
		return nil, kerrors.Wrapf(kerrors.ErrPropertyShape, "node %s has no reg", n.FullName())
	}
	ac, sc, err := cells(parent)
	if err != nil {
		return nil, err
	}
	return fdt.ParseReg(p.Value, ac, sc)
}

func compatibleWith(n *fdt.Node, want string) bool {
	p, ok := n.Property("compatible")
	if !ok {
		return false
	}
	ss, err := p.Strings()
	if err != nil {
		return false
	}
	for _, s := range ss {
		if s == want {
			return true
		}
	}
	return false
}

// Probe walks the parsed devicetree and enumerates the hardware the
// core consumes: harts and their timebase, memory ranges, PLICs, and
// serial devices.
func Probe(tree *fdt.Tree) (*Hardware, error) {
	hw := &Hardware{}
	root := tree.Root

	cpusNode, ok := root.Child("cpus")
	if !ok {
		return nil, kerrors.Wrap(kerrors.ErrPropertyShape, "devicetree has no /cpus node")
	}

	// timebase-frequency lives either on /cpus or on each cpu node.
	var sharedTimebase uint64
	if p, ok := cpusNode.Property("timebase-frequency"); ok {
		v, err := p.Uint32()
		if err != nil {
			return nil, err
		}
		sharedTimebase = uint64(v)
	}

	for _, child := range cpusNode.Children {
		if child.Name != "cpu" {
			continue
		}
		regs, err := regOf(child, cpusNode)
		if err != nil {
			return nil, kerrors.Wrapf(err, "cpu node %s", child.FullName())
		}
		info := CPUInfo{HartID: regs[0].Address, TimebaseFrequencyHz: sharedTimebase}
		if p, ok := child.Property("timebase-frequency"); ok {
			v, err := p.Uint32()
			if err != nil {
				return nil, err
			}
			info.TimebaseFrequencyHz = uint64(v)
		}
		if info.TimebaseFrequencyHz == 0 {
			return nil, kerrors.Wrapf(kerrors.ErrPropertyShape, "cpu %s has no timebase-frequency", child.FullName())
		}
		if p, ok := child.Property("riscv,isa"); ok {
			if s, err := p.Text(); err == nil {
				info.ISA = s
			}
		}
		hw.CPUs = append(hw.CPUs, info)
	}
	if len(hw.CPUs) == 0 {
		return nil, kerrors.Wrap(kerrors.ErrPropertyShape, "/cpus has no cpu nodes")
	}

	for _, child := range root.Children {
		if child.Name == "memory" {
			regs, err := regOf(child, root)
			if err != nil {
				return nil, kerrors.Wrapf(err, "memory node %s", child.FullName())
			}
			for _, r := range regs {
				hw.Memory = append(hw.Memory, kmem.PhysRange{Start: r.Address, End: r.Address + r.Size})
			}
		}
	}

	if rsv, ok := root.Child("reserved-memory"); ok {
		for _, child := range rsv.Children {
			regs, err := regOf(child, rsv)
			if err != nil {
				continue // no-reg children (size/alloc-ranges style) reserve nothing yet
			}
			for _, r := range regs {
				hw.ReservedMemory = append(hw.ReservedMemory, kmem.PhysRange{Start: r.Address, End: r.Address + r.Size})
			}
		}
	}

	soc, ok := root.Child("soc")
	if !ok {
		return hw, nil
	}
	for _, dev := range soc.Children {
		switch {
		case compatibleWith(dev, "riscv,plic0"):
			regs, err := regOf(dev, soc)
			if err != nil {
				return nil, kerrors.Wrapf(err, "plic %s", dev.FullName())
			}
			info := PLICInfo{Reg: regs[0]}
			if p, ok := dev.Property("riscv,ndev"); ok {
				if info.NDev, err = p.Uint32(); err != nil {
					return nil, err
				}
			}
			if p, ok := dev.Property("interrupts-extended"); ok {
				info.InterruptsExtended = p.Value
			}
			hw.PLICs = append(hw.PLICs, info)

		case compatibleWith(dev, "ns16550a"):
			regs, err := regOf(dev, soc)
			if err != nil {
				return nil, kerrors.Wrapf(err, "serial %s", dev.FullName())
			}
			info := SerialInfo{Reg: regs[0]}
			if p, ok := dev.Property("clock-frequency"); ok {
				if info.ClockFrequencyHz, err = p.Uint32(); err != nil {
					return nil, err
				}
			}
			if p, ok := dev.Property("interrupts"); ok {
				if info.Interrupt, err = p.Uint32(); err != nil {
					return nil, err
				}
			}
			hw.Serials = append(hw.Serials, info)
		}
	}

	return hw, nil
}

// HasSstc reports whether every probed hart advertises the Sstc
// extension in its ISA string; harts without an ISA string are
// assumed to have it (QEMU virt omits the string in some versions).
func (hw *Hardware) HasSstc() bool {
	for _, c := range hw.CPUs {
		if c.ISA != "" && !strings.Contains(c.ISA, "sstc") {
			return false
		}
	}
	return true
}
