// Package plic drives the riscv,plic0 interrupt controller: source
// priorities, per-context enables and thresholds, and the
// claim/complete cycle the external-interrupt trap path runs.
package plic

import (
	"onix/internal/kerrors"
	"onix/internal/mmio"
)

// Register map, offsets from the PLIC's reg base.
const (
	priorityBase = 0x0000 // 4 bytes per source

	enableBase   = 0x2000 // per-context bitmap
	enableStride = 0x80

	contextBase   = 0x20_0000 // per-context threshold + claim
	contextStride = 0x1000

	ctxThreshold = 0x0
	ctxClaim     = 0x4
)

// PLIC is one controller instance. A context identifies a
// hart×privilege pair; on QEMU virt, context 2*hart+1 is the hart's
// S-mode context.
type PLIC struct {
	regs mmio.Region
	ndev uint32
}

// New wraps the controller whose registers live in regs and which
// serves ndev interrupt sources (riscv,ndev).
func New(regs mmio.Region, ndev uint32) *PLIC {
	return &PLIC{regs: regs, ndev: ndev}
}

// SContext returns the S-mode context number for hart.
func SContext(hart int) int { return 2*hart + 1 }

// InitContext masks every source for context, zeroes all source
// priorities, and opens the context's threshold. Run once per hart
// context before enabling individual sources.
func (p *PLIC) InitContext(context int) {
	for irq := uint32(1); irq <= p.ndev; irq++ {
		p.regs.Write32(priorityBase+4*uintptr(irq), 0)
	}
	words := (p.ndev + 31) / 32
	for w := uintptr(0); w < uintptr(words); w++ {
		p.regs.Write32(enableBase+uintptr(context)*enableStride+4*w, 0)
	}
	p.SetThreshold(context, 0)
}

// SetPriority assigns irq's priority; 0 effectively masks the source.
func (p *PLIC) SetPriority(irq, priority uint32) {
	kerrors.Assert(irq >= 1 && irq <= p.ndev, "plic: source %d out of range 1..%d", irq, p.ndev)
	p.regs.Write32(priorityBase+4*uintptr(irq), priority)
}

// Enable unmasks irq for context.
func (p *PLIC) Enable(context int, irq uint32) {
	kerrors.Assert(irq >= 1 && irq <= p.ndev, "plic: source %d out of range 1..%d", irq, p.ndev)
	off := enableBase + uintptr(context)*enableStride + 4*uintptr(irq/32)
	p.regs.Write32(off, p.regs.Read32(off)|1<<(irq%32))
}

// Disable masks irq for context.
func (p *PLIC) Disable(context int, irq uint32) {
	kerrors.Assert(irq >= 1 && irq <= p.ndev, "plic: source %d out of range 1..%d", irq, p.ndev)
	off := enableBase + uintptr(context)*enableStride + 4*uintptr(irq/32)
	p.regs.Write32(off, p.regs.Read32(off)&^(1<<(irq%32)))
}

// SetThreshold sets context's priority threshold; only sources with a
// strictly greater priority interrupt it.
func (p *PLIC) SetThreshold(context int, threshold uint32) {
	p.regs.Write32(contextBase+uintptr(context)*contextStride+ctxThreshold, threshold)
}

// Claim acknowledges context's highest-priority pending source and
// returns its number, or 0 when nothing is pending.
func (p *PLIC) Claim(context int) uint32 {
	return p.regs.Read32(contextBase + uintptr(context)*contextStride + ctxClaim)
}

// Complete signals that context has finished servicing irq, re-arming
// it at the gateway.
func (p *PLIC) Complete(context int, irq uint32) {
	p.regs.Write32(contextBase+uintptr(context)*contextStride+ctxClaim, irq)
}
