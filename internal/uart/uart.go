// Package uart drives the ns16550a serial devices enumerated from the
// devicetree. The kernel log writes through whichever driver the boot
// path registers first.
package uart

import "onix/internal/mmio"

// Driver is the dynamic-dispatch surface the serial layer presents to
// the rest of the kernel; the concrete device behind it is chosen at
// boot from the devicetree's compatible strings.
type Driver interface {
	Init()
	WriteByte(b byte)
	IsTxIdle() bool
}

// ns16550a register offsets. The divisor latch overlays THR/IER while
// LCR.DLAB is set.
const (
	regTHR = 0 // transmit holding (write)
	regIER = 1 // interrupt enable
	regFCR = 2 // FIFO control (write)
	regLCR = 3 // line control
	regMCR = 4 // modem control
	regLSR = 5 // line status (read)

	regDLL = 0 // divisor latch low, while DLAB
	regDLM = 1 // divisor latch high, while DLAB

	lcrDLAB    = 1 << 7
	lcrWord8N1 = 0x03

	fcrEnable  = 1 << 0
	fcrClearRx = 1 << 1
	fcrClearTx = 1 << 2

	lsrTHRE = 1 << 5 // transmit holding register empty
	lsrTEMT = 1 << 6 // transmitter fully idle
)

const defaultBaud = 115_200

// NS16550A is the register-level driver for one ns16550a-compatible
// port.
type NS16550A struct {
	regs    mmio.Region
	clockHz uint32
}

// NewNS16550A wraps the device whose registers live in regs; clockHz
// comes from the node's clock-frequency property.
func NewNS16550A(regs mmio.Region, clockHz uint32) *NS16550A {
	return &NS16550A{regs: regs, clockHz: clockHz}
}

// Init programs 115200-8N1 with FIFOs enabled and interrupts off; the
// boot path runs polled until the PLIC is up.
func (u *NS16550A) Init() {
	u.regs.Write8(regIER, 0)

	if u.clockHz != 0 {
		divisor := u.clockHz / (16 * defaultBaud)
		if divisor == 0 {
			divisor = 1
		}
		u.regs.Write8(regLCR, lcrDLAB)
		u.regs.Write8(regDLL, byte(divisor))
		u.regs.Write8(regDLM, byte(divisor>>8))
	}
	u.regs.Write8(regLCR, lcrWord8N1)
	u.regs.Write8(regFCR, fcrEnable|fcrClearRx|fcrClearTx)
	u.regs.Write8(regMCR, 0)
}

// WriteByte spins until the transmit holding register drains, then
// writes b.
func (u *NS16550A) WriteByte(b byte) {
	for u.regs.Read8(regLSR)&lsrTHRE == 0 {
	}
	u.regs.Write8(regTHR, b)
}

// IsTxIdle reports whether the transmitter has fully drained.
func (u *NS16550A) IsTxIdle() bool {
	return u.regs.Read8(regLSR)&lsrTEMT != 0
}

// Writer adapts a Driver into the io.Writer the log sink expects,
// expanding "\n" to "\r\n" for raw terminals.
type Writer struct {
	D Driver
}

func (w Writer) Write(p []byte) (int, error) {
	for _, b := range p {
		if b == '\n' {
			w.D.WriteByte('\r')
		}
		w.D.WriteByte(b)
	}
	return len(p), nil
}
