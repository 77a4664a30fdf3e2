// Package sbi wraps the Supervisor Binary Interface calls the kernel
// core needs: HSM (hart lifecycle) and RFENCE (remote TLB/instruction
// cache shootdown). Every call returns the SBI
// {error, value} pair; Error.Unwrap lets callers test against the
// fixed error enum with errors.Is.
package sbi

import "onix/internal/kerrors"

// Extension and function IDs, per the SBI specification.
const (
	extHSM    = 0x48534D
	extRFENCE = 0x52464E43

	fnHartStart     = 0
	fnHartStop      = 1
	fnHartGetStatus = 2
	fnHartSuspend   = 3

	fnRemoteFenceI        = 0
	fnRemoteSfenceVMA     = 1
	fnRemoteSfenceVMAASID = 2
)

// Status enumerates the hart lifecycle states reported by
// HartGetStatus.
type Status int

const (
	StatusStarted Status = iota
	StatusStopped
	StatusStartPending
	StatusStopPending
	StatusSuspended
	StatusSuspendPending
	StatusResumePending
	StatusUnknown
)

// Error is the fixed SBI error enum. A zero Error is success.
type Error int

const (
	Success Error = iota
	Failed
	NotSupported
	InvalidParam
	Denied
	InvalidAddress
	AlreadyAvailable
	AlreadyStarted
	AlreadyStopped
	NoShmem
)

func (e Error) Error() string {
	switch e {
	case Success:
		return "sbi: success"
	case Failed:
		return "sbi: failed"
	case NotSupported:
		return "sbi: not supported"
	case InvalidParam:
		return "sbi: invalid parameter"
	case Denied:
		return "sbi: denied"
	case InvalidAddress:
		return "sbi: invalid address"
	case AlreadyAvailable:
		return "sbi: already available"
	case AlreadyStarted:
		return "sbi: already started"
	case AlreadyStopped:
		return "sbi: already stopped"
	case NoShmem:
		return "sbi: no shared memory"
	default:
		return "sbi: unknown error"
	}
}

// errorFromCode maps a raw (negative) SBI error code to Error.
func errorFromCode(code int64) Error {
	if code == 0 {
		return Success
	}
	switch code {
	case -1:
		return Failed
	case -2:
		return NotSupported
	case -3:
		return InvalidParam
	case -4:
		return Denied
	case -5:
		return InvalidAddress
	case -6:
		return AlreadyAvailable
	case -7:
		return AlreadyStarted
	case -8:
		return AlreadyStopped
	case -9:
		return NoShmem
	default:
		return Failed
	}
}

// Caller performs the raw `ecall` trampoline into firmware. Production
// code uses FirmwareCaller, backed by this package's ecall_riscv64.s
// trampoline; tests substitute
// a fake that records calls and returns canned results.
type Caller interface {
	ECall(ext, fn uint64, args [6]uint64) (errorCode int64, value uint64)
}

// HSM wraps the Hart State Management extension.
type HSM struct{ Caller Caller }

func (h HSM) call(fn uint64, args [6]uint64) (uint64, error) {
	code, value := h.Caller.ECall(extHSM, fn, args)
	if e := errorFromCode(code); e != Success {
		return 0, kerrors.Wrapf(e, "sbi HSM fn=%d", fn)
	}
	return value, nil
}

// HartStart starts hart with the given start address and an opaque
// value passed through to it.
func (h HSM) HartStart(hart uint64, startAddr, opaque uint64) error {
	_, err := h.call(fnHartStart, [6]uint64{hart, startAddr, opaque})
	return err
}

// HartStop stops the calling hart. On success it never returns.
func (h HSM) HartStop() error {
	_, err := h.call(fnHartStop, [6]uint64{})
	return err
}

// HartGetStatus reports hart's lifecycle state.
func (h HSM) HartGetStatus(hart uint64) (Status, error) {
	v, err := h.call(fnHartGetStatus, [6]uint64{hart})
	if err != nil {
		return StatusUnknown, err
	}
	if v > uint64(StatusUnknown) {
		return StatusUnknown, nil
	}
	return Status(v), nil
}

// HartSuspend suspends the calling hart.
func (h HSM) HartSuspend(suspendType uint32, resumeAddr, opaque uint64) error {
	_, err := h.call(fnHartSuspend, [6]uint64{uint64(suspendType), resumeAddr, opaque})
	return err
}

// RFENCE wraps the Remote Fence extension used for cross-CPU TLB
// shootdown.
type RFENCE struct{ Caller Caller }

func (r RFENCE) call(fn uint64, args [6]uint64) error {
	code, _ := r.Caller.ECall(extRFENCE, fn, args)
	if e := errorFromCode(code); e != Success {
		return kerrors.Wrapf(e, "sbi RFENCE fn=%d", fn)
	}
	return nil
}

// hartMask packs a hart-index bitmask the way the SBI RFENCE calls
// expect (hart_mask, hart_mask_base).
func hartMask(harts []int) (mask, base uint64) {
	if len(harts) == 0 {
		return 0, ^uint64(0) // hart_mask_base = -1 means "all harts"
	}
	min := harts[0]
	for _, h := range harts {
		if h < min {
			min = h
		}
	}
	for _, h := range harts {
		mask |= 1 << uint(h-min)
	}
	return mask, uint64(min)
}

// RemoteFenceI issues a remote instruction-fence on harts.
func (r RFENCE) RemoteFenceI(harts []int) error {
	mask, base := hartMask(harts)
	return r.call(fnRemoteFenceI, [6]uint64{mask, base})
}

// RemoteSfenceVMA issues a remote sfence.vma covering
// [startAddr, startAddr+size) on harts.
func (r RFENCE) RemoteSfenceVMA(harts []int, startAddr, size uint64) error {
	mask, base := hartMask(harts)
	if err := r.call(fnRemoteSfenceVMA, [6]uint64{mask, base, startAddr, size}); err != nil {
		return kerrors.Wrap(err, "remote sfence.vma")
	}
	return nil
}

// RemoteSfenceVMAASID is RemoteSfenceVMA scoped to a single ASID.
func (r RFENCE) RemoteSfenceVMAASID(harts []int, startAddr, size uint64, asid uint16) error {
	mask, base := hartMask(harts)
	if err := r.call(fnRemoteSfenceVMAASID, [6]uint64{mask, base, startAddr, size, uint64(asid)}); err != nil {
		return kerrors.Wrap(err, "remote sfence.vma asid")
	}
	return nil
}
