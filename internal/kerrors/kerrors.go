// Package kerrors defines the kernel's error taxonomy: typed
// sentinel values for the recoverable failure modes of the allocator,
// page-table engine, devicetree parser, and scheduler, plus the
// invariant-violation/fatal-halt primitives used at call sites that
// cannot degrade.
package kerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors for the kernel's recoverable failure modes.
// Call sites wrap these with errors.Wrap/Wrapf so Error() yields the
// one-line kind plus the formatted cause chain the kernel log expects.
var (
	ErrOutOfMemory       = errors.New("out of memory")
	ErrAlreadyMapped     = errors.New("page table entry already mapped")
	ErrInvalidMapFlags   = errors.New("invalid mapping flags")
	ErrAllocPageTable    = errors.New("failed to allocate page table page")
	ErrRemoteSfenceVMA   = errors.New("remote sfence.vma failed")
	ErrInsufficientBytes = errors.New("devicetree blob shorter than totalsize")
	ErrMalformedFDT      = errors.New("malformed flattened devicetree")
	ErrPropertyShape     = errors.New("devicetree property has unexpected shape")
	ErrNoFreeStackSlot   = errors.New("no free kernel stack slot")
	ErrUnexpectedTrap    = errors.New("unexpected trap")
)

// Halt is installed by the boot path; it stops the calling hart. Tests
// override it to observe fatal calls instead of looping forever.
var Halt = func() { select {} }

// Fatal logs err (via the supplied logf, typically klog) and halts the
// calling hart. It never returns.
func Fatal(logf func(format string, args ...any), err error) {
	if logf != nil {
		logf("fatal: %+v", err)
	}
	Halt()
}

// Assert is the invariant-violation primitive:
// alignment of a PTE pointer, the task lock held at a context switch,
// interrupts disabled where required, and similar preconditions that
// must never be false. A failed assertion is always fatal.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("assertion failed: "+format, args...))
	}
}

// Wrap attaches a one-line context message to err, preserving the
// cause chain the kernel log prints. It is a thin alias over
// errors.Wrap kept here so
// call sites depend only on kerrors, not directly on pkg/errors.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, message)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}
