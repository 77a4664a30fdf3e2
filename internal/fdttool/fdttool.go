// Package fdttool loads devicetree blobs from disk for the example
// tools and the boot dry-run: the blob is mapped read-only, matching
// how the kernel proper treats the firmware-provided blob as an
// immutable input buffer.
package fdttool

import (
	"os"

	"golang.org/x/sys/unix"

	"onix/internal/kerrors"
)

// Open maps the file at path read-only and returns its bytes plus a
// close function that unmaps them. The returned slice must not be
// written to or used after close.
func Open(path string) (data []byte, close func() error, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, kerrors.Wrapf(err, "open devicetree %s", path)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, nil, kerrors.Wrapf(err, "stat devicetree %s", path)
	}
	if st.Size() == 0 {
		return nil, nil, kerrors.Wrapf(kerrors.ErrInsufficientBytes, "devicetree %s is empty", path)
	}

	data, err = unix.Mmap(int(f.Fd()), 0, int(st.Size()), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, kerrors.Wrapf(err, "mmap devicetree %s", path)
	}
	return data, func() error { return unix.Munmap(data) }, nil
}
