package fdt

import (
	"encoding/binary"
	"strings"

	"onix/internal/kerrors"
)

// Property is a devicetree property: its name (resolved from the
// strings block) and raw big-endian-encoded value bytes.
type Property struct {
	Name  string
	Value []byte
}

// Uint32 parses a single big-endian u32 value: #address-cells,
// #size-cells, #interrupt-cells, virtual-reg, phandle,
// interrupt-parent.
func (p Property) Uint32() (uint32, error) {
	if len(p.Value) != 4 {
		return 0, kerrors.Wrapf(kerrors.ErrPropertyShape, "property %q: want 4 bytes, got %d", p.Name, len(p.Value))
	}
	return binary.BigEndian.Uint32(p.Value), nil
}

// Strings parses a NUL-separated string-list value: compatible.
func (p Property) Strings() ([]string, error) {
	if len(p.Value) == 0 || p.Value[len(p.Value)-1] != 0 {
		return nil, kerrors.Wrapf(kerrors.ErrPropertyShape, "property %q: not a NUL-terminated string list", p.Name)
	}
	return strings.Split(string(p.Value[:len(p.Value)-1]), "\x00"), nil
}

// Text parses a single NUL-terminated string value: model, status,
// name, device_type.
func (p Property) Text() (string, error) {
	ss, err := p.Strings()
	if err != nil {
		return "", err
	}
	if len(ss) != 1 {
		return "", kerrors.Wrapf(kerrors.ErrPropertyShape, "property %q: want exactly one string, got %d", p.Name, len(ss))
	}
	return ss[0], nil
}

// RegEntry is one {address, size} pair decoded from a reg/ranges-style
// property.
type RegEntry struct {
	Address uint64
	Size    uint64
}

// ParseReg decodes a reg-shaped property: addressCells
// in {1,2}, sizeCells in {0,1,2}, len(value) a multiple of
// (addressCells+sizeCells)*4. Its only caller in this repository
// (bootcfg) decodes reg; interrupts, interrupts-extended and the
// other array-valued properties are not decoded through it.
func ParseReg(value []byte, addressCells, sizeCells uint32) ([]RegEntry, error) {
	if addressCells != 1 && addressCells != 2 {
		return nil, kerrors.Wrapf(kerrors.ErrPropertyShape, "reg: #address-cells %d must be 1 or 2", addressCells)
	}
	if sizeCells > 2 {
		return nil, kerrors.Wrapf(kerrors.ErrPropertyShape, "reg: #size-cells %d must be 0, 1, or 2", sizeCells)
	}
	entryLen := int(addressCells+sizeCells) * 4
	if entryLen == 0 || len(value)%entryLen != 0 {
		return nil, kerrors.Wrapf(kerrors.ErrPropertyShape, "reg: value length %d is not a multiple of %d", len(value), entryLen)
	}

	addrLen := int(addressCells) * 4
	var out []RegEntry
	for off := 0; off < len(value); off += entryLen {
		entry := RegEntry{Address: readCells(value[off : off+addrLen])}
		if sizeCells > 0 {
			entry.Size = readCells(value[off+addrLen : off+entryLen])
		}
		out = append(out, entry)
	}
	return out, nil
}

func readCells(b []byte) uint64 {
	var v uint64
	for _, by := range b {
		v = v<<8 | uint64(by)
	}
	return v
}
