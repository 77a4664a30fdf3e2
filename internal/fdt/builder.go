package fdt

import (
	"bytes"
	"encoding/binary"
)

// Builder assembles an in-memory flattened devicetree blob; tests use
// it to construct synthetic inputs instead of shipping .dtb fixtures.
type Builder struct {
	reservations []MemReservation
	strings      []string
	stringOffset map[string]uint32
	structure    bytes.Buffer
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{stringOffset: make(map[string]uint32)}
}

// AddReservation appends one entry to the memory reservation block.
func (b *Builder) AddReservation(addr, size uint64) *Builder {
	b.reservations = append(b.reservations, MemReservation{Address: addr, Size: size})
	return b
}

func (b *Builder) writeToken(tok uint32) {
	var raw [4]byte
	binary.BigEndian.PutUint32(raw[:], tok)
	b.structure.Write(raw[:])
}

func (b *Builder) writePadded(data []byte) {
	b.structure.Write(data)
	for b.structure.Len()%4 != 0 {
		b.structure.WriteByte(0)
	}
}

// BeginNode opens a node named name (optionally "name@address").
// Callers must balance every BeginNode with an EndNode.
func (b *Builder) BeginNode(name string) *Builder {
	b.writeToken(TokenBeginNode)
	b.writePadded(append([]byte(name), 0))
	return b
}

// EndNode closes the most recently opened node.
func (b *Builder) EndNode() *Builder {
	b.writeToken(TokenEndNode)
	return b
}

func (b *Builder) internString(s string) uint32 {
	if off, ok := b.stringOffset[s]; ok {
		return off
	}
	var off uint32
	for _, existing := range b.strings {
		off += uint32(len(existing) + 1)
	}
	b.stringOffset[s] = off
	b.strings = append(b.strings, s)
	return off
}

// Prop adds a raw-valued property to the currently open node.
func (b *Builder) Prop(name string, value []byte) *Builder {
	nameOff := b.internString(name)
	b.writeToken(TokenProp)
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(len(value)))
	binary.BigEndian.PutUint32(hdr[4:8], nameOff)
	b.structure.Write(hdr[:])
	b.writePadded(value)
	return b
}

// PropU32 adds a single big-endian u32 property.
func (b *Builder) PropU32(name string, v uint32) *Builder {
	var raw [4]byte
	binary.BigEndian.PutUint32(raw[:], v)
	return b.Prop(name, raw[:])
}

// PropString adds a single NUL-terminated string property.
func (b *Builder) PropString(name, v string) *Builder {
	return b.Prop(name, append([]byte(v), 0))
}

// PropReg adds a reg-shaped property from a flat list of big-endian
// cells (already sized per the caller's address/size-cells choice).
func (b *Builder) PropReg(name string, cells ...uint32) *Builder {
	raw := make([]byte, 4*len(cells))
	for i, c := range cells {
		binary.BigEndian.PutUint32(raw[i*4:], c)
	}
	return b.Prop(name, raw)
}

// Build assembles the complete blob: header, memory reservation block,
// structure block, strings block, in that layout order.
func (b *Builder) Build() []byte {
	b.writeToken(TokenEnd)

	var stringsBlock []byte
	for _, s := range b.strings {
		stringsBlock = append(stringsBlock, append([]byte(s), 0)...)
	}

	rsvmap := make([]byte, 0, 16*(len(b.reservations)+1))
	for _, r := range b.reservations {
		var entry [16]byte
		binary.BigEndian.PutUint64(entry[0:8], r.Address)
		binary.BigEndian.PutUint64(entry[8:16], r.Size)
		rsvmap = append(rsvmap, entry[:]...)
	}
	rsvmap = append(rsvmap, make([]byte, 16)...) // all-zero terminator

	offMemRsvmap := uint32(headerSize)
	offDtStruct := offMemRsvmap + uint32(len(rsvmap))
	sizeDtStruct := uint32(b.structure.Len())
	offDtStrings := offDtStruct + sizeDtStruct
	sizeDtStrings := uint32(len(stringsBlock))
	totalSize := offDtStrings + sizeDtStrings

	out := make([]byte, totalSize)
	binary.BigEndian.PutUint32(out[0:4], Magic)
	binary.BigEndian.PutUint32(out[4:8], totalSize)
	binary.BigEndian.PutUint32(out[8:12], offDtStruct)
	binary.BigEndian.PutUint32(out[12:16], offDtStrings)
	binary.BigEndian.PutUint32(out[16:20], offMemRsvmap)
	binary.BigEndian.PutUint32(out[20:24], supportedVersion)
	binary.BigEndian.PutUint32(out[24:28], minLastCompVersion)
	binary.BigEndian.PutUint32(out[28:32], 0) // boot_cpuid_phys
	binary.BigEndian.PutUint32(out[32:36], sizeDtStrings)
	binary.BigEndian.PutUint32(out[36:40], sizeDtStruct)

	copy(out[offMemRsvmap:], rsvmap)
	copy(out[offDtStruct:], b.structure.Bytes())
	copy(out[offDtStrings:], stringsBlock)

	return out
}
