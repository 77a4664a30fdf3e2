package sv39

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPhysAddrRoundTrip(t *testing.T) {
	cases := []struct {
		ppn PPN
		off uint64
	}{
		{0, 0},
		{1, 4095},
		{(1 << ppnBits) - 1, 0},
		{12345, 17},
	}
	for _, c := range cases {
		a := PhysAddrFromParts(c.ppn, c.off)
		require.Equal(t, c.ppn, a.PageNum())
		require.Equal(t, c.off, a.Offset())
	}
}

func TestPhysAddrFromPartsRejectsOutOfRange(t *testing.T) {
	require.Panics(t, func() { PhysAddrFromParts(0, PageSize) })
	require.Panics(t, func() { PhysAddrFromParts(1<<ppnBits, 0) })
}

func TestVirtAddrSignExtension(t *testing.T) {
	// Bit 38 clear: top bits must be zero.
	v := FromAddr(0x0000_0000_1234_5000)
	require.Equal(t, uint64(0x0000_0000_1234_5000), v.Value())

	// Bit 38 set: top bits must be all ones (sign-extended).
	signed := uint64(1)<<38 | 0x1000
	extended := signed | ^(uint64(1)<<VirtAddrBits - 1)
	v = FromAddr(extended)
	require.Equal(t, extended, v.Value())
}

func TestFromAddrPanicsOnBadSignExtension(t *testing.T) {
	require.Panics(t, func() {
		// Bit 38 set but bits 63..39 not all ones.
		FromAddr(uint64(1) << 38)
	})
}

func TestVPNIndexExtractsThreeNineBitLevels(t *testing.T) {
	const l2, l1, l0 = 0b101000000, 0b010011000, 0b000000111
	vpn := VPN(l2<<18 | l1<<9 | l0)
	require.Equal(t, uint64(l0), vpn.Index(0))
	require.Equal(t, uint64(l1), vpn.Index(1))
	require.Equal(t, uint64(l2), vpn.Index(2))
}
