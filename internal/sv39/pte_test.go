package sv39

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLeafPTERoundTrip(t *testing.T) {
	cases := []struct {
		ppn   PPN
		flags Flags
	}{
		{0, FlagR},
		{(1 << ppnBits) - 1, FlagR | FlagW | FlagX | FlagU},
		{0x1234_5678, FlagR | FlagW},
	}
	for _, c := range cases {
		p := MakeLeafPTE(c.ppn, c.flags)
		require.True(t, p.Valid())
		require.True(t, p.IsLeaf())
		require.Equal(t, c.ppn, p.PPN())
		require.Equal(t, c.flags|FlagV, p.Flags())
	}
}

func TestNonLeafPTEHasOnlyValid(t *testing.T) {
	p := MakeNonLeafPTE(42)
	require.True(t, p.Valid())
	require.False(t, p.IsLeaf())
	require.Equal(t, PPN(42), p.PPN())
	require.Equal(t, FlagV, p.Flags())
}

func TestInvalidPTEReportsNotValid(t *testing.T) {
	var p PTE
	require.False(t, p.Valid())
}
