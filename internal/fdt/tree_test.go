package fdt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFDTRoundTrip: the owned tree built from the builder's blob has
// the expected node names, unit address, reg bytes (big-endian) and
// parent back-edges. It does not compare against the flat cursor.
func TestFDTRoundTrip(t *testing.T) {
	blob := simpleBlob()

	tree, err := ParseTree(blob)
	require.NoError(t, err)

	require.Equal(t, "", tree.Root.Name)
	cpus, ok := tree.Root.Child("cpus")
	require.True(t, ok)

	cpu0, ok := cpus.Child("cpu@0")
	require.True(t, ok)
	require.Equal(t, "cpu", cpu0.Name)
	require.Equal(t, "0", cpu0.Address)

	reg, ok := cpu0.Property("reg")
	require.True(t, ok)
	require.Equal(t, []byte{0, 0, 0, 0}, reg.Value)

	require.Same(t, tree.Root, cpus.Parent())
	require.Same(t, cpus, cpu0.Parent())
	require.Nil(t, tree.Root.Parent())
}

func TestPhandleMapCollectedDuringParse(t *testing.T) {
	blob := NewBuilder().
		BeginNode("").
		BeginNode("plic").
		PropU32("phandle", 1).
		EndNode().
		BeginNode("cpu@0").
		PropU32("interrupt-parent", 1).
		EndNode().
		EndNode().
		Build()

	tree, err := ParseTree(blob)
	require.NoError(t, err)

	plic, ok := tree.Phandles[1]
	require.True(t, ok)
	require.Equal(t, "plic", plic.Name)
}
