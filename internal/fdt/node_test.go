package fdt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCursorNameAndAddress(t *testing.T) {
	ft, err := Parse(simpleBlob())
	require.NoError(t, err)

	root, err := NewRootCursor(ft)
	require.NoError(t, err)
	require.Equal(t, "", root.Name())

	cpus, ok, err := root.FirstChild()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "cpus", cpus.Name())
	require.Equal(t, "", cpus.Address())

	cpu0, ok, err := cpus.FirstChild()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "cpu", cpu0.Name())
	require.Equal(t, "0", cpu0.Address())

	_, ok, err = cpu0.NextSibling()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCursorPropertiesInDocumentOrder(t *testing.T) {
	ft, err := Parse(simpleBlob())
	require.NoError(t, err)
	root, err := NewRootCursor(ft)
	require.NoError(t, err)
	cpus, _, err := root.FirstChild()
	require.NoError(t, err)

	props, err := cpus.Properties()
	require.NoError(t, err)
	require.Len(t, props, 2)
	require.Equal(t, "#address-cells", props[0].Name)
	require.Equal(t, "#size-cells", props[1].Name)
}

func TestCursorChildrenSkipsGrandchildSubtrees(t *testing.T) {
	blob := NewBuilder().
		BeginNode("").
		BeginNode("a").
		BeginNode("deep").
		PropString("ignored", "x").
		BeginNode("deeper").EndNode().
		EndNode(). // deep
		EndNode(). // a
		BeginNode("b").EndNode().
		EndNode(). // root
		Build()

	ft, err := Parse(blob)
	require.NoError(t, err)
	root, err := NewRootCursor(ft)
	require.NoError(t, err)

	kids, err := root.Children()
	require.NoError(t, err)
	require.Len(t, kids, 2)
	require.Equal(t, "a", kids[0].Name())
	require.Equal(t, "b", kids[1].Name())
}

func TestNodeNameValidation(t *testing.T) {
	bad := NewBuilder().
		BeginNode("").
		BeginNode("has/slash").
		EndNode().
		EndNode().
		Build()
	ft, err := Parse(bad)
	require.NoError(t, err)
	root, err := NewRootCursor(ft)
	require.NoError(t, err)
	_, _, err = root.FirstChild()
	require.Error(t, err)
}
