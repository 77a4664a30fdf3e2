// search-devicetree finds nodes in a .dtb file by name, compatible
// string, or phandle and prints their paths and properties.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"onix/internal/fdt"
	"onix/internal/fdttool"
)

func main() {
	var (
		byName       string
		byCompatible string
		byPhandle    uint32
	)

	root := &cobra.Command{
		Use:   "search-devicetree <file.dtb>",
		Short: "find devicetree nodes by name, compatible string, or phandle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if byName == "" && byCompatible == "" && byPhandle == 0 {
				return fmt.Errorf("one of --name, --compatible, or --phandle is required")
			}

			blob, done, err := fdttool.Open(args[0])
			if err != nil {
				return err
			}
			defer done()

			tree, err := fdt.ParseTree(blob)
			if err != nil {
				return err
			}

			if byPhandle != 0 {
				n, ok := tree.Phandles[byPhandle]
				if !ok {
					return fmt.Errorf("no node with phandle %d", byPhandle)
				}
				printMatch(cmd, n)
				return nil
			}

			found := 0
			walk(tree.Root, func(n *fdt.Node) {
				if byName != "" && n.Name != byName {
					return
				}
				if byCompatible != "" && !hasCompatible(n, byCompatible) {
					return
				}
				printMatch(cmd, n)
				found++
			})
			if found == 0 {
				return fmt.Errorf("no matching nodes")
			}
			return nil
		},
		SilenceUsage: true,
	}

	root.Flags().StringVar(&byName, "name", "", "match nodes with this name (unit address ignored)")
	root.Flags().StringVar(&byCompatible, "compatible", "", "match nodes whose compatible list contains this string")
	root.Flags().Uint32Var(&byPhandle, "phandle", 0, "look up the node with this phandle")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func walk(n *fdt.Node, visit func(*fdt.Node)) {
	visit(n)
	for _, c := range n.Children {
		walk(c, visit)
	}
}

func hasCompatible(n *fdt.Node, want string) bool {
	p, ok := n.Property("compatible")
	if !ok {
		return false
	}
	ss, err := p.Strings()
	if err != nil {
		return false
	}
	for _, s := range ss {
		if s == want {
			return true
		}
	}
	return false
}

// path assembles the node's absolute path by following parent
// back-edges.
func path(n *fdt.Node) string {
	var parts []string
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.FullName() != "" {
			parts = append([]string{cur.FullName()}, parts...)
		}
	}
	return "/" + strings.Join(parts, "/")
}

func printMatch(cmd *cobra.Command, n *fdt.Node) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", path(n))
	for _, p := range n.Properties {
		fmt.Fprintf(cmd.OutOrStdout(), "    %s (%d bytes)\n", p.Name, len(p.Value))
	}
}
