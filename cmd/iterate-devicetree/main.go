// iterate-devicetree walks every node of a .dtb file and prints the
// tree with its properties, exercising the parser's owned-tree API
// the same way the kernel's boot path does.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"onix/internal/fdt"
	"onix/internal/fdttool"
)

func main() {
	root := &cobra.Command{
		Use:   "iterate-devicetree <file.dtb>",
		Short: "print every node and property of a flattened devicetree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, done, err := fdttool.Open(args[0])
			if err != nil {
				return err
			}
			defer done()

			tree, err := fdt.ParseTree(blob)
			if err != nil {
				return err
			}
			printNode(cmd.OutOrStdout(), tree.Root, 0)
			return nil
		},
		SilenceUsage: true,
	}
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func printNode(w io.Writer, n *fdt.Node, depth int) {
	indent := strings.Repeat("    ", depth)
	name := n.FullName()
	if name == "" {
		name = "/"
	}
	fmt.Fprintf(w, "%s%s {\n", indent, name)
	for _, p := range n.Properties {
		fmt.Fprintf(w, "%s    %s%s;\n", indent, p.Name, formatValue(p))
	}
	for _, c := range n.Children {
		printNode(w, c, depth+1)
	}
	fmt.Fprintf(w, "%s};\n", indent)
}

// formatValue renders a property value the way dtc does: strings when
// the bytes look like a NUL-terminated string list, cell lists
// otherwise, nothing for empty (boolean) properties.
func formatValue(p fdt.Property) string {
	if len(p.Value) == 0 {
		return ""
	}
	if ss, err := p.Strings(); err == nil && allPrintable(ss) {
		quoted := make([]string, len(ss))
		for i, s := range ss {
			quoted[i] = fmt.Sprintf("%q", s)
		}
		return " = " + strings.Join(quoted, ", ")
	}
	if len(p.Value)%4 == 0 {
		var cells []string
		for off := 0; off < len(p.Value); off += 4 {
			v := uint32(p.Value[off])<<24 | uint32(p.Value[off+1])<<16 | uint32(p.Value[off+2])<<8 | uint32(p.Value[off+3])
			cells = append(cells, fmt.Sprintf("%#x", v))
		}
		return " = <" + strings.Join(cells, " ") + ">"
	}
	var bytes []string
	for _, b := range p.Value {
		bytes = append(bytes, fmt.Sprintf("%02x", b))
	}
	return " = [" + strings.Join(bytes, " ") + "]"
}

func allPrintable(ss []string) bool {
	for _, s := range ss {
		if s == "" {
			return false
		}
		for _, r := range s {
			if r > unicode.MaxASCII || !unicode.IsPrint(r) {
				return false
			}
		}
	}
	return true
}
