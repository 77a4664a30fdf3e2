package fdt

import "weak"

// Node is one node of the owned devicetree hierarchy: strong,
// owning edges to children and a weak back-edge to its parent, so the
// tree's natural parent/child cycle never keeps a detached subtree
// alive. Go's own GC already traces through cycles safely, but the
// standard library's weak.Pointer keeps the actual reference graph
// acyclic instead of leaning on the collector to paper over a retain
// cycle.
type Node struct {
	Name       string
	Address    string
	Properties []Property
	Children   []*Node
	parent     weak.Pointer[Node]
}

// Parent returns n's parent, or nil for the root.
func (n *Node) Parent() *Node {
	return n.parent.Value()
}

// FullName returns "name@address" if n has a unit address, else just
// name.
func (n *Node) FullName() string {
	if n.Address == "" {
		return n.Name
	}
	return n.Name + "@" + n.Address
}

// Property returns the value of the named property, if present.
func (n *Node) Property(name string) (Property, bool) {
	for _, p := range n.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// Child returns the direct child whose full name equals fullName.
func (n *Node) Child(fullName string) (*Node, bool) {
	for _, c := range n.Children {
		if c.FullName() == fullName {
			return c, true
		}
	}
	return nil, false
}

// Tree is the parsed owned devicetree: its root plus a phandle map
// collected in the same pass.
type Tree struct {
	Root     *Node
	Phandles map[uint32]*Node
}

// ParseTree parses buf's flat structure into an owned Tree.
func ParseTree(buf []byte) (*Tree, error) {
	ft, err := Parse(buf)
	if err != nil {
		return nil, err
	}
	root, err := NewRootCursor(ft)
	if err != nil {
		return nil, err
	}
	phandles := make(map[uint32]*Node)
	rootNode, err := buildNode(root, nil, phandles)
	if err != nil {
		return nil, err
	}
	return &Tree{Root: rootNode, Phandles: phandles}, nil
}

// buildNode clones c's properties into owned byte slices, records a
// phandle map entry if c carries one, and recurses into c's children
// in document order — a post-order-complete pass by the time the
// caller has every child, which is what lets phandles collected deeper
// in the tree be visible through the same map as shallower ones.
func buildNode(c Cursor, parent *Node, phandles map[uint32]*Node) (*Node, error) {
	props, err := c.Properties()
	if err != nil {
		return nil, err
	}
	owned := make([]Property, len(props))
	for i, p := range props {
		owned[i] = Property{Name: p.Name, Value: append([]byte(nil), p.Value...)}
	}

	n := &Node{Name: c.Name(), Address: c.Address(), Properties: owned}
	if parent != nil {
		n.parent = weak.Make(parent)
	}
	if ph, ok := n.Property("phandle"); ok {
		if v, err := ph.Uint32(); err == nil {
			phandles[v] = n
		}
	}

	kids, err := c.Children()
	if err != nil {
		return nil, err
	}
	n.Children = make([]*Node, 0, len(kids))
	for _, kc := range kids {
		child, err := buildNode(kc, n, phandles)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}
