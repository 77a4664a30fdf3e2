package fdt

import (
	"strings"

	"onix/internal/kerrors"
)

// Cursor is a zero-copy view of one node in the flat structure block:
// its name, unit address, and the byte ranges of its properties and
// children, without materializing an owned Node. It is
// built by consuming one BEGIN_NODE token and, at construction time,
// partitioning the remainder into a properties region and a children
// region.
type Cursor struct {
	ft          *FlatTree
	name        string
	address     string
	propsPos    int // position just after BEGIN_NODE's name
	childrenPos int // position of the first child token (or this node's END_NODE)
	bodyEnd     int // position just after this node's matching END_NODE
}

// NewRootCursor consumes the blob's root BEGIN_NODE token and returns
// a cursor over it.
func NewRootCursor(ft *FlatTree) (Cursor, error) {
	return newCursorAt(ft, 0, true)
}

func newCursorAt(ft *FlatTree, pos int, isRoot bool) (Cursor, error) {
	lx := ft.lexerAt(pos)
	tok, err := lx.Next()
	if err != nil {
		return Cursor{}, err
	}
	if tok.Kind != KindBeginNode {
		return Cursor{}, kerrors.Wrap(kerrors.ErrMalformedFDT, "expected BEGIN_NODE")
	}
	name, address := splitUnitAddress(tok.FullName)
	if err := validateNodeName(name, isRoot); err != nil {
		return Cursor{}, err
	}

	childrenPos, bodyEnd, err := partitionBody(ft, lx.pos)
	if err != nil {
		return Cursor{}, err
	}
	return Cursor{
		ft:          ft,
		name:        name,
		address:     address,
		propsPos:    lx.pos,
		childrenPos: childrenPos,
		bodyEnd:     bodyEnd,
	}, nil
}

func splitUnitAddress(fullName string) (name, address string) {
	if i := strings.IndexByte(fullName, '@'); i >= 0 {
		return fullName[:i], fullName[i+1:]
	}
	return fullName, ""
}

// partitionBody scans forward from propsPos (just after a node's name)
// to find where its properties end (childrenPos) and, continuing from
// there, where its own matching END_NODE lies (bodyEnd) — skipping
// over entire grandchildren subtrees by tracking nesting depth rather
// than recursively parsing them.
func partitionBody(ft *FlatTree, propsPos int) (childrenPos, bodyEnd int, err error) {
	lx := ft.lexerAt(propsPos)
	for {
		start := lx.pos
		tok, err := lx.Next()
		if err != nil {
			return 0, 0, err
		}
		if tok.Kind == KindProp || tok.Kind == KindNop {
			continue
		}
		childrenPos = start
		break
	}

	lx2 := ft.lexerAt(childrenPos)
	depth := 1
	for depth > 0 {
		tok, err := lx2.Next()
		if err != nil {
			return 0, 0, err
		}
		switch tok.Kind {
		case KindBeginNode:
			depth++
		case KindEndNode:
			depth--
		case KindEnd:
			return 0, 0, kerrors.Wrap(kerrors.ErrMalformedFDT, "unexpected END token inside subtree")
		}
	}
	return childrenPos, lx2.pos, nil
}

// Name returns the node's name, without its unit address.
func (c Cursor) Name() string { return c.name }

// Address returns the text after '@' in the node's full name, or ""
// if it has none.
func (c Cursor) Address() string { return c.address }

// Properties returns this node's own properties, in document order.
func (c Cursor) Properties() ([]Property, error) {
	lx := c.ft.lexerAt(c.propsPos)
	var props []Property
	for lx.pos < c.childrenPos {
		tok, err := lx.Next()
		if err != nil {
			return nil, err
		}
		if tok.Kind == KindProp {
			props = append(props, Property{Name: tok.PropName, Value: tok.Value})
		}
	}
	return props, nil
}

// Property returns the value of the named property, if present.
func (c Cursor) Property(name string) (Property, bool, error) {
	props, err := c.Properties()
	if err != nil {
		return Property{}, false, err
	}
	for _, p := range props {
		if p.Name == name {
			return p, true, nil
		}
	}
	return Property{}, false, nil
}

// FirstChild returns this node's first child cursor, if any.
func (c Cursor) FirstChild() (Cursor, bool, error) {
	lx := c.ft.lexerAt(c.childrenPos)
	for {
		start := lx.pos
		tok, err := lx.Next()
		if err != nil {
			return Cursor{}, false, err
		}
		switch tok.Kind {
		case KindNop:
			continue
		case KindEndNode:
			return Cursor{}, false, nil
		case KindBeginNode:
			child, err := newCursorAt(c.ft, start, false)
			return child, err == nil, err
		default:
			return Cursor{}, false, kerrors.Wrap(kerrors.ErrMalformedFDT, "expected BEGIN_NODE or END_NODE among children")
		}
	}
}

// NextSibling returns the cursor immediately following c in document
// order among their shared parent's children, if any. It starts
// reading at c's own bodyEnd, found when c was constructed, so c's
// subtree is not walked again; it skips NOP tokens there, and building
// the sibling's cursor scans that sibling's own body.
func (c Cursor) NextSibling() (Cursor, bool, error) {
	lx := c.ft.lexerAt(c.bodyEnd)
	for {
		start := lx.pos
		tok, err := lx.Next()
		if err != nil {
			return Cursor{}, false, err
		}
		switch tok.Kind {
		case KindNop:
			continue
		case KindEndNode:
			return Cursor{}, false, nil
		case KindBeginNode:
			sib, err := newCursorAt(c.ft, start, false)
			return sib, err == nil, err
		default:
			return Cursor{}, false, kerrors.Wrap(kerrors.ErrMalformedFDT, "expected BEGIN_NODE or END_NODE among siblings")
		}
	}
}

// Children returns all direct children, in document order.
func (c Cursor) Children() ([]Cursor, error) {
	var kids []Cursor
	cur, ok, err := c.FirstChild()
	if err != nil {
		return nil, err
	}
	for ok {
		kids = append(kids, cur)
		cur, ok, err = cur.NextSibling()
		if err != nil {
			return nil, err
		}
	}
	return kids, nil
}
