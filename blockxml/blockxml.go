// Package blockxml reads and writes the XML tree form of a block workspace.
//
// A workspace serializes to a single <xml> root holding <variables> and
// top-level <block> elements. Nodes keep attribute order so that printing a
// parsed tree reproduces the same text.
package blockxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Namespace is the xmlns written on workspace roots.
const Namespace = "https://developers.google.com/blockly/xml"

// RootName is the element name of a workspace root.
const RootName = "xml"

// ErrNotWorkspace is returned by Parse when the root element is not <xml>.
var ErrNotWorkspace = errors.New("root element is not <xml>")

// Attr is a single name="value" pair.
type Attr struct {
	Name  string
	Value string
}

// Node is one element of a block tree. Text is only kept for leaf elements.
type Node struct {
	Name     string
	Attrs    []Attr
	Children []*Node
	Text     string
}

// NewNode creates an element with the given attributes as name/value pairs.
func NewNode(name string, kv ...string) *Node {
	n := &Node{Name: name}
	for i := 0; i+1 < len(kv); i += 2 {
		n.Attrs = append(n.Attrs, Attr{Name: kv[i], Value: kv[i+1]})
	}
	return n
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr replaces or appends the named attribute.
func (n *Node) SetAttr(name, value string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
}

// RemoveAttr deletes every attribute with the given name.
func (n *Node) RemoveAttr(name string) {
	kept := n.Attrs[:0]
	for _, a := range n.Attrs {
		if a.Name != name {
			kept = append(kept, a)
		}
	}
	n.Attrs = kept
}

// Append adds children and returns n for chaining.
func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Child returns the first child element with the given name whose "name"
// attribute equals key. An empty key matches any.
func (n *Node) Child(element, key string) *Node {
	for _, c := range n.Children {
		if c.Name != element {
			continue
		}
		if key == "" {
			return c
		}
		if v, _ := c.Attr("name"); v == key {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns all direct children with the given element name.
func (n *Node) ChildrenNamed(element string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Name == element {
			out = append(out, c)
		}
	}
	return out
}

// Clone returns a deep copy.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Name: n.Name, Text: n.Text}
	if len(n.Attrs) > 0 {
		c.Attrs = append([]Attr(nil), n.Attrs...)
	}
	for _, child := range n.Children {
		c.Children = append(c.Children, child.Clone())
	}
	return c
}

// Walk visits n and its descendants depth first. Returning false from fn
// skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Equal reports structural equality: names, attributes in order, leaf text
// and children.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Name != b.Name || a.Text != b.Text || len(a.Attrs) != len(b.Attrs) || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Attrs {
		if a.Attrs[i] != b.Attrs[i] {
			return false
		}
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// StripIDs returns a copy of n with every attribute named "id" removed.
func StripIDs(n *Node) *Node {
	c := n.Clone()
	c.Walk(func(x *Node) bool {
		x.RemoveAttr("id")
		return true
	})
	return c
}

// Parse reads a workspace tree from text. The root element must be <xml>.
func Parse(text string) (*Node, error) {
	root, err := ParseElement(text)
	if err != nil {
		return nil, err
	}
	if root.Name != RootName {
		return nil, fmt.Errorf("%w: found <%s>", ErrNotWorkspace, root.Name)
	}
	return root, nil
}

// ParseElement reads a single element tree of any name.
func ParseElement(text string) (*Node, error) {
	dec := xml.NewDecoder(strings.NewReader(text))
	dec.Strict = true

	var (
		stack []*Node
		texts []*strings.Builder
		root  *Node
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse tree: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, errors.New("parse tree: multiple root elements")
			}
			n := &Node{Name: t.Name.Local}
			if t.Name.Space != "" && !hasXMLNS(t.Attr) && len(stack) == 0 {
				n.Attrs = append(n.Attrs, Attr{Name: "xmlns", Value: t.Name.Space})
			}
			for _, a := range t.Attr {
				n.Attrs = append(n.Attrs, Attr{Name: attrName(a.Name), Value: a.Value})
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			} else {
				root = n
			}
			stack = append(stack, n)
			texts = append(texts, &strings.Builder{})
		case xml.EndElement:
			n := stack[len(stack)-1]
			if len(n.Children) == 0 {
				n.Text = texts[len(texts)-1].String()
			}
			stack = stack[:len(stack)-1]
			texts = texts[:len(texts)-1]
		case xml.CharData:
			if len(texts) > 0 {
				texts[len(texts)-1].Write(t)
			} else if len(bytes.TrimSpace(t)) > 0 {
				return nil, errors.New("parse tree: text outside root element")
			}
		}
	}
	if root == nil {
		return nil, errors.New("parse tree: no root element")
	}
	return root, nil
}

func hasXMLNS(attrs []xml.Attr) bool {
	for _, a := range attrs {
		if a.Name.Space == "" && a.Name.Local == "xmlns" {
			return true
		}
	}
	return false
}

func attrName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
