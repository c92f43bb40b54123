package blockxml

import (
	"encoding/xml"
	"strings"
)

const indentUnit = "  "

// PrettyText renders n with one element per line and two-space indentation.
// Leaf elements keep their text inline.
func PrettyText(n *Node) string {
	var b strings.Builder
	writeNode(&b, n, 0, true)
	return strings.TrimSuffix(b.String(), "\n")
}

// Text renders n on a single line without indentation.
func Text(n *Node) string {
	var b strings.Builder
	writeNode(&b, n, 0, false)
	return b.String()
}

func writeNode(b *strings.Builder, n *Node, depth int, pretty bool) {
	if pretty {
		b.WriteString(strings.Repeat(indentUnit, depth))
	}
	b.WriteByte('<')
	b.WriteString(n.Name)
	for _, a := range n.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		escape(b, a.Value)
		b.WriteByte('"')
	}
	b.WriteByte('>')

	if len(n.Children) == 0 {
		escape(b, n.Text)
	} else {
		if pretty {
			b.WriteByte('\n')
		}
		for _, c := range n.Children {
			writeNode(b, c, depth+1, pretty)
		}
		if pretty {
			b.WriteString(strings.Repeat(indentUnit, depth))
		}
	}

	b.WriteString("</")
	b.WriteString(n.Name)
	b.WriteByte('>')
	if pretty {
		b.WriteByte('\n')
	}
}

func escape(b *strings.Builder, s string) {
	// EscapeText only fails on writer errors; strings.Builder never returns one.
	_ = xml.EscapeText(b, []byte(s))
}
