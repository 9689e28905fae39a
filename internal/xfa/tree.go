package xfa

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// Attr is an attribute as written in the source, with its prefix kept in Name
// (e.g. "xfa:dataNode", "xmlns:xfa").
type Attr struct {
	Name  string
	Value string
}

// Local returns the attribute name without its prefix
func (a Attr) Local() string {
	if i := strings.IndexByte(a.Name, ':'); i >= 0 {
		return a.Name[i+1:]
	}
	return a.Name
}

// IsNamespaceDecl reports whether the attribute declares a namespace
func (a Attr) IsNamespaceDecl() bool {
	return a.Name == "xmlns" || strings.HasPrefix(a.Name, "xmlns:")
}

// Node is one element of a parsed XFA document. Character data directly inside
// the element is concatenated and trimmed into Text.
type Node struct {
	Prefix    string
	Local     string
	Namespace string
	Attrs     []Attr
	Text      string
	Children  []*Node
	Parent    *Node
}

// QName returns the element name as written in the source
func (n *Node) QName() string {
	if n.Prefix == "" {
		return n.Local
	}
	return n.Prefix + ":" + n.Local
}

// IsLeaf reports whether the element has no element children
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Document is the parsed form of a Blob. The XML streams of a form are
// fragments of one logical document, so the concatenation may have more than
// one top-level element; all of them are kept in order.
type Document struct {
	Roots []*Node
}

// Walk visits every element in document order until fn returns false
func (d *Document) Walk(fn func(*Node) bool) {
	var visit func(*Node) bool
	visit = func(n *Node) bool {
		if !fn(n) {
			return false
		}
		for _, c := range n.Children {
			if !visit(c) {
				return false
			}
		}
		return true
	}
	for _, r := range d.Roots {
		if !visit(r) {
			return
		}
	}
}

// Parse builds a Document from XML bytes. It fails on any syntax error,
// mismatched tags, unclosed elements, or input without a single element.
func Parse(data []byte) (*Document, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = charsetReader

	doc := &Document{}
	var stack []*node
	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xml syntax: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			var parent *node
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}
			n := newNode(t, parent)
			if parent == nil {
				doc.Roots = append(doc.Roots, n.Node)
			} else {
				parent.Children = append(parent.Children, n.Node)
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unexpected end element </%s>", rawName(t.Name))
			}
			top := stack[len(stack)-1]
			if rawName(t.Name) != top.QName() {
				return nil, fmt.Errorf("element <%s> closed by </%s>", top.QName(), rawName(t.Name))
			}
			top.Text = strings.TrimSpace(top.text.String())
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			} else if len(bytes.TrimSpace(t)) > 0 {
				return nil, fmt.Errorf("character data outside of any element")
			}
		}
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("unclosed element <%s>", stack[len(stack)-1].QName())
	}
	if len(doc.Roots) == 0 {
		return nil, fmt.Errorf("no elements found")
	}
	return doc, nil
}

// node carries parse-time state alongside the public Node
type node struct {
	*Node
	text   strings.Builder
	scopes map[string]string
	parent *node
}

func newNode(t xml.StartElement, parent *node) *node {
	n := &node{
		Node:   &Node{Prefix: t.Name.Space, Local: t.Name.Local},
		parent: parent,
	}
	if parent != nil {
		n.Node.Parent = parent.Node
	}
	for _, a := range t.Attr {
		attr := Attr{Name: rawName(a.Name), Value: a.Value}
		n.Attrs = append(n.Attrs, attr)
		if attr.IsNamespaceDecl() {
			if n.scopes == nil {
				n.scopes = make(map[string]string)
			}
			n.scopes[strings.TrimPrefix(strings.TrimPrefix(attr.Name, "xmlns"), ":")] = a.Value
		}
	}
	n.Namespace = n.lookup(n.Prefix)
	return n
}

func (n *node) lookup(prefix string) string {
	for s := n; s != nil; s = s.parent {
		if uri, ok := s.scopes[prefix]; ok {
			return uri
		}
	}
	return ""
}

func rawName(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}
