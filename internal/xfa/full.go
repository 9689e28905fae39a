package xfa

// Keys used by the full conversion for attributes and mixed text
const (
	attributesKey = "_attributes"
	valueKey      = "_value"
)

// toFullJSON converts the document without dropping anything. Element names
// keep their prefix, repeated names become arrays, and an element holding only
// text collapses to its string.
func toFullJSON(doc *Document) *object {
	out := newObject()
	for _, root := range doc.Roots {
		out.merge(root.QName(), fullValue(root))
	}
	return out
}

func fullValue(n *Node) any {
	if len(n.Attrs) == 0 && n.IsLeaf() {
		return n.Text
	}

	obj := newObject()
	if len(n.Attrs) > 0 {
		attrs := newObject()
		for _, a := range n.Attrs {
			attrs.set(a.Name, a.Value)
		}
		obj.set(attributesKey, attrs)
	}
	if n.Text != "" {
		obj.set(valueKey, n.Text)
	}
	for _, c := range n.Children {
		obj.merge(c.QName(), fullValue(c))
	}
	return obj
}
