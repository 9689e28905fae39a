package xfa

import (
	"fmt"
	"strings"
)

// DataNamespace is the namespace of the element holding the filled-in form data
const DataNamespace = "http://www.xfa.org/schema/xfa-data/1.0/"

// Separators accepted between the segments of a cleaned key
const (
	DotSeparator   = "."
	SlashSeparator = "/"
)

// selectionNames are sibling names that hold the chosen value of a list
var selectionNames = []string{"value", "selected", "selection", "rawValue", "choice"}

// itemNames are child names typical of an enumerated option list
var itemNames = []string{"item", "option", "choice", "entry", "text", "value"}

// Entry is one field of a cleaned record
type Entry struct {
	Key   string
	Value string
}

// Record is the flat key/value view of the form data. Keys keep the order in
// which their nodes were first seen in the source.
type Record struct {
	entries []Entry
	index   map[string]int
}

func newRecord() *Record {
	return &Record{index: make(map[string]int)}
}

// Len returns the number of entries
func (r *Record) Len() int { return len(r.entries) }

// Entries returns a copy of the entries in order
func (r *Record) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Get returns the value stored under key
func (r *Record) Get(key string) (string, bool) {
	i, ok := r.index[key]
	if !ok {
		return "", false
	}
	return r.entries[i].Value, true
}

// add stores value under key. A key that is already taken gets a "#n" suffix
// so that no value is overwritten.
func (r *Record) add(key, value string) {
	unique := key
	for n := 2; ; n++ {
		if _, taken := r.index[unique]; !taken {
			break
		}
		unique = fmt.Sprintf("%s#%d", key, n)
	}
	r.index[unique] = len(r.entries)
	r.entries = append(r.entries, Entry{Key: unique, Value: value})
}

// MarshalJSON writes the record as one JSON object in entry order
func (r *Record) MarshalJSON() ([]byte, error) {
	obj := newObject()
	for _, e := range r.entries {
		obj.set(e.Key, e.Value)
	}
	return obj.MarshalJSON()
}

// FindDataSection locates the element holding the form data: xfa:data by
// namespace first, then a data element directly under datasets, then any data
// element. It returns nil when the document has none.
func FindDataSection(doc *Document) *Node {
	var byNamespace, underDatasets, anyData *Node
	doc.Walk(func(n *Node) bool {
		if n.Local != "data" {
			return true
		}
		if n.Namespace == DataNamespace {
			byNamespace = n
			return false
		}
		if underDatasets == nil && n.Parent != nil && n.Parent.Local == "datasets" {
			underDatasets = n
		}
		if anyData == nil {
			anyData = n
		}
		return true
	})
	switch {
	case byNamespace != nil:
		return byNamespace
	case underDatasets != nil:
		return underDatasets
	default:
		return anyData
	}
}

// cleaner prunes and flattens the data section of a parsed form
type cleaner struct {
	table     *PruneTable
	separator string
}

// kept is an element that survived pruning
type kept struct {
	name     string
	text     string
	attrs    []Attr
	children []*kept
}

func (k *kept) isLeaf() bool { return len(k.children) == 0 }

// clean builds the record for doc. Without a data section the whole document
// is cleaned, with its top-level elements as the first key segment.
func (c *cleaner) clean(doc *Document) *Record {
	var top []*kept
	if data := FindDataSection(doc); data != nil {
		top = c.keepChildren(data.Children, "")
	} else {
		for _, root := range doc.Roots {
			if k := c.keep(root); k != nil {
				top = append(top, k)
			}
		}
	}

	rec := newRecord()
	c.flatten(rec, "", top)
	return rec
}

// keepChildren applies the pruning rules to the children of one element.
// parentText is the text of that element, which counts as a selection for any
// option list below it.
func (c *cleaner) keepChildren(children []*Node, parentText string) []*kept {
	var out []*kept
	for _, child := range children {
		if c.table.IsSystem(child.Local) {
			continue
		}
		if k := c.keep(child); k != nil {
			out = append(out, k)
		}
	}

	filtered := make([]*kept, 0, len(out))
	for _, k := range out {
		if c.isOptionList(k) && (parentText != "" || c.hasSelection(k, out) || c.isLargeLookup(k)) {
			continue
		}
		filtered = append(filtered, k)
	}
	return filtered
}

// keep returns the pruned copy of n, or nil when nothing meaningful is left
func (c *cleaner) keep(n *Node) *kept {
	k := &kept{name: n.Local, text: n.Text}
	for _, a := range n.Attrs {
		if c.table.meaningfulAttr(a) {
			k.attrs = append(k.attrs, a)
		}
	}
	k.children = c.keepChildren(n.Children, n.Text)
	if k.text == "" && len(k.attrs) == 0 && len(k.children) == 0 {
		return nil
	}
	return k
}

// isOptionList reports whether k only enumerates choices: at least two leaf
// items sharing one name, no text of its own, and either a lookup-like name or
// item-like children.
func (c *cleaner) isOptionList(k *kept) bool {
	if k.text != "" || len(k.children) < 2 {
		return false
	}
	itemName := k.children[0].name
	for _, item := range k.children {
		if !item.isLeaf() || item.name != itemName {
			return false
		}
	}
	return c.table.IsLookupName(k.name) || containsFold(itemNames, itemName)
}

// hasSelection reports whether a sibling of list holds the chosen value
func (c *cleaner) hasSelection(list *kept, siblings []*kept) bool {
	field := c.table.fieldName(list.name)
	for _, s := range siblings {
		if s == list || s.text == "" || !s.isLeaf() {
			continue
		}
		if (field != "" && field != list.name && strings.EqualFold(s.name, field)) || containsFold(selectionNames, s.name) {
			return true
		}
	}
	return false
}

func (c *cleaner) isLargeLookup(k *kept) bool {
	return c.table.IsLookupName(k.name) && len(k.children) > c.table.LargeListThreshold
}

// flatten adds one entry per text value and attribute, walking in document
// order. Names repeated among siblings get a zero-based [i] suffix.
func (c *cleaner) flatten(rec *Record, prefix string, nodes []*kept) {
	counts := make(map[string]int, len(nodes))
	for _, k := range nodes {
		counts[k.name]++
	}
	seen := make(map[string]int, len(nodes))

	for _, k := range nodes {
		segment := k.name
		if counts[k.name] > 1 {
			segment = fmt.Sprintf("%s[%d]", k.name, seen[k.name])
			seen[k.name]++
		}
		path := segment
		if prefix != "" {
			path = prefix + c.separator + segment
		}

		if k.text != "" {
			rec.add(path, k.text)
		}
		for _, a := range k.attrs {
			rec.add(path+"@"+a.Local(), a.Value)
		}
		c.flatten(rec, path, k.children)
	}
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
