package xfa

import "strings"

// PruneTable lists what clean mode treats as bookkeeping rather than data.
// Element names are compared against the local name, without prefix.
type PruneTable struct {
	// Names are dropped together with their subtree
	Names []string
	// Prefixes drop any element whose name starts with one of them
	Prefixes []string
	// IgnoredAttrs do not count as content and are never emitted
	IgnoredAttrs []string
	// LookupFragments mark an element name as an option or reference list
	LookupFragments []string
	// LargeListThreshold is the item count above which a lookup-named list is
	// dropped even when no selection is found
	LargeListThreshold int
}

// DefaultPruneTable returns a fresh copy of the built-in table
func DefaultPruneTable() *PruneTable {
	return &PruneTable{
		Names: []string{
			"template", "config", "connectionSet", "sourceSet", "localeSet",
			"xmpmeta", "schema", "datamodel", "dataDescription", "script",
			"stylesheet", "signature", "xfdf",
		},
		Prefixes:           []string{"FS", "fs", "_", "TEMPLATE", "QUERY", "TRANSFORMATION", "xdp"},
		IgnoredAttrs:       []string{"dataNode", "nil"},
		LookupFragments:    []string{"List", "Options", "Choices", "Lookup", "Reference", "Dropdown", "Items"},
		LargeListThreshold: 10,
	}
}

// WithNames returns a copy of the table with extra pruned names added
func (t *PruneTable) WithNames(names ...string) *PruneTable {
	c := *t
	c.Names = append(append([]string(nil), t.Names...), names...)
	return &c
}

// IsSystem reports whether an element with this local name is bookkeeping
func (t *PruneTable) IsSystem(local string) bool {
	for _, n := range t.Names {
		if local == n {
			return true
		}
	}
	for _, p := range t.Prefixes {
		if strings.HasPrefix(local, p) {
			return true
		}
	}
	return false
}

// IsLookupName reports whether the name contains a lookup fragment, ignoring case
func (t *PruneTable) IsLookupName(local string) bool {
	return t.lookupFragment(local) != ""
}

func (t *PruneTable) lookupFragment(local string) string {
	lower := strings.ToLower(local)
	for _, f := range t.LookupFragments {
		if strings.Contains(lower, strings.ToLower(f)) {
			return f
		}
	}
	return ""
}

// fieldName strips the lookup fragment, so "CountryList" names the field "Country"
func (t *PruneTable) fieldName(local string) string {
	f := t.lookupFragment(local)
	if f == "" {
		return local
	}
	i := strings.Index(strings.ToLower(local), strings.ToLower(f))
	return local[:i] + local[i+len(f):]
}

func (t *PruneTable) meaningfulAttr(a Attr) bool {
	if a.IsNamespaceDecl() {
		return false
	}
	local := a.Local()
	for _, ignored := range t.IgnoredAttrs {
		if local == ignored {
			return false
		}
	}
	return true
}
