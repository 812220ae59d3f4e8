// Package yamlcfg implements the configuration model the builder consumes:
// a tagged-union value tree with source-location metadata, insertion-ordered
// mappings, alias preservation, and include-directive resolution, built on
// top of gopkg.in/yaml.v3's node-level decoder. Only raw-byte tokenizing is
// delegated to that library — the value model, ordering, and include
// resolution are ours.
package yamlcfg

import "fmt"

// Location pinpoints a node's origin for diagnostics.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Kind discriminates a Node's variant.
type Kind uint8

const (
	// KindScalar is a raw string, tokenized into bool/int/float on demand by
	// the typed accessors rather than at parse time.
	KindScalar Kind = iota
	// KindAlias is an unresolved *name reference, preserved verbatim.
	KindAlias
	// KindSequence is an ordered list of nodes.
	KindSequence
	// KindMapping is an insertion-ordered key→value store.
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindAlias:
		return "alias"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Node is one value in the configuration tree.
type Node struct {
	Kind     Kind
	Location Location

	// Anchor is the name this node was anchored under (`&name`), empty if
	// none.
	Anchor string

	Scalar   string
	Alias    string
	Sequence []*Node
	Mapping  *Mapping
}

// Mapping is an insertion-ordered key→value store: lookups are O(1) via the
// index, iteration order follows Keys.
type Mapping struct {
	Keys   []string
	values map[string]*Node
}

// NewMapping constructs an empty ordered mapping.
func NewMapping() *Mapping {
	return &Mapping{values: make(map[string]*Node)}
}

// Set inserts or overwrites key, appending it to Keys on first insertion.
func (m *Mapping) Set(key string, n *Node) {
	if _, ok := m.values[key]; !ok {
		m.Keys = append(m.Keys, key)
	}
	m.values[key] = n
}

// Get returns the node stored at key, and whether it was present.
func (m *Mapping) Get(key string) (*Node, bool) {
	n, ok := m.values[key]
	return n, ok
}

// Has reports whether key is present.
func (m *Mapping) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}
