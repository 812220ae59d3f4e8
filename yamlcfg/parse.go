package yamlcfg

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ParseError is a configuration parse-time diagnostic: a one-line
// `file:line:col: reason` message.
type ParseError struct {
	Location Location
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Location, e.Reason)
}

// Parse reads and parses a YAML file at path into a Node tree, resolving
// include directives recursively. The returned node's Kind is always
// KindMapping.
func Parse(path string) (*Node, error) {
	seen := make(map[string]bool)
	return parseFile(path, seen)
}

func parseFile(path string, seen map[string]bool) (*Node, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("yamlcfg: %s: %w", path, err)
	}
	if seen[abs] {
		return nil, &ParseError{Location: Location{File: path}, Reason: "include cycle detected"}
	}
	seen[abs] = true

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("yamlcfg: %s: %w", path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Location: Location{File: path}, Reason: err.Error()}
	}
	if len(doc.Content) == 0 {
		return NewNode(KindMapping, Location{File: path}), nil
	}

	root, err := convert(doc.Content[0], path)
	if err != nil {
		return nil, err
	}
	if root.Kind != KindMapping {
		return nil, &ParseError{Location: root.Location, Reason: "top-level document must be a mapping"}
	}

	if err := resolveIncludes(root, path, seen); err != nil {
		return nil, err
	}

	return root, nil
}

// NewNode constructs an empty Node of the given kind at loc, allocating a
// Mapping when kind is KindMapping.
func NewNode(kind Kind, loc Location) *Node {
	n := &Node{Kind: kind, Location: loc}
	if kind == KindMapping {
		n.Mapping = NewMapping()
	}
	return n
}

func convert(n *yaml.Node, file string) (*Node, error) {
	loc := Location{File: file, Line: n.Line, Column: n.Column}

	switch n.Kind {
	case yaml.AliasNode:
		return &Node{Kind: KindAlias, Location: loc, Alias: n.Value}, nil

	case yaml.ScalarNode:
		return &Node{Kind: KindScalar, Location: loc, Scalar: n.Value, Anchor: n.Anchor}, nil

	case yaml.SequenceNode:
		seq := make([]*Node, 0, len(n.Content))
		for _, c := range n.Content {
			cn, err := convert(c, file)
			if err != nil {
				return nil, err
			}
			seq = append(seq, cn)
		}
		return &Node{Kind: KindSequence, Location: loc, Sequence: seq, Anchor: n.Anchor}, nil

	case yaml.MappingNode:
		m := NewMapping()
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valNode := n.Content[i], n.Content[i+1]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, &ParseError{
					Location: Location{File: file, Line: keyNode.Line, Column: keyNode.Column},
					Reason:   "mapping keys must be scalars",
				}
			}
			vn, err := convert(valNode, file)
			if err != nil {
				return nil, err
			}
			m.Set(keyNode.Value, vn)
		}
		return &Node{Kind: KindMapping, Location: loc, Mapping: m, Anchor: n.Anchor}, nil

	default:
		return nil, &ParseError{Location: loc, Reason: fmt.Sprintf("unsupported YAML node kind %d", n.Kind)}
	}
}

// resolveIncludes splices the `include` key's referenced mapping(s) into m,
// recursively resolving their own includes first.
func resolveIncludes(m *Node, file string, seen map[string]bool) error {
	inc, ok := m.Mapping.Get("include")
	if !ok {
		return nil
	}

	var paths []string
	switch inc.Kind {
	case KindScalar:
		paths = []string{inc.Scalar}
	case KindSequence:
		for _, item := range inc.Sequence {
			if item.Kind != KindScalar {
				return &ParseError{Location: item.Location, Reason: "include array elements must be strings"}
			}
			paths = append(paths, item.Scalar)
		}
	default:
		return &ParseError{Location: inc.Location, Reason: "include must be a string or array of strings"}
	}

	dir := filepath.Dir(file)
	for _, p := range paths {
		resolved := p
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(dir, p)
		}

		included, err := parseFile(resolved, seen)
		if err != nil {
			return err
		}

		for _, key := range included.Mapping.Keys {
			if key == "include" {
				continue
			}
			v, _ := included.Mapping.Get(key)
			if !m.Mapping.Has(key) {
				m.Mapping.Set(key, v)
			}
		}
	}

	return nil
}
