package yamlcfg

import (
	"fmt"
	"strconv"
)

// AccessError is the typed-accessor diagnostic: `file:line:col parameter: reason`.
type AccessError struct {
	Location  Location
	Parameter string
	Reason    string
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Location, e.Parameter, e.Reason)
}

// Config wraps one mapping node with the typed accessors the builder's
// wiring pass uses to read component parameters.
type Config struct {
	node *Node
	doc  *Document
}

// NewConfig wraps mapping as a Config context against doc's anchor index.
// Panics if mapping.Kind is not KindMapping — callers resolve aliases and
// check kinds before forking into a new Config.
func NewConfig(mapping *Node, doc *Document) *Config {
	if mapping.Kind != KindMapping {
		panic("yamlcfg: NewConfig requires a mapping node")
	}
	return &Config{node: mapping, doc: doc}
}

func (c *Config) lookup(key string, required bool) (*Node, error) {
	v, ok := c.node.Mapping.Get(key)
	if !ok {
		if required {
			return nil, &AccessError{Location: c.node.Location, Parameter: key, Reason: "missing required parameter"}
		}
		return nil, nil
	}
	return v, nil
}

// ParseScalarBool tokenizes s as a boolean literal (true/yes/1, false/no/0),
// the same tokenization Config.Bool applies to a mapping value's raw text.
// Exported so any caller tokenizing a scalar outside a keyed mapping
// context — builder's array-element parameters, which carry no key to look
// up — shares this repo's one definition of what a boolean literal is.
func ParseScalarBool(s string) (bool, bool) {
	switch s {
	case "true", "yes", "1":
		return true, true
	case "false", "no", "0":
		return false, true
	default:
		return false, false
	}
}

// ParseScalarInt tokenizes s as a signed 64-bit decimal, the same
// tokenization Config.Integer applies. See ParseScalarBool.
func ParseScalarInt(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

// ParseScalarFloat tokenizes s as a double, the same tokenization
// Config.Floating applies. See ParseScalarBool.
func ParseScalarFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

// Bool reads key as a boolean, accepting true/yes/1 and false/no/0.
func (c *Config) Bool(key string, required bool) (bool, error) {
	v, err := c.lookup(key, required)
	if err != nil || v == nil {
		return false, err
	}
	if v.Kind != KindScalar {
		return false, &AccessError{Location: v.Location, Parameter: key, Reason: "expected a scalar boolean"}
	}

	b, ok := ParseScalarBool(v.Scalar)
	if !ok {
		return false, &AccessError{Location: v.Location, Parameter: key, Reason: fmt.Sprintf("%q is not a boolean", v.Scalar)}
	}
	return b, nil
}

// Integer reads key as a signed 64-bit decimal.
func (c *Config) Integer(key string, required bool) (int64, error) {
	v, err := c.lookup(key, required)
	if err != nil || v == nil {
		return 0, err
	}
	if v.Kind != KindScalar {
		return 0, &AccessError{Location: v.Location, Parameter: key, Reason: "expected a scalar integer"}
	}

	n, ok := ParseScalarInt(v.Scalar)
	if !ok {
		return 0, &AccessError{Location: v.Location, Parameter: key, Reason: fmt.Sprintf("%q is not an integer", v.Scalar)}
	}
	return n, nil
}

// Floating reads key as a double.
func (c *Config) Floating(key string, required bool) (float64, error) {
	v, err := c.lookup(key, required)
	if err != nil || v == nil {
		return 0, err
	}
	if v.Kind != KindScalar {
		return 0, &AccessError{Location: v.Location, Parameter: key, Reason: "expected a scalar number"}
	}

	f, ok := ParseScalarFloat(v.Scalar)
	if !ok {
		return 0, &AccessError{Location: v.Location, Parameter: key, Reason: fmt.Sprintf("%q is not a number", v.Scalar)}
	}
	return f, nil
}

// String reads key as a plain string, a zero-copy reference into the parsed
// node's scalar value.
func (c *Config) String(key string, required bool) (string, error) {
	v, err := c.lookup(key, required)
	if err != nil || v == nil {
		return "", err
	}
	if v.Kind != KindScalar {
		return "", &AccessError{Location: v.Location, Parameter: key, Reason: "expected a scalar string"}
	}
	return v.Scalar, nil
}

// Array reads key as a sequence of nodes.
func (c *Config) Array(key string, required bool) ([]*Node, error) {
	v, err := c.lookup(key, required)
	if err != nil || v == nil {
		return nil, err
	}
	if v.Kind != KindSequence {
		return nil, &AccessError{Location: v.Location, Parameter: key, Reason: "expected an array"}
	}
	return v.Sequence, nil
}

// ReferenceKind discriminates the three forms a component-reference
// parameter may take.
type ReferenceKind uint8

const (
	// RefDefinition is a bare string naming a shared definition: each use
	// materializes a fresh instance of it.
	RefDefinition ReferenceKind = iota
	// RefInstance is a YAML alias (`*name`) pointing at the single, shared
	// instance anchored as `&name`.
	RefInstance
	// RefAnonymous is an inline mapping defining a component in place,
	// optionally anchored.
	RefAnonymous
)

// Reference is the unresolved form of a component_reference parameter — the
// builder's class registry and instance table turn this into an actual
// Linkable.
type Reference struct {
	Kind ReferenceKind

	// Valid when Kind == RefDefinition: the definition name.
	Definition string
	// Valid when Kind == RefInstance: the anchor name.
	Instance string
	// Valid when Kind == RefAnonymous: the inline mapping node.
	Anonymous *Node

	Location Location
}

// ComponentReference reads key as a component reference: a bare string
// (definition reference), an alias (instance reference), or a nested
// mapping (anonymous definition).
func (c *Config) ComponentReference(key string, required bool) (*Reference, error) {
	v, err := c.lookup(key, required)
	if err != nil || v == nil {
		return nil, err
	}

	switch v.Kind {
	case KindScalar:
		return &Reference{Kind: RefDefinition, Definition: v.Scalar, Location: v.Location}, nil
	case KindAlias:
		return &Reference{Kind: RefInstance, Instance: v.Alias, Location: v.Location}, nil
	case KindMapping:
		return &Reference{Kind: RefAnonymous, Anonymous: v, Location: v.Location}, nil
	default:
		return nil, &AccessError{Location: v.Location, Parameter: key, Reason: "expected a string, alias, or mapping"}
	}
}

// Fork reinterprets a nested mapping node as a new Config context, sharing
// this Config's anchor index.
func (c *Config) Fork(value *Node) (*Config, error) {
	if value.Kind != KindMapping {
		return nil, &AccessError{Location: value.Location, Parameter: "", Reason: "expected a mapping to fork into a sub-configuration"}
	}
	return NewConfig(value, c.doc), nil
}

// Node returns the wrapped mapping node, for callers (the builder) that need
// to iterate its keys directly rather than through a typed accessor.
func (c *Config) Node() *Node { return c.node }

// Document returns the anchor-indexed document this Config was built from.
func (c *Config) Document() *Document { return c.doc }
