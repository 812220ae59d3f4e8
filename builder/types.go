package builder

import (
	"github.com/sarchlab/sinuca-go/link"
	"github.com/sarchlab/sinuca-go/yamlcfg"
)

// DefinitionID indexes into Builder.defs.
type DefinitionID int

// InstanceID indexes into Builder.instances.
type InstanceID int

// definition is a named (or anonymous) component class plus its parameter
// list — the configuration-file equivalent of a class, referenced by bare
// string wherever a fresh instance of it is needed.
type definition struct {
	name       string
	class      string
	params     map[string]parameter
	paramOrder []string

	// defined is false for a forward-referenced name the collect pass has
	// only seen used, not yet filled in. Any definition left undefined once
	// collection finishes is a dangling reference.
	defined  bool
	location yamlcfg.Location
}

// instance is one component to be allocated, configured, and driven each
// cycle. Instance 0 is always the engine.
type instance struct {
	alias     string
	def       DefinitionID
	component link.Linkable

	// defined mirrors definition.defined: false for an alias referenced (via
	// an alias node) before its anchor was reached.
	defined bool

	// wired guards against the same instance being configured twice, which
	// can otherwise happen because a definition-reference parameter
	// materializes and wires its fresh instance immediately, in place,
	// rather than waiting for the main wiring sweep to reach it.
	wired bool

	location yamlcfg.Location
}

// parameterKind discriminates a parameter's tagged-union variant.
type parameterKind uint8

const (
	paramInteger parameterKind = iota
	paramNumber
	paramBoolean
	paramArray
	paramInstanceRef
	paramDefinitionRef
)

// parameter is the intermediate representation of one component parameter,
// between the raw YAML node and the link.ConfigValue a component's
// Configure ultimately receives. Definition- and instance-references stay
// unresolved here because resolving a definition-reference may itself
// allocate a new instance — that happens lazily, during wiring.
type parameter struct {
	kind parameterKind

	integer int64
	number  float64
	boolean bool
	array   []parameter

	instanceRef   InstanceID
	definitionRef DefinitionID

	location yamlcfg.Location
}
