package builder

import (
	"fmt"

	"github.com/sarchlab/sinuca-go/yamlcfg"
)

// engineAlias is the reserved alias resolving to instance 0, the engine
// itself — the one instance every fetcher-shaped component needs a
// reference to in order to connect.
const engineAlias = "ENGINE"

// collect is pass 1: it walks the top-level mapping, turning every
// `name: mapping` entry into a definition (recursing into nested mapping
// parameter values, which become definitions too, keyed by their own
// parameter name), and handling the special `instantiate` key.
func (b *Builder) collect(root *yamlcfg.Node) error {
	for _, key := range root.Mapping.Keys {
		if key == "include" {
			continue
		}

		value, _ := root.Mapping.Get(key)

		if key == "instantiate" {
			if err := b.handleInstantiate(value); err != nil {
				return err
			}
			continue
		}

		if value.Kind != yamlcfg.KindMapping {
			return &Error{Location: value.Location, Reason: fmt.Sprintf("expected a mapping defining component %q, got %s", key, value.Kind)}
		}

		if _, err := b.defineOrFillDefinition(key, value); err != nil {
			return err
		}
	}

	return nil
}

// handleInstantiate processes the top-level `instantiate` key: a bare
// string instantiates (eventually, during the instantiate pass) a root
// instance of that named definition; a mapping defines an anonymous
// component and instantiates it as a root instance.
func (b *Builder) handleInstantiate(value *yamlcfg.Node) error {
	switch value.Kind {
	case yamlcfg.KindScalar:
		defID := b.getOrMakeDummyDefinition(value.Scalar, value.Location)
		b.instances = append(b.instances, &instance{def: defID, defined: true, location: value.Location})
		return nil

	case yamlcfg.KindMapping:
		defID, err := b.defineOrFillDefinition("", value)
		if err != nil {
			return err
		}
		// An anchored mapping was already bound to its own instance slot by
		// defineOrFillDefinition; that slot is the root instance.
		if value.Anchor == "" {
			inst := &instance{def: defID, defined: true, location: value.Location}
			b.instances = append(b.instances, inst)
		}
		return nil

	default:
		return &Error{Location: value.Location, Reason: "instantiate must be a string or a mapping"}
	}
}

// defineOrFillDefinition fills (creating if necessary) the definition named
// name from mapping. name == "" means anonymous: a fresh definition is
// always created, never reused, matching an array element's mapping or an
// instantiate-form anonymous component. If mapping carries an anchor, an
// instance slot is also created/filled for that alias — at any nesting
// level, a deliberate generalization of the reference tool's top-level-only
// anchor handling, per this format's "at any level" anchor rule.
func (b *Builder) defineOrFillDefinition(name string, mapping *yamlcfg.Node) (DefinitionID, error) {
	var id DefinitionID
	if name == "" {
		id = b.addDefinition("", mapping.Location)
	} else if existing, ok := b.defByName[name]; ok {
		if b.defs[existing].defined {
			return 0, &Error{Location: mapping.Location, Reason: fmt.Sprintf("multiple definitions of component %q", name)}
		}
		id = existing
	} else {
		id = b.addDefinition(name, mapping.Location)
	}

	def := b.defs[id]

	// cfg is the definition's typed view onto mapping: class and every
	// scalar parameter are tokenized through it rather than by
	// re-implementing yamlcfg's scalar grammar here.
	cfg := yamlcfg.NewConfig(mapping, b.doc)

	class, err := cfg.String("class", true)
	if err != nil {
		return 0, err
	}
	def.class = class
	def.location = mapping.Location

	for _, key := range mapping.Mapping.Keys {
		if key == "class" {
			continue
		}
		value, _ := mapping.Mapping.Get(key)

		p, err := b.translateValue(cfg, key, value)
		if err != nil {
			return 0, err
		}
		if def.params == nil {
			def.params = make(map[string]parameter)
		}
		def.params[key] = p
		def.paramOrder = append(def.paramOrder, key)
	}

	def.defined = true

	if mapping.Anchor != "" {
		if err := b.bindAnchor(mapping.Anchor, id, mapping.Location); err != nil {
			return 0, err
		}
	}

	return id, nil
}

// translateValue translates one YAML parameter value into the intermediate
// parameter representation. name is the parameter's key, used to register a
// nested mapping value as a (reusable, named) definition, and to read scalar
// values through cfg's typed accessors; pass cfg == nil and name == "" for
// array elements, which are always anonymous and carry no key to look up.
func (b *Builder) translateValue(cfg *yamlcfg.Config, name string, v *yamlcfg.Node) (parameter, error) {
	switch v.Kind {
	case yamlcfg.KindMapping:
		defID, err := b.defineOrFillDefinition(name, v)
		if err != nil {
			return parameter{}, err
		}
		return parameter{kind: paramDefinitionRef, definitionRef: defID, location: v.Location}, nil

	case yamlcfg.KindAlias:
		if v.Alias != engineAlias {
			if _, ok := b.doc.Resolve(v); !ok {
				return parameter{}, &Error{Location: v.Location, Reason: fmt.Sprintf("alias %q has no matching anchor", v.Alias)}
			}
		}
		instID := b.resolveAliasToInstance(v.Alias, v.Location)
		return parameter{kind: paramInstanceRef, instanceRef: instID, location: v.Location}, nil

	case yamlcfg.KindSequence:
		arr := make([]parameter, len(v.Sequence))
		for i, item := range v.Sequence {
			p, err := b.translateValue(nil, "", item)
			if err != nil {
				return parameter{}, err
			}
			arr[i] = p
		}
		return parameter{kind: paramArray, array: arr, location: v.Location}, nil

	case yamlcfg.KindScalar:
		return b.translateScalar(cfg, name, v)

	default:
		return parameter{}, &Error{Location: v.Location, Reason: "unsupported parameter value"}
	}
}

// translateScalar classifies a scalar parameter value: an integer or
// floating literal, a boolean, or (falling through) a bare string, which is
// a definition reference. When cfg is non-nil, key names the parameter and
// tokenization runs through cfg's typed accessors, the same ones the spec's
// config layer exposes for named lookups; array elements have no key to look
// up, so they tokenize directly through the accessors' shared scalar
// grammar instead.
func (b *Builder) translateScalar(cfg *yamlcfg.Config, key string, v *yamlcfg.Node) (parameter, error) {
	if cfg != nil {
		if n, err := cfg.Integer(key, false); err == nil {
			return parameter{kind: paramInteger, integer: n, location: v.Location}, nil
		}
		if f, err := cfg.Floating(key, false); err == nil {
			return parameter{kind: paramNumber, number: f, location: v.Location}, nil
		}
		if bl, err := cfg.Bool(key, false); err == nil {
			return parameter{kind: paramBoolean, boolean: bl, location: v.Location}, nil
		}
	} else {
		if n, ok := yamlcfg.ParseScalarInt(v.Scalar); ok {
			return parameter{kind: paramInteger, integer: n, location: v.Location}, nil
		}
		if f, ok := yamlcfg.ParseScalarFloat(v.Scalar); ok {
			return parameter{kind: paramNumber, number: f, location: v.Location}, nil
		}
		if bl, ok := yamlcfg.ParseScalarBool(v.Scalar); ok {
			return parameter{kind: paramBoolean, boolean: bl, location: v.Location}, nil
		}
	}

	defID := b.getOrMakeDummyDefinition(v.Scalar, v.Location)
	return parameter{kind: paramDefinitionRef, definitionRef: defID, location: v.Location}, nil
}

func (b *Builder) addDefinition(name string, loc yamlcfg.Location) DefinitionID {
	id := DefinitionID(len(b.defs))
	b.defs = append(b.defs, &definition{name: name, location: loc})
	if name != "" {
		b.defByName[name] = id
	}
	return id
}

// getOrMakeDummyDefinition resolves a bare-string definition reference,
// creating an undefined placeholder if name has not been seen yet — this is
// what makes forward references (`backing: not_yet_defined_below`) work.
func (b *Builder) getOrMakeDummyDefinition(name string, loc yamlcfg.Location) DefinitionID {
	if id, ok := b.defByName[name]; ok {
		return id
	}
	return b.addDefinition(name, loc)
}

// resolveAliasToInstance resolves a YAML alias to an instance slot, creating
// an undefined placeholder if the anchor has not been reached yet.
func (b *Builder) resolveAliasToInstance(alias string, loc yamlcfg.Location) InstanceID {
	if alias == engineAlias {
		return 0
	}
	if id, ok := b.instByAlias[alias]; ok {
		return id
	}

	id := InstanceID(len(b.instances))
	b.instances = append(b.instances, &instance{alias: alias, location: loc})
	b.instByAlias[alias] = id
	return id
}

// bindAnchor fills (creating if necessary) the instance slot for alias,
// pointing it at definition id. Double-anchoring the same alias is an error.
func (b *Builder) bindAnchor(alias string, id DefinitionID, loc yamlcfg.Location) error {
	if alias == engineAlias {
		return &Error{Location: loc, Reason: fmt.Sprintf("%q is reserved for the engine and cannot be anchored", engineAlias)}
	}

	if existing, ok := b.instByAlias[alias]; ok {
		inst := b.instances[existing]
		if inst.defined {
			return &Error{Location: loc, Reason: fmt.Sprintf("multiple components with alias %q", alias)}
		}
		inst.def = id
		inst.defined = true
		inst.location = loc
		return nil
	}

	instID := InstanceID(len(b.instances))
	b.instances = append(b.instances, &instance{alias: alias, def: id, defined: true, location: loc})
	b.instByAlias[alias] = instID
	return nil
}

// ensureAllDefined verifies every definition and instance slot created by a
// forward reference was eventually filled in.
func (b *Builder) ensureAllDefined() error {
	for _, def := range b.defs {
		if !def.defined {
			return &Error{Location: def.location, Reason: fmt.Sprintf("component definition %q was referenced but never defined", def.name)}
		}
	}
	for _, inst := range b.instances {
		if !inst.defined {
			return &Error{Location: inst.location, Reason: fmt.Sprintf("component with alias %q was referenced but never defined", inst.alias)}
		}
	}
	return nil
}
