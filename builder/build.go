// Package builder instantiates a component graph from a parsed
// configuration tree: a collect pass resolves every definition and named
// instance (forward references and shared anchors included), an
// instantiate pass allocates a concrete component per collected instance
// via a class registry, a wire pass translates each definition's
// parameters into Configure calls (materializing and wiring a fresh
// instance on the spot for every definition-reference parameter), and a
// finalize pass calls FinishSetup on everything that was built.
package builder

import (
	"fmt"

	"github.com/sarchlab/sinuca-go/link"
	"github.com/sarchlab/sinuca-go/yamlcfg"
)

// Builder holds the intermediate definition/instance tables built up by the
// collect pass and consumed by the later passes.
type Builder struct {
	doc      *yamlcfg.Document
	registry *Registry

	defs      []*definition
	defByName map[string]DefinitionID

	instances   []*instance
	instByAlias map[string]InstanceID
}

// Build instantiates a full component graph from root, using registry to
// resolve `class` strings to factories. engine occupies instance 0,
// reachable from any parameter as the alias `*ENGINE`. The returned slice is
// ready to hand to Engine.Simulate: the engine itself at index 0, every
// other instance in the order it was instantiated.
func Build(root *yamlcfg.Node, eng link.Linkable, registry *Registry) ([]link.Linkable, error) {
	b := &Builder{
		doc:         yamlcfg.NewDocument(root),
		registry:    registry,
		defByName:   make(map[string]DefinitionID),
		instByAlias: make(map[string]InstanceID),
	}

	b.instances = append(b.instances, &instance{alias: engineAlias, component: eng, defined: true, wired: true})
	b.instByAlias[engineAlias] = 0

	if err := b.collect(root); err != nil {
		return nil, err
	}
	if err := b.ensureAllDefined(); err != nil {
		return nil, err
	}
	if err := b.instantiate(); err != nil {
		return nil, err
	}
	if err := b.wire(); err != nil {
		return nil, err
	}
	if err := b.finalize(); err != nil {
		return nil, err
	}

	components := make([]link.Linkable, len(b.instances))
	for i, inst := range b.instances {
		components[i] = inst.component
	}
	return components, nil
}

// instantiate is pass 2: every instance collected so far (skipping the
// engine) gets a concrete component allocated from its definition's class,
// looked up in the registry.
func (b *Builder) instantiate() error {
	n := len(b.instances)
	for i := 1; i < n; i++ {
		inst := b.instances[i]
		if inst.component != nil {
			continue
		}

		def := b.defs[inst.def]
		factory, ok := b.registry.Lookup(def.class)
		if !ok {
			return &Error{Location: def.location, Reason: fmt.Sprintf("no such component class: %q", def.class)}
		}

		inst.component = factory(b.instanceName(i))
	}

	return nil
}

func (b *Builder) instanceName(i int) string {
	inst := b.instances[i]
	if inst.alias != "" {
		return inst.alias
	}

	def := b.defs[inst.def]
	if def.name != "" {
		return def.name
	}

	return fmt.Sprintf("anon#%d", i)
}

// wire is pass 3: every instance's parameters are translated into Configure
// calls. The loop re-checks len(b.instances) on every iteration because
// resolving a definition-reference parameter appends and immediately wires
// a fresh instance — by the time the loop's index reaches it, wireInstance
// is a no-op thanks to the wired guard.
func (b *Builder) wire() error {
	for i := 1; i < len(b.instances); i++ {
		if err := b.wireInstance(i); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) wireInstance(i int) error {
	inst := b.instances[i]
	if inst.wired {
		return nil
	}
	inst.wired = true

	def := b.defs[inst.def]
	for _, key := range def.paramOrder {
		value, err := b.parameterToConfigValue(def.params[key])
		if err != nil {
			return err
		}
		if err := inst.component.Configure(key, value); err != nil {
			return &Error{Location: def.location, Reason: fmt.Sprintf("component %q: configuring %q: %v", b.instanceName(i), key, err)}
		}
	}

	return nil
}

// parameterToConfigValue translates one intermediate parameter into the
// link.ConfigValue its owning component's Configure receives. A
// definition-reference parameter materializes a fresh instance of that
// definition and wires it immediately, recursively, before returning —
// this is how a component that receives a definition-reference parameter
// ends up with a private, freshly-built instance rather than a shared one.
func (b *Builder) parameterToConfigValue(p parameter) (link.ConfigValue, error) {
	switch p.kind {
	case paramInteger:
		return link.Int(p.integer), nil
	case paramNumber:
		return link.Num(p.number), nil
	case paramBoolean:
		return link.Bool(p.boolean), nil

	case paramArray:
		values := make([]link.ConfigValue, len(p.array))
		for i, item := range p.array {
			v, err := b.parameterToConfigValue(item)
			if err != nil {
				return link.ConfigValue{}, err
			}
			values[i] = v
		}
		return link.Arr(values), nil

	case paramInstanceRef:
		inst := b.instances[p.instanceRef]
		return link.Ref(inst.component), nil

	case paramDefinitionRef:
		idx, err := b.materializeInstance(p.definitionRef, p.location)
		if err != nil {
			return link.ConfigValue{}, err
		}
		if err := b.wireInstance(idx); err != nil {
			return link.ConfigValue{}, err
		}
		return link.Ref(b.instances[idx].component), nil

	default:
		return link.ConfigValue{}, fmt.Errorf("builder: unreachable parameter kind %d", p.kind)
	}
}

// materializeInstance allocates a fresh, anonymous instance of definition
// id and appends it to the instance table, returning its index.
func (b *Builder) materializeInstance(id DefinitionID, loc yamlcfg.Location) (int, error) {
	def := b.defs[id]

	factory, ok := b.registry.Lookup(def.class)
	if !ok {
		return 0, &Error{Location: def.location, Reason: fmt.Sprintf("no such component class: %q", def.class)}
	}

	idx := len(b.instances)
	name := def.name
	if name == "" {
		name = fmt.Sprintf("anon#%d", idx)
	}

	b.instances = append(b.instances, &instance{
		def:       id,
		component: factory(name),
		defined:   true,
		location:  loc,
	})

	return idx, nil
}

// finalize is pass 4: every instance's FinishSetup is called once all
// Configure calls — including those of instances materialized during
// wiring — have completed.
func (b *Builder) finalize() error {
	for i := 1; i < len(b.instances); i++ {
		inst := b.instances[i]
		if err := inst.component.FinishSetup(); err != nil {
			return &Error{Location: inst.location, Reason: fmt.Sprintf("component %q: FinishSetup: %v", b.instanceName(i), err)}
		}
	}
	return nil
}
