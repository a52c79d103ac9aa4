// Package dicoretest is an in-memory Builder/Definition fixture for
// exercising the resolver package end to end, the way container_test.go
// exercised the teacher's Container directly rather than through a mock.
// It is test infrastructure, not a production registry: it keeps every
// definition and dependency record in plain slices/maps with no
// concurrency guarantees.
package dicoretest

import (
	"fmt"

	"github.com/godicore/resolver"
)

// LiteralValue is the opaque value Builder.Literal wraps a raw expression
// in; the resolver core passes it through unexamined.
type LiteralValue struct {
	Expr string
}

// Definition is a minimal resolver.Definition: a creator statement, zero or
// more setup statements run after construction, and the bookkeeping Phase 1
// needs (a resolved type) and Phase 2 needs (tags, autowiring eligibility).
type Definition struct {
	name      string
	typ       string
	creator   *resolver.Statement
	setup     []*resolver.Statement
	tags      []string
	autowired bool
}

// NewDefinition registers a service under name, built by running creator.
// The definition is autowiring-eligible by default; call
// SetAutowired(false) to opt out, matching a service that must be injected
// explicitly.
func NewDefinition(name string, creator *resolver.Statement) *Definition {
	return &Definition{name: name, creator: creator, autowired: true}
}

// WithType pins the definition's type ahead of Phase 1, for a definition
// whose creator entity can't be reflected (e.g. a raw factory closure).
func (d *Definition) WithType(typ string) *Definition {
	d.typ = typ
	return d
}

// WithSetup appends a setup statement (a method call or property
// assignment run against the constructed instance during Phase 2).
func (d *Definition) WithSetup(stmt *resolver.Statement) *Definition {
	d.setup = append(d.setup, stmt)
	return d
}

// WithTags records tag as carried by the definition, for FindByTag.
func (d *Definition) WithTags(tags ...string) *Definition {
	d.tags = append(d.tags, tags...)
	return d
}

// SetAutowired toggles whether this definition is a candidate for
// by-type/typed/tagged autowiring.
func (d *Definition) SetAutowired(autowired bool) *Definition {
	d.autowired = autowired
	return d
}

// Creator returns the (possibly completed) creator statement.
func (d *Definition) Creator() *resolver.Statement { return d.creator }

// Setup returns the (possibly completed) setup statements.
func (d *Definition) Setup() []*resolver.Statement { return d.setup }

func (d *Definition) Name() string { return d.name }
func (d *Definition) Type() string { return d.typ }

func (d *Definition) Descriptor() string {
	return fmt.Sprintf("Service '%s' (type %s)", d.name, d.typ)
}

func (d *Definition) ResolveType(r *resolver.Resolver) error {
	if d.typ != "" {
		return nil
	}
	typ, err := r.ResolveEntityType(d.creator.Entity)
	if err != nil {
		return err
	}
	d.typ = typ
	return nil
}

func (d *Definition) Complete(r *resolver.Resolver) error {
	completed, err := r.CompleteStatement(d.creator, false)
	if err != nil {
		return err
	}
	d.creator = completed
	for i, stmt := range d.setup {
		completed, err := r.CompleteStatement(stmt, true)
		if err != nil {
			return err
		}
		d.setup[i] = completed
	}
	return nil
}

// Builder is an in-memory resolver.Builder: definitions are kept in
// registration order, by-type lookups are answered by scanning that order
// for the first autowiring-eligible match.
type Builder struct {
	universe     resolver.TypeUniverse
	order        []string
	definitions  map[string]*Definition
	dependencies []string
}

// NewBuilder creates an empty Builder backed by universe for type-based
// lookups (IsInstanceOf, autowiring candidates).
func NewBuilder(universe resolver.TypeUniverse) *Builder {
	return &Builder{universe: universe, definitions: make(map[string]*Definition)}
}

// Add registers def under its own name. Re-adding the same name replaces
// the previous definition but keeps its position in registration order.
func (b *Builder) Add(def *Definition) *Builder {
	if _, exists := b.definitions[def.name]; !exists {
		b.order = append(b.order, def.name)
	}
	b.definitions[def.name] = def
	return b
}

// Dependencies returns every class/method fact recorded via AddDependency,
// in the order resolution touched them.
func (b *Builder) Dependencies() []string { return b.dependencies }

func (b *Builder) HasDefinition(name string) bool {
	_, ok := b.definitions[name]
	return ok
}

func (b *Builder) GetDefinition(name string) (resolver.Definition, bool) {
	d, ok := b.definitions[name]
	if !ok {
		return nil, false
	}
	return d, true
}

func (b *Builder) GetDefinitions() []resolver.NamedDefinition {
	out := make([]resolver.NamedDefinition, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, resolver.NamedDefinition{Name: name, Definition: b.definitions[name]})
	}
	return out
}

func (b *Builder) GetByType(class string, throwIfNotFound bool) (string, error) {
	for _, name := range b.order {
		d := b.definitions[name]
		if !d.autowired || d.typ == "" {
			continue
		}
		if b.universe.IsInstanceOf(d.typ, class) {
			return name, nil
		}
	}
	if !throwIfNotFound {
		return "", nil
	}
	return "", &resolver.MissingServiceError{
		Type:    class,
		Message: fmt.Sprintf("Service of type %s not found.", class),
	}
}

func (b *Builder) FindByTag(tag string) map[string]interface{} {
	out := map[string]interface{}{}
	for _, name := range b.order {
		d := b.definitions[name]
		for _, t := range d.tags {
			if t == tag {
				out[name] = true
				break
			}
		}
	}
	return out
}

func (b *Builder) FindAutowired(class string) map[string]resolver.Definition {
	out := map[string]resolver.Definition{}
	for _, name := range b.order {
		d := b.definitions[name]
		if d.autowired && d.typ != "" && b.universe.IsInstanceOf(d.typ, class) {
			out[name] = d
		}
	}
	return out
}

func (b *Builder) AddDependency(classOrMethod string) {
	b.dependencies = append(b.dependencies, classOrMethod)
}

func (b *Builder) Literal(expr string) interface{} { return LiteralValue{Expr: expr} }

func (b *Builder) GetMethodName(name string) string { return "get_" + name }
