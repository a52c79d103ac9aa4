package resolver

// ThisContainer is the reserved reference name the generated container
// exposes itself under. completeStatement rewrites a bare service
// Reference entity to [Reference(ThisContainer), methodNameFor(refName)],
// per spec.md §4.1 step 3.
const ThisContainer = "@@this-container"

// NamedDefinition pairs a definition with its registered key, preserving
// the Builder's iteration order (spec.md §2: "Registry (ContainerBuilder
// facade)").
type NamedDefinition struct {
	Name       string
	Definition Definition
}

// Builder is the external collaborator that owns definitions (spec.md §6:
// "Registry (consumed)"). The core never mutates the set of definitions;
// it only queries it and records reflection dependencies.
type Builder interface {
	// HasDefinition reports whether name is a registered definition key.
	HasDefinition(name string) bool
	// GetDefinition returns the definition registered under name.
	GetDefinition(name string) (Definition, bool)
	// GetDefinitions returns every definition, in registration order.
	GetDefinitions() []NamedDefinition
	// GetByType resolves a single autowired candidate for class. If
	// throwIfNotFound is false a "not found" condition returns ("", nil)
	// instead of an error. May return *NotAllowedDuringResolvingError when
	// the builder can't yet answer during Phase 1.
	GetByType(class string, throwIfNotFound bool) (string, error)
	// FindByTag returns every definition name carrying tag, mapped to an
	// opaque tag payload.
	FindByTag(tag string) map[string]interface{}
	// FindAutowired returns every definition name/value autowired for
	// class (i.e. eligible as a "typed" expansion candidate).
	FindAutowired(class string) map[string]Definition
	// AddDependency records that resolution touched a reflection fact
	// (a class, or a "Class::method" pair) so the embedder can recompile
	// when it changes.
	AddDependency(classOrMethod string)
	// Literal wraps a raw, already-valid code expression as an opaque
	// value the core passes through without further interpretation.
	Literal(expr string) interface{}
	// GetMethodName returns the name of the generated container method
	// that exposes the service registered as name.
	GetMethodName(name string) string
}

// Definition is the opaque-to-the-core record of how to build one service
// (spec.md §3/§6). The core only drives it through these operations; the
// definition's own internals (its creator/setup statements, how Complete
// mutates them) are an external collaborator's concern.
type Definition interface {
	// Name returns the definition's unique registry key.
	Name() string
	// Type returns the definition's resolved class name, or "" if Phase 1
	// hasn't determined it yet.
	Type() string
	// Descriptor returns a diagnostic string beginning with "Service ",
	// used by completeException's idempotency guard.
	Descriptor() string
	// ResolveType is Phase 1's callback: it must set the definition's
	// type (usually by calling back into Resolver.ResolveEntityType /
	// Resolver.ResolveReferenceType on its own creator statement) or
	// return an error.
	ResolveType(r *Resolver) error
	// Complete is Phase 2's callback: it must normalize and autowire its
	// own statements via Resolver.CompleteStatement, replacing them with
	// the returned values.
	Complete(r *Resolver) error
}
