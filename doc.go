/*
Package resolver is the resolution core of a dependency-injection
container builder.

Given a set of user-declared service definitions written against a
small, partially-typed description language, the core:

  - infers a concrete class type for every definition (Phase 1,
    resolveDefinition),
  - normalizes and type-checks every statement describing a
    construction or method call (Phase 2, completeDefinition), and
  - fills in missing constructor/method arguments by autowiring,
    matching parameter types against other definitions.

The core does not build a runtime container, does not persist
generated code, does not evaluate services and does not parse
configuration files. It consumes a Builder (the collaborator that owns
definitions) and a TypeUniverse (read-only reflection over the class
universe); both are plain interfaces so an embedder can plug in its own
container and its own reflection source.

Basics

	u := resolver.NewReflectUniverse()
	u.RegisterClass("Logger", Logger{})
	u.RegisterConstructor("Logger", NewLogger)

	b := dicoretest.NewBuilder(u)
	b.Add(dicoretest.NewDefinition("logger",
		resolver.NewStatement(resolver.NewClassEntity("Logger"), nil)))

	r := resolver.NewResolver(b, u)
	if err := r.ResolveAll(); err != nil {
		panic(err)
	}
	if err := r.CompleteAll(); err != nil {
		panic(err)
	}

Two-Phase Pipeline

Phase 1 (resolveDefinition) may recurse into other definitions through
references; cycles introduced this way are detected and reported with
every definition name in the cycle. Phase 2 (completeDefinition) never
creates new definitions; it normalizes statements, converts "@service"
style strings into references, and autowires missing arguments.

Scope Discipline

completeDefinition maintains a depth-1 scope (currentService,
currentServiceType, currentServiceAllowed) for the definition currently
being completed. The scope is always cleared on exit, including on
error, so resolver state never leaks across calls.
*/
package resolver
