package resolver

// ReferenceKind tags the three shapes a Reference can take.
type ReferenceKind int

const (
	// RefSelf means "the service currently being resolved".
	RefSelf ReferenceKind = iota
	// RefName points at a definition by its registered key.
	RefName
	// RefType is an unresolved class/interface name, to be resolved by
	// type lookup. normalizeReference never returns it: a resolved lookup
	// yields Name or Self, and when the lookup couldn't yet be answered
	// (NotAllowedDuringResolving) the value is kept as a Name reference.
	RefType
)

func (k ReferenceKind) String() string {
	switch k {
	case RefSelf:
		return "self"
	case RefName:
		return "name"
	case RefType:
		return "type"
	default:
		return "unknown"
	}
}

// Reference is a symbolic pointer to a service: "self" (the service being
// resolved), a definition name, or an as-yet-unresolved type name.
type Reference struct {
	Kind  ReferenceKind
	Value string
}

// Self returns the reference meaning "the service currently being resolved".
func Self() Reference { return Reference{Kind: RefSelf} }

// Name returns a reference to a definition by its registered key.
func Name(name string) Reference { return Reference{Kind: RefName, Value: name} }

// TypeRef returns a reference to an as-yet-unresolved class/interface name.
func TypeRef(typ string) Reference { return Reference{Kind: RefType, Value: typ} }

// IsSelf reports whether r is the Self reference.
func (r Reference) IsSelf() bool { return r.Kind == RefSelf }

func (r Reference) String() string {
	switch r.Kind {
	case RefSelf:
		return "@self"
	default:
		return "@" + r.Value
	}
}

// normalizeReference applies spec.md §4.1's normalizeReference rules:
//   - Self passes through unchanged.
//   - Name(n) requires the definition to exist; if n is the current
//     service it collapses to Self.
//   - Type(t) tries a by-type lookup; when the builder can't yet answer
//     (NotAllowedDuringResolvingError, meaning Phase 1 isn't far enough
//     along) the reference is left untouched as Name(t) to be revisited.
func (r *Resolver) normalizeReference(ref Reference) (Reference, error) {
	switch ref.Kind {
	case RefSelf:
		return ref, nil
	case RefName:
		if !r.builder.HasDefinition(ref.Value) {
			return Reference{}, errUnresolvedDependency(
				"Reference to missing service '" + ref.Value + "'.")
		}
		if r.currentService != nil && ref.Value == r.currentService.Name() {
			return Self(), nil
		}
		return ref, nil
	case RefType:
		name, err := r.getByType(ref.Value)
		if err != nil {
			if _, ok := err.(*NotAllowedDuringResolvingError); ok {
				return Name(ref.Value), nil
			}
			return Reference{}, err
		}
		return name, nil
	default:
		return ref, nil
	}
}

// getByType implements spec.md §4.1's getByType: it enables "local"
// autowiring to the enclosing service when currentServiceAllowed is set and
// the enclosing service already satisfies the requested type, otherwise it
// asks the builder and guards against self-injection.
func (r *Resolver) getByType(typ string) (Reference, error) {
	if r.currentService != nil && r.currentServiceAllowed &&
		r.currentServiceType != "" && r.universe.IsInstanceOf(r.currentServiceType, typ) {
		return Self(), nil
	}
	name, err := r.builder.GetByType(typ, true)
	if err != nil {
		return Reference{}, err
	}
	if r.currentService != nil && name == r.currentService.Name() && !r.currentServiceAllowed {
		return Reference{}, errMissingService(typ)
	}
	return Name(name), nil
}
