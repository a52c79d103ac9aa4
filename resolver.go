package resolver

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Resolver is the centerpiece of the package: it owns the two-phase
// resolveDefinition/completeDefinition pipeline, the re-entrant recursion
// detector, and the depth-1 currentService scope (spec.md §4.1/§5). A
// Resolver is single-threaded and non-reentrant: concurrent calls would
// corrupt recursion detection and MUST be prevented by the embedder.
type Resolver struct {
	builder  Builder
	universe TypeUniverse

	recursive      map[string]bool
	recursiveOrder []string

	currentService        Definition
	currentServiceType    string
	currentServiceAllowed bool

	// StrictRequiredParams promotes the legacy "required, unresolved"
	// deprecation (spec.md §4.2 point 6) to a hard error. Off by default,
	// matching spec.md's "retained for backward compatibility" framing.
	StrictRequiredParams bool

	warnings []string
}

// NewResolver creates a Resolver over builder (the collaborator owning
// definitions) and universe (read-only reflection over the class
// universe).
func NewResolver(builder Builder, universe TypeUniverse) *Resolver {
	return &Resolver{
		builder:   builder,
		universe:  universe,
		recursive: make(map[string]bool),
	}
}

// Warnings returns every deprecation notice raised by autowiring a
// required-but-unresolved parameter (spec.md §4.2 point 6).
func (r *Resolver) Warnings() []string { return r.warnings }

//-----------------------------------------------
// Phase 1: resolveDefinition
//-----------------------------------------------

// ResolveAll runs Phase 1 over every definition the builder owns.
func (r *Resolver) ResolveAll() error {
	for _, nd := range r.builder.GetDefinitions() {
		if nd.Definition.Type() == "" {
			if err := r.ResolveDefinition(nd.Definition); err != nil {
				return err
			}
		}
	}
	return nil
}

// ResolveDefinition ensures def.Type() is set (spec.md §4.1
// resolveDefinition). Definitions call this recursively on each other
// through their own ResolveType callback when a reference needs another
// definition's type resolved first.
func (r *Resolver) ResolveDefinition(def Definition) error {
	name := def.Name()
	if r.recursive[name] {
		return completeException(errCircularReference(append([]string{}, r.recursiveOrder...)), def)
	}
	r.recursive[name] = true
	r.recursiveOrder = append(r.recursiveOrder, name)
	defer func() {
		delete(r.recursive, name)
		r.recursiveOrder = r.recursiveOrder[:len(r.recursiveOrder)-1]
	}()

	if err := def.ResolveType(r); err != nil {
		return completeException(err, def)
	}
	if def.Type() == "" {
		return completeException(errUnknownServiceType(def.Descriptor()), def)
	}
	return nil
}

// ResolveEntityType decides the return type of entity as if it were
// invoked (spec.md §4.1 resolveEntityType).
func (r *Resolver) ResolveEntityType(entity Entity) (string, error) {
	switch entity.Kind {
	case EntReference:
		return r.ResolveReferenceType(entity.Ref)
	case EntCall:
		return r.resolveCallEntityType(entity.Call)
	default:
		class := entity.Str
		if err := EnsureClassType(r.universe, class, "", class, false); err != nil {
			return "", err
		}
		return class, nil
	}
}

func (r *Resolver) resolveCallEntityType(call *Call) (string, error) {
	var headType string
	var err error
	switch call.Head.Kind {
	case HeadReference:
		headType, err = r.ResolveReferenceType(call.Head.Ref)
	case HeadStatement:
		headType, err = r.ResolveEntityType(call.Head.Stmt.Entity)
	case HeadString:
		headType = call.Head.Str
	}
	if err != nil {
		return "", err
	}

	var info MethodInfo
	var ok bool
	if call.Head.Kind == HeadGlobal {
		info, ok = r.universe.Function(call.Member)
		if !ok {
			return "", errFunctionNotFound(call.Member)
		}
		r.builder.AddDependency(call.Member)
	} else {
		info, ok = r.universe.Method(headType, call.Member)
		if !ok || !info.Public || (info.FromTrait && !info.Static) {
			return "", errMethodNotCallable(headType, call.Member)
		}
		r.builder.AddDependency(headType + "::" + call.Member)
	}
	// The declared return type only counts as the entity's type when it's
	// itself a class/interface (spec.md §4.1 resolveEntityType: "only if
	// it is a class type"); anything else (no single class, an
	// interface/mixed/union return) leaves the type unresolved here rather
	// than failing outright, so callers can decide what "unknown type"
	// means for them.
	if r.universe.InterfaceExists(info.ReturnType) && !r.universe.ClassExists(info.ReturnType) {
		return "", nil
	}
	if err := EnsureClassType(r.universe, info.ReturnType, "", call.Member, true); err != nil {
		return "", err
	}
	return info.ReturnType, nil
}

// ResolveReferenceType implements spec.md §4.1 resolveReferenceType.
func (r *Resolver) ResolveReferenceType(ref Reference) (string, error) {
	switch ref.Kind {
	case RefSelf:
		return r.currentServiceType, nil
	case RefType:
		return strings.TrimPrefix(ref.Value, `\`), nil
	case RefName:
		def, ok := r.builder.GetDefinition(ref.Value)
		if !ok {
			return "", errUnresolvedDependency("Reference to missing service '" + ref.Value + "'.")
		}
		if def.Type() == "" {
			if err := r.ResolveDefinition(def); err != nil {
				return "", err
			}
		}
		return def.Type(), nil
	default:
		return "", nil
	}
}

//-----------------------------------------------
// Phase 2: completeDefinition / completeStatement
//-----------------------------------------------

// CompleteAll runs Phase 2 over every definition the builder owns.
func (r *Resolver) CompleteAll() error {
	for _, nd := range r.builder.GetDefinitions() {
		if err := r.CompleteDefinition(nd.Definition); err != nil {
			return err
		}
	}
	return nil
}

// CompleteDefinition freezes a fully-typed, fully-argumented definition
// (spec.md §4.1 completeDefinition). The currentService* scope is always
// cleared on exit, including on error.
func (r *Resolver) CompleteDefinition(def Definition) (err error) {
	prevService, prevType, prevAllowed := r.currentService, r.currentServiceType, r.currentServiceAllowed
	if r.builder.HasDefinition(def.Name()) {
		r.currentService = def
	} else {
		r.currentService = nil
	}
	r.currentServiceType = def.Type()
	r.currentServiceAllowed = false
	defer func() {
		r.currentService, r.currentServiceType, r.currentServiceAllowed = prevService, prevType, prevAllowed
	}()

	if cerr := def.Complete(r); cerr != nil {
		return completeException(cerr, def)
	}
	if def.Type() != "" {
		r.builder.AddDependency(def.Type())
	}
	return nil
}

// CompleteStatement normalizes and autowires statement, returning a new
// Statement (the input is never mutated). currentServiceAllowed governs
// whether "local" self-injection via getByType is permitted for arguments
// autowired within this statement (spec.md §4.1 completeStatement).
func (r *Resolver) CompleteStatement(stmt *Statement, currentServiceAllowed bool) (*Statement, error) {
	prevAllowed := r.currentServiceAllowed
	r.currentServiceAllowed = currentServiceAllowed
	defer func() { r.currentServiceAllowed = prevAllowed }()

	entity, err := r.normalizeEntity(stmt.Entity)
	if err != nil {
		return nil, err
	}

	args, err := r.convertReferences(stmt.Arguments)
	if err != nil {
		return nil, err
	}

	entity, args, err = r.dispatchEntity(entity, args)
	if err != nil {
		return nil, err
	}

	args, err = r.completeArguments(args)
	if err != nil {
		return nil, appendRelated(err, entity, currentServiceAllowed)
	}

	return &Statement{Entity: entity, Arguments: args}, nil
}

//-----------------------------------------------
// entity dispatch (spec.md §4.1 completeStatement step 3)
//-----------------------------------------------

var thisContainerRef = Name(ThisContainer)

var memberNameRe = regexp.MustCompile(`^\$?[A-Za-z_][A-Za-z0-9_]*(\[\])?$`)

func validMemberName(member string) bool { return memberNameRe.MatchString(member) }

func (r *Resolver) dispatchEntity(entity Entity, args Arguments) (Entity, Arguments, error) {
	switch entity.Kind {
	case EntString:
		return r.dispatchStringEntity(entity, args)
	case EntReference:
		return r.dispatchReferenceEntity(entity, args)
	case EntCall:
		return r.dispatchCallEntity(entity, args)
	}
	return entity, args, nil
}

func (r *Resolver) dispatchStringEntity(entity Entity, args Arguments) (Entity, Arguments, error) {
	s := entity.Str
	if isLiteralExpression(s) {
		return entity, args, nil
	}
	if pseudoFunctions[s] {
		if len(args) != 1 {
			return entity, args, errArgumentMismatch(
				fmt.Sprintf("%s() expects exactly 1 argument, %d given.", s, len(args)))
		}
		return entity, args, nil
	}

	class := s
	if err := EnsureClassType(r.universe, class, "", class, false); err != nil {
		return entity, args, err
	}
	if r.universe.IsAbstract(class) {
		return entity, args, errClassIsAbstract(class)
	}

	ctor, ok := r.universe.Constructor(class)
	if !ok {
		if len(args) > 0 {
			return entity, args, errUnexpectedConstructorArgs(class)
		}
		return entity, args, nil
	}
	if !ctor.Public {
		return entity, args, errNonPublicConstructor(class)
	}
	r.builder.AddDependency(class + "::__construct")

	wired, warnings, err := AutowireArguments(ctor, args, r.makeGetter(), r.StrictRequiredParams)
	r.warnings = append(r.warnings, warnings...)
	if err != nil {
		return entity, args, err
	}
	return entity, wired, nil
}

// dispatchReferenceEntity rewrites a bare service Reference entity to
// [Reference(ThisContainer), methodNameFor(refName)] (spec.md §4.1 step 3):
// the generated container will expose every service through such a method.
func (r *Resolver) dispatchReferenceEntity(entity Entity, args Arguments) (Entity, Arguments, error) {
	refName := entity.Ref.Value
	if entity.Ref.Kind == RefSelf {
		if r.currentService == nil {
			return entity, args, errUnresolvedDependency("Reference to self outside of a service scope.")
		}
		refName = r.currentService.Name()
	}
	method := r.builder.GetMethodName(refName)
	return CallEntity(ReferenceHead(thisContainerRef), method), args, nil
}

func (r *Resolver) dispatchCallEntity(entity Entity, args Arguments) (Entity, Arguments, error) {
	call := entity.Call
	if !validMemberName(call.Member) {
		return entity, args, errBadEntityName(call.Member)
	}

	switch call.Head.Kind {
	case HeadGlobal:
		fn, ok := r.universe.Function(call.Member)
		if !ok {
			return entity, args, errFunctionNotFound(call.Member)
		}
		for _, a := range args {
			if a.Name != "" {
				return entity, args, errArgumentMismatch("Global function calls only accept positional arguments.")
			}
		}
		r.builder.AddDependency(call.Member)
		wired, warnings, err := AutowireArguments(fn, args, r.makeGetter(), r.StrictRequiredParams)
		r.warnings = append(r.warnings, warnings...)
		if err != nil {
			return entity, args, err
		}
		return entity, wired, nil

	case HeadStatement:
		completed, err := r.CompleteStatement(call.Head.Stmt, false)
		if err != nil {
			return entity, args, err
		}
		headType, err := r.ResolveEntityType(completed.Entity)
		if err != nil {
			return entity, args, err
		}
		return r.dispatchMemberOn(StatementHead(completed), headType, call.Member, args)

	default: // HeadString, HeadReference
		headType, err := r.headType(call.Head)
		if err != nil {
			return entity, args, err
		}
		return r.dispatchMemberOn(call.Head, headType, call.Member, args)
	}
}

func (r *Resolver) headType(head EntityHead) (string, error) {
	switch head.Kind {
	case HeadString:
		return head.Str, nil
	case HeadReference:
		return r.ResolveReferenceType(head.Ref)
	default:
		return "", nil
	}
}

func (r *Resolver) dispatchMemberOn(head EntityHead, headType, member string, args Arguments) (Entity, Arguments, error) {
	newEntity := CallEntity(head, member)

	if strings.HasPrefix(member, "$") {
		isAppend := strings.HasSuffix(member, "[]")
		name := strings.TrimSuffix(strings.TrimPrefix(member, "$"), "[]")
		if isAppend {
			if len(args) == 0 {
				return newEntity, args, errArgumentMismatch(
					fmt.Sprintf("Property $%s[] append requires a value.", name))
			}
		} else if len(args) > 1 {
			return newEntity, args, errArgumentMismatch(
				fmt.Sprintf("Property $%s accepts 0 or 1 argument.", name))
		}
		return newEntity, args, nil
	}

	info, ok := r.universe.Method(headType, member)
	if !ok || !info.Public || (info.FromTrait && !info.Static) {
		return newEntity, args, errMethodNotCallable(headType, member)
	}
	r.builder.AddDependency(headType + "::" + member)

	wired, warnings, err := AutowireArguments(info, args, r.makeGetter(), r.StrictRequiredParams)
	r.warnings = append(r.warnings, warnings...)
	if err != nil {
		return newEntity, args, err
	}
	return newEntity, wired, nil
}

//-----------------------------------------------
// convertReferences (spec.md §4.1 completeStatement step 2)
//-----------------------------------------------

var constCaseRe = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*$`)

func (r *Resolver) convertReferences(args Arguments) (Arguments, error) {
	out := make(Arguments, len(args))
	for i, a := range args {
		v, err := r.convertReferenceValue(a.Value)
		if err != nil {
			return nil, err
		}
		out[i] = Argument{Name: a.Name, Value: v}
	}
	return out, nil
}

func (r *Resolver) convertReferenceValue(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case string:
		return r.convertReferenceString(val)
	case *Statement:
		args, err := r.convertReferences(val.Arguments)
		if err != nil {
			return nil, err
		}
		return &Statement{Entity: val.Entity, Arguments: args}, nil
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, it := range val {
			cv, err := r.convertReferenceValue(it)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	default:
		return v, nil
	}
}

func (r *Resolver) convertReferenceString(s string) (interface{}, error) {
	if strings.HasPrefix(s, "@@") {
		return s[1:], nil
	}
	if !strings.HasPrefix(s, "@") {
		return s, nil
	}
	rest := s[1:]
	if rest == "self" {
		return Self(), nil
	}
	idx := strings.Index(rest, "::")
	if idx < 0 {
		return Name(rest), nil
	}
	svc, member := rest[:idx], rest[idx+2:]
	if constCaseRe.MatchString(member) {
		def, ok := r.builder.GetDefinition(svc)
		if !ok {
			return nil, errUnresolvedDependency("Reference to missing service '" + svc + "'.")
		}
		if def.Type() == "" {
			if err := r.ResolveDefinition(def); err != nil {
				return nil, err
			}
		}
		if v, ok := r.universe.Constant(def.Type(), member); ok {
			return v, nil
		}
		return nil, errClassNotFound(def.Type())
	}
	return NewStatement(CallEntity(ReferenceHead(Name(svc)), "$"+member), nil), nil
}

//-----------------------------------------------
// completeArguments (spec.md §4.1 completeStatement step 4)
//-----------------------------------------------

func (r *Resolver) completeArguments(args Arguments) (Arguments, error) {
	out := make(Arguments, 0, len(args))
	for _, a := range args {
		v, err := r.completeArgumentValue(a.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, Argument{Name: a.Name, Value: v})
	}
	return out, nil
}

func (r *Resolver) completeArgumentValue(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case *Statement:
		if val.Entity.Kind == EntString && (val.Entity.Str == "typed" || val.Entity.Str == "tagged") {
			return r.expandTypedOrTagged(val)
		}
		return r.CompleteStatement(val, false)
	case Reference:
		entity, err := r.normalizeEntity(ReferenceEntity(val))
		if err != nil {
			return nil, err
		}
		return entity.Ref, nil
	case Definition:
		entity, err := r.normalizeDefinitionEntity(val)
		if err != nil {
			return nil, err
		}
		return entity.Ref, nil
	default:
		return v, nil
	}
}

// expandTypedOrTagged implements the "typed"/"tagged" expansion sentinel
// (spec.md §3/§4.1 step 4): it replaces the nested statement with a list
// of references in the builder's registration order, skipping the current
// service by name.
func (r *Resolver) expandTypedOrTagged(stmt *Statement) (interface{}, error) {
	kind := stmt.Entity.Str
	var refs []interface{}
	for _, a := range stmt.Arguments {
		name, _ := a.Value.(string)
		matched := map[string]bool{}
		if kind == "typed" {
			for n := range r.builder.FindAutowired(name) {
				matched[n] = true
			}
		} else {
			for n := range r.builder.FindByTag(name) {
				matched[n] = true
			}
		}
		for _, nd := range r.builder.GetDefinitions() {
			if !matched[nd.Name] {
				continue
			}
			if r.currentService != nil && nd.Name == r.currentService.Name() {
				continue
			}
			refs = append(refs, Name(nd.Name))
		}
	}
	return refs, nil
}

//-----------------------------------------------
// autowiring getter
//-----------------------------------------------

func (r *Resolver) makeGetter() Getter {
	return func(class string, single bool) (interface{}, error) {
		if single {
			ref, err := r.getByType(class)
			if err != nil {
				return nil, err
			}
			return ref, nil
		}
		defs := r.builder.FindAutowired(class)
		names := make([]string, 0, len(defs))
		for n := range defs {
			names = append(names, n)
		}
		sort.Strings(names)
		refs := make([]interface{}, 0, len(names))
		for _, n := range names {
			if r.currentService != nil && n == r.currentService.Name() {
				continue
			}
			refs = append(refs, Name(n))
		}
		return refs, nil
	}
}
