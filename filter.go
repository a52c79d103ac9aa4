package resolver

import (
	"regexp"
	"strings"
)

// EnumLiteral is the canonical form of a raw "Class::CASE" config value
// (spec.md §2 item 3 / §4.3 filterArguments).
type EnumLiteral struct {
	Class string
	Case  string
	Value interface{}
}

var classConstRe = regexp.MustCompile(`^([A-Za-z_][\w\\]*)::([A-Za-z_][A-Za-z0-9_]*)$`)

// FilterArguments canonicalizes raw config arguments (the ArgumentFilter
// leaf component, spec.md §2 item 3): "@name" becomes a Reference,
// "Class::CONST" is resolved to the constant's value, "Class::CASE"
// becomes an EnumLiteral, and nested *Statement arguments recurse.
func FilterArguments(u TypeUniverse, args Arguments) (Arguments, error) {
	out := make(Arguments, len(args))
	for i, a := range args {
		v, err := filterValue(u, a.Value)
		if err != nil {
			return nil, err
		}
		out[i] = Argument{Name: a.Name, Value: v}
	}
	return out, nil
}

func filterValue(u TypeUniverse, v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case string:
		return filterString(u, val)
	case *Statement:
		args, err := FilterArguments(u, val.Arguments)
		if err != nil {
			return nil, err
		}
		return &Statement{Entity: val.Entity, Arguments: args}, nil
	default:
		return v, nil
	}
}

func filterString(u TypeUniverse, s string) (interface{}, error) {
	if strings.HasPrefix(s, "@@") {
		return s[1:], nil
	}
	if strings.HasPrefix(s, "@") {
		return Name(s[1:]), nil
	}
	if m := classConstRe.FindStringSubmatch(s); m != nil {
		class, member := m[1], m[2]
		if val, ok := u.EnumCase(class, member); ok {
			return EnumLiteral{Class: class, Case: member, Value: val}, nil
		}
		if val, ok := u.Constant(class, member); ok {
			return val, nil
		}
	}
	return s, nil
}

// PrefixServiceName rewrites "@extension.X" references and
// Reference{Kind: RefName, Value: "extension.X"} values to carry ns as a
// prefix, recursing into statements and arrays (spec.md §4.3
// prefixServiceName).
func PrefixServiceName(v interface{}, ns string) interface{} {
	const extPrefix = "extension."
	switch val := v.(type) {
	case string:
		if strings.HasPrefix(val, "@"+extPrefix) {
			return "@" + ns + "." + strings.TrimPrefix(val, "@"+extPrefix)
		}
		return val
	case Reference:
		if val.Kind == RefName && strings.HasPrefix(val.Value, extPrefix) {
			return Name(ns + "." + strings.TrimPrefix(val.Value, extPrefix))
		}
		return val
	case Entity:
		return prefixEntity(val, ns)
	case *Statement:
		if val == nil {
			return val
		}
		args := make(Arguments, len(val.Arguments))
		for i, a := range val.Arguments {
			args[i] = Argument{Name: a.Name, Value: PrefixServiceName(a.Value, ns)}
		}
		return &Statement{Entity: prefixEntity(val.Entity, ns), Arguments: args}
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, it := range val {
			out[i] = PrefixServiceName(it, ns)
		}
		return out
	default:
		return v
	}
}

func prefixEntity(entity Entity, ns string) Entity {
	switch entity.Kind {
	case EntReference:
		if rv := PrefixServiceName(entity.Ref, ns); rv != nil {
			if ref, ok := rv.(Reference); ok {
				return ReferenceEntity(ref)
			}
		}
		return entity
	case EntCall:
		head := entity.Call.Head
		if head.Kind == HeadReference {
			if rv := PrefixServiceName(head.Ref, ns); rv != nil {
				if ref, ok := rv.(Reference); ok {
					head = ReferenceHead(ref)
				}
			}
		} else if head.Kind == HeadStatement {
			if sv := PrefixServiceName(head.Stmt, ns); sv != nil {
				if s, ok := sv.(*Statement); ok {
					head = StatementHead(s)
				}
			}
		}
		return CallEntity(head, entity.Call.Member)
	default:
		return entity
	}
}

// EnsureClassType validates that typ (falling back to hint when typ is
// empty) names an existing class. A name registered only as an interface
// is rejected with the "did you mean 'implement'?" error; interfaces do
// not pass this check. allowNullable permits an empty type with no hint
// either to pass silently, for call sites where an absent reflected type
// (e.g. a union/mixed return type collapsed to "no single class") is
// itself meaningful rather than an error.
func EnsureClassType(u TypeUniverse, typ, hint, descriptor string, allowNullable bool) error {
	if typ == "" {
		typ = hint
	}
	if typ == "" {
		if allowNullable {
			return nil
		}
		return errUnknownServiceType(descriptor)
	}
	if u.InterfaceExists(typ) && !u.ClassExists(typ) {
		return errInterfaceUsedAsClass(typ)
	}
	if !u.ClassExists(typ) {
		return errClassNotFound(typ)
	}
	return nil
}
