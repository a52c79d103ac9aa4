package resolver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DynamicParameter carries a generated-code expression for a placeholder
// value that's only known at container runtime (spec.md §3). It propagates
// through expand whenever any placeholder in the input refers to a
// runtime-only value.
type DynamicParameter struct {
	Code string
}

// NewDynamicParameter wraps a generated code expression.
func NewDynamicParameter(code string) *DynamicParameter { return &DynamicParameter{Code: code} }

func (d *DynamicParameter) String() string { return d.Code }

var placeholderRe = regexp.MustCompile(`%([\w.-]*)%`)

// Expand recursively walks v, substituting %name%/%a.b% placeholders
// against params. Non-recursive: a placeholder value that itself contains
// further placeholders is returned as-is (spec.md §4.3 expand, recursive
// defaulted false).
func Expand(v interface{}, params map[string]interface{}) (interface{}, error) {
	return expand(v, params, nil)
}

// ExpandRecursive is Expand with recursive=true: placeholder values are
// themselves expanded, with cycle detection (spec.md §4.3,
// "recursive=true ... enables nested expansion with cycle detection keyed
// by placeholder name").
func ExpandRecursive(v interface{}, params map[string]interface{}) (interface{}, error) {
	stack := &placeholderStack{}
	return expand(v, params, stack)
}

type placeholderStack struct {
	names []string
}

func (s *placeholderStack) push(name string) error {
	for _, n := range s.names {
		if n == name {
			return errCircularPlaceholder(append(append([]string{}, s.names...), name))
		}
	}
	s.names = append(s.names, name)
	return nil
}

func (s *placeholderStack) pop() { s.names = s.names[:len(s.names)-1] }

func expand(v interface{}, params map[string]interface{}, stack *placeholderStack) (interface{}, error) {
	switch val := v.(type) {
	case string:
		return expandString(val, params, stack)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			ev, err := expand(item, params, stack)
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			ev, err := expand(item, params, stack)
			if err != nil {
				return nil, err
			}
			out[k] = ev
		}
		return out, nil
	case *Statement:
		args := make(Arguments, len(val.Arguments))
		for i, a := range val.Arguments {
			ev, err := expand(a.Value, params, stack)
			if err != nil {
				return nil, err
			}
			args[i] = Argument{Name: a.Name, Value: ev}
		}
		return &Statement{Entity: val.Entity, Arguments: args}, nil
	default:
		return v, nil
	}
}

func expandString(s string, params map[string]interface{}, stack *placeholderStack) (interface{}, error) {
	matches := placeholderRe.FindAllStringSubmatchIndex(s, -1)
	if matches == nil {
		return s, nil
	}
	if len(matches) == 1 && matches[0][0] == 0 && matches[0][1] == len(s) {
		name := s[matches[0][2]:matches[0][3]]
		if name == "" {
			return "%", nil
		}
		return resolvePlaceholder(name, params, stack)
	}

	var literal strings.Builder
	var dyn *DynamicParameter
	last := 0

	appendLiteral := func(lit string) {
		if dyn != nil {
			if lit != "" {
				dyn = NewDynamicParameter(dyn.Code + " . " + goQuote(lit))
			}
			return
		}
		literal.WriteString(lit)
	}
	appendDynamic := func(code string) {
		if dyn == nil {
			dyn = NewDynamicParameter(goQuote(literal.String()))
			literal.Reset()
		}
		dyn = NewDynamicParameter(dyn.Code + " . (" + code + ")")
	}

	for _, m := range matches {
		appendLiteral(s[last:m[0]])
		name := s[m[2]:m[3]]
		last = m[1]
		if name == "" {
			appendLiteral("%")
			continue
		}
		val, err := resolvePlaceholder(name, params, stack)
		if err != nil {
			return nil, err
		}
		switch vv := val.(type) {
		case *DynamicParameter:
			appendDynamic(vv.Code)
		default:
			str, ok := scalarToString(vv)
			if !ok {
				return nil, errNonScalarConcat()
			}
			appendLiteral(str)
		}
	}
	appendLiteral(s[last:])
	if dyn != nil {
		return dyn, nil
	}
	return literal.String(), nil
}

func resolvePlaceholder(name string, params map[string]interface{}, stack *placeholderStack) (interface{}, error) {
	if stack != nil {
		if err := stack.push(name); err != nil {
			return nil, err
		}
		defer stack.pop()
	}
	path := strings.Split(name, ".")
	val, err := lookupParamPath(params, path)
	if err != nil {
		if name == "parameters" {
			return params, nil
		}
		return nil, err
	}
	if stack != nil {
		if s, ok := val.(string); ok && placeholderRe.MatchString(s) {
			return expandString(s, params, stack)
		}
	}
	return val, nil
}

func lookupParamPath(root map[string]interface{}, path []string) (interface{}, error) {
	var cur interface{} = root
	for i, key := range path {
		switch c := cur.(type) {
		case map[string]interface{}:
			v, ok := c[key]
			if !ok {
				return nil, errParameterPlaceholderMissing(strings.Join(path[:i+1], "."))
			}
			cur = v
		case *DynamicParameter:
			cur = NewDynamicParameter(fmt.Sprintf("%s[%s]", c.Code, goQuote(key)))
		default:
			return nil, errParameterPlaceholderMissing(strings.Join(path, "."))
		}
	}
	return cur, nil
}

// scalarToString stringifies a scalar value for placeholder concatenation,
// reporting false for anything non-scalar (spec.md §4.3: "Any non-scalar
// intermediate in a concatenation is a hard error unless it is a
// DynamicParameter").
func scalarToString(v interface{}) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), true
	case nil:
		return "", true
	default:
		return "", false
	}
}

func goQuote(s string) string { return strconv.Quote(s) }

//-----------------------------------------------
// escape
//-----------------------------------------------

// Escape doubles every "%" and every leading "@" in strings (recursively
// through arrays/maps, including map keys), so that a user-supplied config
// literal survives a later expand/convertReferences pass unchanged
// (spec.md §4.3 escape; round-trip property in spec.md §8).
func Escape(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		return escapeString(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, it := range val {
			out[i] = Escape(it)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, it := range val {
			out[escapeString(k)] = Escape(it)
		}
		return out
	default:
		return v
	}
}

func escapeString(s string) string {
	s = strings.ReplaceAll(s, "%", "%%")
	if strings.HasPrefix(s, "@") {
		s = "@" + s
	}
	return s
}
