package resolver

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// Getter resolves an autowiring candidate for class. When single is true it
// returns a Reference (or nil if nothing matched, collapsed from
// *MissingServiceError by the caller); when single is false it returns an
// ordered []Reference for array/variadic injection.
type Getter func(class string, single bool) (interface{}, error)

// AutowireArguments merges caller-supplied arguments with values inferred
// from info's parameter types (spec.md §4.2). strict promotes the
// legacy "required, unresolved" deprecation (point 6) to a hard error.
// Returns the merged arguments, any deprecation warnings raised, and an
// error.
func AutowireArguments(info MethodInfo, supplied Arguments, getter Getter, strict bool) (Arguments, []string, error) {
	positional, named := splitSupplied(supplied)
	var result Arguments
	var warnings []string
	useName := false
	num := 0

	emit := func(name string, value interface{}) {
		if useName {
			result = append(result, Argument{Name: name, Value: value})
		} else {
			result = append(result, Argument{Value: value})
		}
	}

	for _, p := range info.Parameters {
		if p.Variadic {
			if v, ok := named[p.Name]; ok {
				arr, ok2 := v.([]interface{})
				if !ok2 {
					return nil, warnings, errArgumentMismatch(
						fmt.Sprintf("Parameter $%s must be an array.", p.Name))
				}
				delete(named, p.Name)
				if useName {
					result = append(result, Argument{Name: p.Name, Value: arr})
				} else {
					for _, item := range arr {
						result = append(result, Argument{Value: item})
					}
				}
				continue
			}
			var tail []interface{}
			for {
				v, ok := positional[num]
				if !ok {
					break
				}
				tail = append(tail, v)
				delete(positional, num)
				num++
			}
			if useName {
				result = append(result, Argument{Name: p.Name, Value: tail})
			} else {
				for _, item := range tail {
					result = append(result, Argument{Value: item})
				}
			}
			continue
		}

		if v, ok := named[p.Name]; ok {
			delete(named, p.Name)
			emit(p.Name, v)
			continue
		}
		if !useName {
			if v, ok := positional[num]; ok {
				delete(positional, num)
				num++
				emit(p.Name, v)
				continue
			}
		}

		if p.Intersection {
			return nil, warnings, errIntersectionTypeUnsupported(p.Name)
		}

		if p.Union {
			if !p.HasDefault {
				return nil, warnings, errUnionWithoutDefault(p.Name)
			}
			useName = true
			continue
		}

		if p.ClassType != "" && !p.ArrayType {
			val, err := getter(p.ClassType, true)
			if err != nil {
				if _, ok := err.(*MissingServiceError); ok {
					val = nil
				} else {
					return nil, warnings, errors.Wrapf(err, "Required by $%s", p.Name)
				}
			}
			if val == nil {
				if p.Nullable {
					emit(p.Name, nil)
					continue
				}
				if p.HasDefault {
					useName = true
					continue
				}
				warnings = append(warnings, fmt.Sprintf(
					"Parameter $%s should have a declared value.", p.Name))
				if strict {
					return nil, warnings, errUnresolvedDependency(
						fmt.Sprintf("Service of type %s required by $%s not found.", p.ClassType, p.Name))
				}
				emit(p.Name, nil)
				continue
			}
			emit(p.Name, val)
			continue
		}

		if p.ArrayType && p.ClassType != "" {
			list, err := getter(p.ClassType, false)
			if err != nil {
				return nil, warnings, errors.Wrapf(err, "Required by $%s", p.Name)
			}
			emit(p.Name, list)
			continue
		}

		// mixed/object-equivalent parameter with no resolvable class type.
		if p.ClassType == "" && !p.ArrayType {
			if !p.HasDefault && !p.Nullable {
				return nil, warnings, errUnionWithoutDefault(p.Name)
			}
			useName = true
			continue
		}

		if p.HasDefault || p.Nullable {
			useName = true
			continue
		}

		warnings = append(warnings, fmt.Sprintf(
			"Parameter $%s should have a declared value.", p.Name))
		if strict {
			return nil, warnings, errUnresolvedDependency(
				fmt.Sprintf("Class %s required by $%s not found.", p.ClassType, p.Name))
		}
		emit(p.Name, nil)
	}

	if !useName {
		idx := num
		for {
			v, ok := positional[idx]
			if !ok {
				break
			}
			result = append(result, Argument{Value: v})
			delete(positional, idx)
			idx++
		}
	}

	if len(positional) > 0 || len(named) > 0 {
		return nil, warnings, errArgumentMismatch("Unable to pass specified arguments, too many arguments given.")
	}

	return result, warnings, nil
}

func splitSupplied(supplied Arguments) (positional map[int]interface{}, named map[string]interface{}) {
	positional = map[int]interface{}{}
	named = map[string]interface{}{}
	next := 0
	for _, a := range supplied {
		if a.Name == "" {
			for {
				if _, taken := positional[next]; !taken {
					break
				}
				next++
			}
			positional[next] = a.Value
			next++
			continue
		}
		if idx, err := strconv.Atoi(a.Name); err == nil {
			positional[idx] = a.Value
			if idx >= next {
				next = idx + 1
			}
			continue
		}
		named[a.Name] = a.Value
	}
	return
}
