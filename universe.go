package resolver

import (
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// ParameterInfo describes one parameter of a reflected callable.
type ParameterInfo struct {
	Name       string
	ClassType  string // "" unless the parameter's type is a single class/interface
	Nullable   bool
	HasDefault bool
	Variadic   bool
	ArrayType  bool // parameter accepts a list (used by the §4.2 array-autowiring branch)
	Union      bool
	Intersection bool
}

// MethodInfo describes one reflected callable: a constructor, a method, or
// a free function.
type MethodInfo struct {
	Name       string
	Public     bool
	Static     bool
	FromTrait  bool // defined on an embedded type; rejected by the resolver unless Static, per spec.md §4.1
	Parameters []ParameterInfo
	ReturnType string // "" unless the return type is a single class/interface
}

// TypeUniverse is a read-only view of the host's class, interface,
// function and enum universe (spec.md §2 item 1). The resolver depends on
// this interface exclusively through Resolver; ReflectUniverse below is
// the reference implementation backed by Go's reflect package.
type TypeUniverse interface {
	ClassExists(name string) bool
	InterfaceExists(name string) bool
	IsAbstract(class string) bool
	IsInstanceOf(class, ancestor string) bool
	Constructor(class string) (MethodInfo, bool)
	Method(class, name string) (MethodInfo, bool)
	Function(name string) (MethodInfo, bool)
	Constant(class, name string) (interface{}, bool)
	EnumCase(class, name string) (interface{}, bool)
	// ArrayElementHint recovers the doc-comment-declared element class
	// for an array-typed parameter at position paramIndex (spec.md §4.2
	// point 4: "@param Class[] $name"). Go reflection erases a slice
	// parameter's element type to "interface{}" in exactly the cases
	// this hint exists to cover, and carries no parameter names at all,
	// so lookup is positional. The reference implementation recovers the
	// hint from source via LoadArrayHintsFromSource, consulted
	// automatically by Constructor/Method/Function wherever the
	// reflected element type didn't resolve to a registered class.
	ArrayElementHint(class, method string, paramIndex int) (string, bool)
}

// ReflectUniverse is a TypeUniverse backed by registrations over Go's
// reflect package, generalizing the teacher's pervasive reflect-based type
// inspection (reflect.go, registry.go) from "is this a pointer" checks to
// full constructor/method/function signature reflection.
type ReflectUniverse struct {
	mu           sync.RWMutex
	classes      map[string]reflect.Type
	interfaces   map[string]reflect.Type
	typeNames    map[reflect.Type]string
	abstract     map[string]bool
	constructors map[string]reflect.Value
	methods      map[string]reflect.Value // key "class.method"
	functions    map[string]reflect.Value
	constants    map[string]interface{}   // key "class.NAME"
	enumCases    map[string]interface{}   // key "class.CASE"
	arrayHints   map[string]string        // key "class.method.index"
	nonPublic    map[string]bool          // key "class.method"
	fromTrait    map[string]bool          // key "class.method"
}

// NewReflectUniverse creates an empty ReflectUniverse. Use the Register*
// methods to populate the class universe before resolving.
func NewReflectUniverse() *ReflectUniverse {
	return &ReflectUniverse{
		classes:      make(map[string]reflect.Type),
		interfaces:   make(map[string]reflect.Type),
		typeNames:    make(map[reflect.Type]string),
		abstract:     make(map[string]bool),
		constructors: make(map[string]reflect.Value),
		methods:      make(map[string]reflect.Value),
		functions:    make(map[string]reflect.Value),
		constants:    make(map[string]interface{}),
		enumCases:    make(map[string]interface{}),
		arrayHints:   make(map[string]string),
		nonPublic:    make(map[string]bool),
		fromTrait:    make(map[string]bool),
	}
}

func elemType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// RegisterClass declares a concrete class by name. sample is any value (or
// pointer to a value) of the underlying Go type.
func (u *ReflectUniverse) RegisterClass(name string, sample interface{}) {
	t := elemType(sample)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.classes[name] = t
	u.typeNames[t] = name
}

// RegisterInterface declares an interface by name, e.g.
// RegisterInterface("Reader", (*io.Reader)(nil)).
func (u *ReflectUniverse) RegisterInterface(name string, ifacePtr interface{}) {
	t := reflect.TypeOf(ifacePtr).Elem()
	u.mu.Lock()
	defer u.mu.Unlock()
	u.interfaces[name] = t
	u.typeNames[t] = name
}

// RegisterAbstract marks a registered class as abstract/non-instantiable.
func (u *ReflectUniverse) RegisterAbstract(name string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.abstract[name] = true
}

// RegisterConstructor registers class's constructor function. ctor must be
// a func whose return values are (class-or-pointer-to-class[, error]).
func (u *ReflectUniverse) RegisterConstructor(class string, ctor interface{}) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.constructors[class] = reflect.ValueOf(ctor)
}

// RegisterMethod registers a method fn, keyed by class and method name. fn
// must be a func whose first parameter is the receiver.
func (u *ReflectUniverse) RegisterMethod(class, name string, fn interface{}) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.methods[class+"."+name] = reflect.ValueOf(fn)
}

// RegisterFunction registers a free function by name.
func (u *ReflectUniverse) RegisterFunction(name string, fn interface{}) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.functions[name] = reflect.ValueOf(fn)
}

// RegisterConstant registers the value of Class::NAME.
func (u *ReflectUniverse) RegisterConstant(class, name string, value interface{}) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.constants[class+"."+name] = value
}

// RegisterEnumCase registers the value of Class::CASE.
func (u *ReflectUniverse) RegisterEnumCase(class, name string, value interface{}) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.enumCases[class+"."+name] = value
}

// RegisterArrayHint records the doc-comment-declared element class for the
// array-typed parameter at paramIndex of class.method, directly (see
// LoadArrayHintsFromSource for recovering these from Go source instead).
func (u *ReflectUniverse) RegisterArrayHint(class, method string, paramIndex int, elemClass string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.arrayHints[arrayHintKey(class, method, paramIndex)] = elemClass
}

func arrayHintKey(class, method string, paramIndex int) string {
	return class + "." + method + "." + strconv.Itoa(paramIndex)
}

// MarkNonPublic marks class.method as non-public (spec.md §4.1: resolution
// rejects calls to non-public methods).
func (u *ReflectUniverse) MarkNonPublic(class, method string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.nonPublic[class+"."+method] = true
}

// MarkFromTrait marks class.method as defined on an embedded
// (trait-equivalent) field, for the non-static-trait-method rejection in
// spec.md §4.1.
func (u *ReflectUniverse) MarkFromTrait(class, method string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.fromTrait[class+"."+method] = true
}

//-----------------------------------------------
// TypeUniverse implementation
//-----------------------------------------------

func (u *ReflectUniverse) ClassExists(name string) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	_, ok := u.classes[name]
	return ok
}

func (u *ReflectUniverse) InterfaceExists(name string) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	_, ok := u.interfaces[name]
	return ok
}

func (u *ReflectUniverse) IsAbstract(class string) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.abstract[class]
}

func (u *ReflectUniverse) IsInstanceOf(class, ancestor string) bool {
	if class == ancestor {
		return true
	}
	u.mu.RLock()
	defer u.mu.RUnlock()
	ct, ok := u.classes[class]
	if !ok {
		return false
	}
	if it, ok := u.interfaces[ancestor]; ok {
		if ct.Implements(it) {
			return true
		}
		if reflect.PointerTo(ct).Implements(it) {
			return true
		}
	}
	if at, ok := u.classes[ancestor]; ok {
		return ct == at
	}
	return false
}

func (u *ReflectUniverse) Constructor(class string) (MethodInfo, bool) {
	u.mu.RLock()
	fn, ok := u.constructors[class]
	u.mu.RUnlock()
	if !ok {
		return MethodInfo{}, false
	}
	return u.methodInfoFromFunc(class, "__construct", fn, false), true
}

func (u *ReflectUniverse) Method(class, name string) (MethodInfo, bool) {
	u.mu.RLock()
	fn, ok := u.methods[class+"."+name]
	nonPublic := u.nonPublic[class+"."+name]
	fromTrait := u.fromTrait[class+"."+name]
	u.mu.RUnlock()
	if !ok {
		return MethodInfo{}, false
	}
	info := u.methodInfoFromFunc(class, name, fn, true)
	info.Public = !nonPublic
	info.FromTrait = fromTrait
	return info, true
}

func (u *ReflectUniverse) Function(name string) (MethodInfo, bool) {
	u.mu.RLock()
	fn, ok := u.functions[name]
	u.mu.RUnlock()
	if !ok {
		return MethodInfo{}, false
	}
	return u.methodInfoFromFunc("", name, fn, false), true
}

func (u *ReflectUniverse) Constant(class, name string) (interface{}, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	v, ok := u.constants[class+"."+name]
	return v, ok
}

func (u *ReflectUniverse) EnumCase(class, name string) (interface{}, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	v, ok := u.enumCases[class+"."+name]
	return v, ok
}

func (u *ReflectUniverse) ArrayElementHint(class, method string, paramIndex int) (string, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	v, ok := u.arrayHints[arrayHintKey(class, method, paramIndex)]
	return v, ok
}

// methodInfoFromFunc reflects a registered func into a MethodInfo.
// skipReceiver drops the first parameter (the method's receiver). class is
// the registered owner ("" for a free function) used both for return-type
// lookup and, together with name and the parameter's declared position, to
// fall back to a registered ArrayElementHint when reflection alone can't
// recover an array parameter's element class (spec.md §4.2 point 4).
func (u *ReflectUniverse) methodInfoFromFunc(class, name string, fn reflect.Value, skipReceiver bool) MethodInfo {
	t := fn.Type()
	info := MethodInfo{Name: name, Public: true}
	start := 0
	if skipReceiver && t.NumIn() > 0 {
		start = 1
	}
	paramIndex := 0
	for i := start; i < t.NumIn(); i++ {
		pt := t.In(i)
		variadic := t.IsVariadic() && i == t.NumIn()-1
		p := u.parameterInfo(pt, variadic)
		if p.ArrayType && p.ClassType == "" {
			if hint, ok := u.ArrayElementHint(class, name, paramIndex); ok {
				p.ClassType = hint
			}
		}
		info.Parameters = append(info.Parameters, p)
		paramIndex++
	}
	// return type: last non-error result, if it maps to a registered
	// class or interface.
	for i := t.NumOut() - 1; i >= 0; i-- {
		rt := t.Out(i)
		if rt == errorType {
			continue
		}
		rt = derefClassType(rt)
		if name, ok := u.typeNames[rt]; ok {
			info.ReturnType = name
		}
		break
	}
	return info
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func derefClassType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func (u *ReflectUniverse) parameterInfo(t reflect.Type, variadic bool) ParameterInfo {
	p := ParameterInfo{Variadic: variadic}
	if variadic {
		t = t.Elem()
	}
	nullable := t.Kind() == reflect.Ptr
	ct := derefClassType(t)
	if ct.Kind() == reflect.Slice || ct.Kind() == reflect.Array {
		p.ArrayType = true
		ct = derefClassType(ct.Elem())
	}
	if name, ok := u.typeNames[ct]; ok {
		p.ClassType = name
	}
	p.Nullable = nullable
	return p
}

//-----------------------------------------------
// doc-comment array hint recovery (spec.md §4.2 point 4 / DESIGN.md open question)
//-----------------------------------------------

// LoadArrayHintsFromSource parses path, finds the declaration of funcName,
// and recovers "// paramName elem: Class" doc-comment hints of the form:
//
//	// NewManager constructs a Manager.
//	// handlers elem: Handler
//	func NewManager(handlers []interface{}) *Manager { ... }
//
// registering each as an ArrayElementHint for class.method at the
// parameter's declared position. class and method are the keys the
// embedder already used to register funcName with RegisterConstructor/
// RegisterMethod/RegisterFunction (they're unrelated to funcName whenever,
// as above, a constructor function's Go name differs from its registered
// class). This is the Go-idiomatic stand-in for PHP's "@param Class[]
// $name" doc-comment convention (spec.md §4.2 point 4): reflection erases
// a slice parameter declared as []interface{} down to no element type at
// all, so the hint can only be recovered from source, once, ahead of
// resolution.
func (u *ReflectUniverse) LoadArrayHintsFromSource(path, class, method, funcName string) error {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return err
	}
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Name.Name != funcName || fn.Doc == nil {
			continue
		}
		index := paramNameIndex(fn.Type.Params)
		for _, line := range fn.Doc.List {
			text := strings.TrimSpace(strings.TrimPrefix(line.Text, "//"))
			param, elem, ok := parseElemHint(text)
			if !ok {
				continue
			}
			if i, ok := index[param]; ok {
				u.RegisterArrayHint(class, method, i, elem)
			}
		}
		return nil
	}
	return nil
}

// paramNameIndex maps each declared parameter name to its positional index,
// the way Go source (unlike Go reflect.Type) still carries parameter names.
func paramNameIndex(fields *ast.FieldList) map[string]int {
	index := map[string]int{}
	if fields == nil {
		return index
	}
	i := 0
	for _, field := range fields.List {
		if len(field.Names) == 0 {
			i++
			continue
		}
		for _, n := range field.Names {
			index[n.Name] = i
			i++
		}
	}
	return index
}

func parseElemHint(line string) (param, elem string, ok bool) {
	const marker = " elem: "
	idx := strings.Index(line, marker)
	if idx <= 0 {
		return "", "", false
	}
	param = strings.TrimSpace(line[:idx])
	elem = strings.TrimSpace(line[idx+len(marker):])
	if param == "" || elem == "" || strings.ContainsAny(param, " \t") {
		return "", "", false
	}
	return param, elem, true
}
