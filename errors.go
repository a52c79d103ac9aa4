package resolver

import (
	"bytes"
	"fmt"
	"reflect"
	"regexp"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCode distinguishes the failure kinds a ServiceCreationError can carry.
type ErrorCode int

const (
	ErrCircularReference ErrorCode = iota
	ErrUnknownServiceType
	ErrClassNotFound
	ErrClassIsAbstract
	ErrNonPublicConstructor
	ErrUnexpectedConstructorArgs
	ErrMethodNotCallable
	ErrFunctionNotFound
	ErrBadEntityName
	ErrArgumentMismatch
	ErrIntersectionTypeUnsupported
	ErrUnionWithoutDefault
	ErrUnresolvedDependency
)

// ServiceCreationError is raised by resolveDefinition, completeDefinition and
// completeStatement. Its message is annotated, not replaced, as it
// propagates: the annotation only ever happens once per boundary (see
// completeException and appendRelated).
type ServiceCreationError struct {
	Code    ErrorCode
	Message string
	Inner   error
	File    string
	LineNo  int
	Method  string
}

func (e *ServiceCreationError) Error() string {
	var b bytes.Buffer
	b.WriteString(e.Message)
	if e.Inner != nil {
		b.WriteRune('\n')
		b.WriteString(e.Inner.Error())
	}
	return b.String()
}

func (e *ServiceCreationError) Unwrap() error { return e.Inner }

// MissingServiceError is raised when a reference by type can't be satisfied,
// either because nothing is registered or because the only candidate is the
// current service and self-injection isn't allowed at this call site.
type MissingServiceError struct {
	Type    string
	Message string
}

func (e *MissingServiceError) Error() string { return e.Message }

// NotAllowedDuringResolvingError is raised by a Builder.GetByType
// implementation when it cannot yet answer a by-type lookup during Phase 1
// (the type graph isn't fully known). normalizeReference treats this as
// "revisit later", not as a hard failure.
type NotAllowedDuringResolvingError struct {
	Type string
}

func (e *NotAllowedDuringResolvingError) Error() string {
	return fmt.Sprintf("resolver: type %q can't be resolved during Phase 1 yet", e.Type)
}

//-----------------------------------------------
// constructors
//-----------------------------------------------

func newServiceCreationError(code ErrorCode, message string) *ServiceCreationError {
	method, file, lineNo := getCaller()
	return &ServiceCreationError{Code: code, Message: message, File: file, LineNo: lineNo, Method: method}
}

func errCircularReference(names []string) error {
	return newServiceCreationError(ErrCircularReference,
		fmt.Sprintf("Circular reference detected for services: %s.", strings.Join(names, ", ")))
}

func errUnknownServiceType(descriptor string) error {
	return newServiceCreationError(ErrUnknownServiceType,
		fmt.Sprintf("Type of service %s is unknown.", descriptor))
}

func errClassNotFound(class string) error {
	return newServiceCreationError(ErrClassNotFound,
		fmt.Sprintf("Class %s doesn't exist.", class))
}

func errInterfaceUsedAsClass(class string) error {
	return newServiceCreationError(ErrClassNotFound,
		fmt.Sprintf("Class %s doesn't exist, did you mean 'implement'?", class))
}

func errClassIsAbstract(class string) error {
	return newServiceCreationError(ErrClassIsAbstract,
		fmt.Sprintf("Class %s is abstract and can't be instantiated.", class))
}

func errNonPublicConstructor(class string) error {
	return newServiceCreationError(ErrNonPublicConstructor,
		fmt.Sprintf("Constructor of class %s isn't public.", class))
}

func errUnexpectedConstructorArgs(class string) error {
	return newServiceCreationError(ErrUnexpectedConstructorArgs,
		fmt.Sprintf("Unable to pass arguments, class %s has no constructor.", class))
}

func errMethodNotCallable(class, member string) error {
	return newServiceCreationError(ErrMethodNotCallable,
		fmt.Sprintf("Method %s::%s() isn't callable.", class, member))
}

func errFunctionNotFound(name string) error {
	return newServiceCreationError(ErrFunctionNotFound,
		fmt.Sprintf("Function %s() doesn't exist.", name))
}

func errBadEntityName(member string) error {
	return newServiceCreationError(ErrBadEntityName,
		fmt.Sprintf("Expected function, method or property name, %q given.", member))
}

func errArgumentMismatch(message string) error {
	return newServiceCreationError(ErrArgumentMismatch, message)
}

func errIntersectionTypeUnsupported(param string) error {
	return newServiceCreationError(ErrIntersectionTypeUnsupported,
		fmt.Sprintf("Parameter $%s has an intersection type and must be specified.", param))
}

func errUnionWithoutDefault(param string) error {
	return newServiceCreationError(ErrUnionWithoutDefault,
		fmt.Sprintf("Parameter $%s has a union type and no default value, it must be specified.", param))
}

func errUnresolvedDependency(message string) error {
	return newServiceCreationError(ErrUnresolvedDependency, message)
}

func errMissingService(typ string) error {
	return &MissingServiceError{
		Type:    typ,
		Message: fmt.Sprintf("Service of type %s needed by $this is not allowed to reference itself.", typ),
	}
}

func errNotAllowedDuringResolving(typ string) error {
	return &NotAllowedDuringResolvingError{Type: typ}
}

//-----------------------------------------------
// placeholder / expand errors (InvalidArgumentException per spec.md §7)
//-----------------------------------------------

// PlaceholderError is raised by expand when a %placeholder% can't be
// resolved, when a concatenation mixes in a non-scalar value, or when
// recursive expansion detects a placeholder cycle.
type PlaceholderError struct {
	Message string
}

func (e *PlaceholderError) Error() string { return e.Message }

func errParameterPlaceholderMissing(name string) error {
	return &PlaceholderError{Message: fmt.Sprintf("Missing parameter %q.", name)}
}

func errNonScalarConcat() error {
	return &PlaceholderError{Message: "Unable to concatenate a non-scalar value into a string."}
}

func errCircularPlaceholder(names []string) error {
	return &PlaceholderError{Message: fmt.Sprintf("Circular reference detected for parameters: %s.", strings.Join(names, ", "))}
}

//-----------------------------------------------
// phase-boundary annotation
//-----------------------------------------------

// completeException wraps err with the definition's descriptor, exactly
// once. Idempotent: a message that already starts with "[Service " is
// passed through unchanged, matching spec.md §7's idempotency guard.
func completeException(err error, def Definition) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.HasPrefix(msg, "[Service ") {
		return err
	}
	return errors.Errorf("[%s]\n%s", def.Descriptor(), stripFullyQualifiedPrefixes(msg))
}

// appendRelated appends a "Related to ..." suffix to err's message, unless
// one is already present. Used by completeStatement (spec.md §4.1 step 5).
func appendRelated(err error, entity Entity, inSetup bool) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "\nRelated to") {
		return err
	}
	related := "Related to " + entityToString(entity, false)
	if inSetup {
		related += " in setup"
	}
	return errors.Errorf("%s\n%s", msg, related)
}

var fqClassPrefixRe = regexp.MustCompile(`(?:[\w./-]+[.\\])+(\w+::)`)

// stripFullyQualifiedPrefixes removes the fully qualified namespace/package
// prefix from "Pkg\Nested\ClassName::method" style substrings so diagnostic
// messages read as "ClassName::method", mirroring spec.md §7.
func stripFullyQualifiedPrefixes(msg string) string {
	return fqClassPrefixRe.ReplaceAllString(msg, "$1")
}

//-----------------------------------------------
// caller capture (mirrors the teacher's errors.go getCaller helper)
//-----------------------------------------------

var pkgName = reflect.TypeOf(Reference{}).PkgPath()

func getCaller() (method, file string, lineNo int) {
	for i := 2; ; i++ {
		pc, f, ln, ok := runtime.Caller(i)
		if !ok {
			break
		}
		name := runtime.FuncForPC(pc).Name()
		file, lineNo = f, ln
		if !strings.HasPrefix(name, pkgName) {
			method = name
			break
		}
		method = name
	}
	return
}
