package jsonrpc2

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"unicode"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"
)

var typeOfError = reflect.TypeOf((*error)(nil)).Elem()
var typeOfContext = reflect.TypeOf((*context.Context)(nil)).Elem()
var typeOfNamed = reflect.TypeOf(map[string]interface{}(nil))

// ErrMethodNotAccessible is returned when calling a method that exists on the
// receiver but can't be called remotely.
var ErrMethodNotAccessible = errors.New("Called method is not publicly accessible.")

// ErrTooFewParams is returned when fewer arguments are supplied than the
// method requires.
var ErrTooFewParams = errors.New("Too few parameters passed.")

// PanicError is returned when a called method panics.
type PanicError struct {
	Method string
	Value  interface{}
}

func (err PanicError) Error() string {
	return fmt.Sprintf("%v", err.Value)
}

// methodArgTypes returns the arg types and whether all the types are valid
// (exported or builtin).
func methodArgTypes(methodType reflect.Type) (argTypes []reflect.Type, hasCtx bool, ok bool) {
	argNum := methodType.NumIn()
	argTypes = make([]reflect.Type, 0, argNum-1)
	argPos := 1 // Skip receiver
	for ; argPos < argNum; argPos++ {
		argType := methodType.In(argPos)
		if !isExportedOrBuiltin(argType) {
			return nil, hasCtx, false
		}
		if argPos == 1 && argType == typeOfContext {
			hasCtx = true
			continue
		}
		argTypes = append(argTypes, argType)
	}
	return argTypes, hasCtx, true
}

// methodErrPos returns the return value index position of an error type for
// supported return layouts: (), (interface{}), (error), (interface{}, error)
func methodErrPos(methodType reflect.Type) (int, bool) {
	switch methodType.NumOut() {
	case 0:
		return -1, true
	case 1:
		if methodType.Out(0) == typeOfError {
			// Single error return value
			return 0, true
		}
		// Single non-error return value
		return -1, true
	case 2:
		if methodType.Out(1) == typeOfError {
			// Two return values, one error type
			return 1, true
		}
		// Two return values, no error type, unsupported.
		return -1, false
	}
	return -1, false
}

// Methods returns a mapping of method names to Method definitions for a
// instance's receiver. Methods that take unexported argument types are
// included but marked Hidden.
func Methods(receiver interface{}) (map[string]Method, error) {
	if receiver == nil {
		return nil, errors.New("receiver must not be nil")
	}
	kind := reflect.TypeOf(receiver)
	val := reflect.ValueOf(receiver)
	if name := reflect.Indirect(val).Type().Name(); !isExported(name) {
		return nil, fmt.Errorf("receiver must be exported: %s", name)
	}

	methods := map[string]Method{}
	for i := 0; i < kind.NumMethod(); i++ {
		method := kind.Method(i)
		if method.PkgPath != "" {
			// Skip unexported methods
			continue
		}

		// Load arg types (skip first arg, the receiver)
		argTypes, hasCtx, ok := methodArgTypes(method.Type)
		if !ok {
			methods[method.Name] = Method{
				Receiver: val,
				Method:   method,
				Hidden:   true,
			}
			continue
		}

		// Find ErrPos, if any.
		errPos, ok := methodErrPos(method.Type)
		if !ok {
			return nil, fmt.Errorf("unsupported return values in method: %s", method.Name)
		}

		methods[method.Name] = Method{
			Receiver: val,
			Method:   method,
			ArgTypes: argTypes,
			ErrPos:   errPos,
			HasCtx:   hasCtx,
		}
	}

	return methods, nil
}

// MethodByName returns a single Method definition of a receiver.
func MethodByName(receiver interface{}, name string) (*Method, error) {
	methods, err := Methods(receiver)
	if err != nil {
		return nil, err
	}
	m, ok := methods[name]
	if !ok {
		return nil, fmt.Errorf("method not found: %s", name)
	}
	return &m, nil
}

// Method is the definition of a callable method.
type Method struct {
	Receiver reflect.Value
	Method   reflect.Method
	ArgTypes []reflect.Type
	ErrPos   int
	HasCtx   bool

	// Hidden methods are known but can't be called.
	Hidden bool
}

func (m *Method) isVariadic() bool {
	return m.Method.Type != nil && m.Method.Type.IsVariadic()
}

// NumRequired returns the number of arguments a caller must supply. The
// context and a trailing variadic argument are not required.
func (m *Method) NumRequired() int {
	n := len(m.ArgTypes)
	if m.isVariadic() {
		n--
	}
	return n
}

// argType returns the type to decode the i'th supplied argument into, or nil
// if the method takes no such argument.
func (m *Method) argType(i int) reflect.Type {
	fixed := m.NumRequired()
	if i < fixed {
		return m.ArgTypes[i]
	}
	if m.isVariadic() {
		return m.ArgTypes[len(m.ArgTypes)-1].Elem()
	}
	return nil
}

// CallParams binds params to the method's arguments and calls it.
//
// Positional params are decoded into the arguments in order, surplus values
// beyond the declared arguments are ignored unless the method is variadic.
// Named params are passed as a single aggregate argument: the name to value
// mapping itself, converted to the first argument's type. They are not spread
// across multiple arguments.
func (m *Method) CallParams(ctx context.Context, params Params) (interface{}, error) {
	if m.Hidden {
		return nil, ErrMethodNotAccessible
	}
	n, err := params.Len()
	if err != nil {
		return nil, invalidParams(err)
	}
	if m.NumRequired() > n {
		return nil, ErrTooFewParams
	}

	var args []reflect.Value
	switch params.Kind {
	case PositionalParams:
		values, err := params.Positional()
		if err != nil {
			return nil, invalidParams(err)
		}
		for i, raw := range values {
			t := m.argType(i)
			if t == nil {
				break
			}
			arg := reflect.New(t)
			if err := json.Unmarshal(raw, arg.Interface()); err != nil {
				return nil, invalidParams(fmt.Errorf("argument %d: %s", i, err))
			}
			args = append(args, arg.Elem())
		}
	case NamedParams:
		t := m.argType(0)
		if t == nil {
			break
		}
		named, err := params.Named()
		if err != nil {
			return nil, invalidParams(err)
		}
		arg, err := bindNamed(named, t)
		if err != nil {
			return nil, invalidParams(err)
		}
		args = append(args, arg)
	}
	return m.Call(ctx, args)
}

// bindNamed converts the aggregate of named params into a value of type t.
func bindNamed(named map[string]interface{}, t reflect.Type) (reflect.Value, error) {
	if typeOfNamed.AssignableTo(t) {
		return reflect.ValueOf(named).Convert(t), nil
	}
	arg := reflect.New(t)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      arg.Interface(),
		ErrorUnused: false,
	})
	if err != nil {
		return reflect.Value{}, err
	}
	if err := decoder.Decode(named); err != nil {
		return reflect.Value{}, err
	}
	return arg.Elem(), nil
}

func invalidParams(err error) *ErrResponse {
	return newErrResponse(ErrCodeInvalidParams, fmt.Sprintf("Invalid params: %s", err))
}

// Call executes the method with the given arguments. A panic in the method is
// recovered and returned as a PanicError.
func (m *Method) Call(ctx context.Context, args []reflect.Value) (result interface{}, err error) {
	if m.Hidden {
		return nil, ErrMethodNotAccessible
	}
	if len(args) < m.NumRequired() || (!m.isVariadic() && len(args) > len(m.ArgTypes)) {
		return nil, fmt.Errorf("invalid number of args: expected %d, got %d", len(m.ArgTypes), len(args))
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Warningf("Recovered panic in %s: %v", m.Method.Name, r)
			result, err = nil, PanicError{Method: m.Method.Name, Value: r}
		}
	}()

	arguments := []reflect.Value{m.Receiver}
	if m.HasCtx {
		if ctx == nil {
			ctx = context.Background()
		}
		arguments = append(arguments, reflect.ValueOf(ctx))
	}
	if len(args) > 0 {
		arguments = append(arguments, args...)
	}

	reply := m.Method.Func.Call(arguments)

	// Are there any return values?
	if len(reply) == 0 {
		return nil, nil
	}
	// Is there an error return value?
	if m.ErrPos >= 0 && !reply[m.ErrPos].IsNil() {
		return nil, reply[m.ErrPos].Interface().(error)
	}
	if m.ErrPos == 0 {
		// Only an error was returned, and it was nil.
		return nil, nil
	}

	// All is good, assume the first result is what we want to return
	// This supports (res), (res, err)
	return reply[0].Interface(), nil
}

func isExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

// isExportedOrBuiltin reports whether t is exported or builtin. Unnamed
// pointer, slice, array and map types are checked by their element types.
func isExportedOrBuiltin(t reflect.Type) bool {
	if t.Name() != "" {
		// PkgPath is set for exported named types too, so check the name.
		return isExported(t.Name()) || t.PkgPath() == ""
	}
	switch t.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Array:
		return isExportedOrBuiltin(t.Elem())
	case reflect.Map:
		return isExportedOrBuiltin(t.Key()) && isExportedOrBuiltin(t.Elem())
	}
	return true
}
