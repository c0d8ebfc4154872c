package reflectx

import (
	"context"
	"reflect"
	"runtime"
	"strings"
)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

func IsFunction(fn any) bool {
	if fn == nil {
		return false
	}
	return reflect.TypeOf(fn).Kind() == reflect.Func
}

// FunctionName derives a tool name from a function value. Named function
// types use their type name, everything else the runtime symbol name without
// package path and the "-fm" suffix of method values.
func FunctionName(fn any) string {
	if !IsFunction(fn) {
		return ""
	}

	val := reflect.ValueOf(fn)
	typ := val.Type()
	if typ.Name() != "" {
		return typ.String()
	}

	rf := runtime.FuncForPC(val.Pointer())
	if rf == nil {
		return typ.String()
	}
	name := rf.Name()
	if lastDot := strings.LastIndex(name, "."); lastDot >= 0 {
		name = name[lastDot+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}

// IsContext reports whether t is context.Context. Tool functions may take a
// context as any parameter; it is injected rather than decoded from arguments.
func IsContext(t reflect.Type) bool {
	return t == contextType
}

// IsError reports whether t is the error interface.
func IsError(t reflect.Type) bool {
	return t == errorType
}
