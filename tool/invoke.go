package tool

import (
	"context"
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/casualjim/hoot/pkg/reflectx"
	json "github.com/goccy/go-json"
)

// Call invokes the tool with decoded arguments. args is normally the JSON
// object a model produced; a raw string is accepted when the tool takes a
// single string parameter, which is how unparseable arguments reach a tool.
//
// The first non-error return value becomes the result. A non-nil error
// return is returned as is.
func (td Definition) Call(ctx context.Context, args any) (any, error) {
	if !reflectx.IsFunction(td.Function) {
		return nil, ErrNotFunction
	}
	if err := td.Validate(args); err != nil {
		return nil, err
	}

	callArgs, err := td.buildArgList(ctx, args)
	if err != nil {
		return nil, err
	}

	results := reflect.ValueOf(td.Function).Call(callArgs)
	return unpackResults(results)
}

func (td Definition) buildArgList(ctx context.Context, args any) ([]reflect.Value, error) {
	fn := reflect.TypeOf(td.Function)
	params := td.parameterTypes()

	var named map[string]any
	var rawText *string
	switch a := args.(type) {
	case nil:
	case map[string]any:
		named = a
	case string:
		if len(params) != 1 || params[0].Kind() != reflect.String {
			return nil, fmt.Errorf("%w: %s expects an object, got text %q", ErrInvalidArguments, td.Name, a)
		}
		rawText = &a
	default:
		return nil, fmt.Errorf("%w: %s expects an object, got %T", ErrInvalidArguments, td.Name, args)
	}

	callArgs := make([]reflect.Value, fn.NumIn())
	pos := 0
	for i := range fn.NumIn() {
		paramType := fn.In(i)
		if reflectx.IsContext(paramType) {
			callArgs[i] = reflect.ValueOf(ctx)
			continue
		}

		switch {
		case rawText != nil:
			callArgs[i] = reflect.ValueOf(*rawText).Convert(paramType)
		default:
			v, err := convertArg(named[td.parameterName(pos)], paramType)
			if err != nil {
				return nil, fmt.Errorf("%w: %s.%s: %w", ErrInvalidArguments, td.Name, td.parameterName(pos), err)
			}
			callArgs[i] = v
		}
		pos++
	}
	return callArgs, nil
}

// convertArg turns a decoded JSON value into the parameter's Go type. Values
// that are not directly assignable go through a JSON round trip so that
// numbers, structs and slices decode the way the model encoded them.
func convertArg(value any, target reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(target), nil
	}
	vv := reflect.ValueOf(value)
	if vv.Type().AssignableTo(target) {
		return vv, nil
	}

	b, err := json.Marshal(value)
	if err != nil {
		return reflect.Value{}, err
	}
	ptr := reflect.New(target)
	if err := json.Unmarshal(b, ptr.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return ptr.Elem(), nil
}

func unpackResults(results []reflect.Value) (any, error) {
	var (
		value any
		found bool
	)
	for _, res := range results {
		if reflectx.IsError(res.Type()) {
			if !res.IsNil() {
				return nil, res.Interface().(error)
			}
			continue
		}
		if !found {
			value = res.Interface()
			found = true
		}
	}
	return value, nil
}

// FormatResult renders a tool result as the text sent back to the model.
func FormatResult(v any) (string, error) {
	switch vv := v.(type) {
	case nil:
		return "", nil
	case string:
		return vv, nil
	case []byte:
		return string(vv), nil
	case time.Time:
		return vv.Format(time.RFC3339), nil
	case bool:
		return strconv.FormatBool(vv), nil
	case int, int8, int16, int32, int64:
		return strconv.FormatInt(reflect.ValueOf(vv).Int(), 10), nil
	case uint, uint8, uint16, uint32, uint64:
		return strconv.FormatUint(reflect.ValueOf(vv).Uint(), 10), nil
	case float32, float64:
		return strconv.FormatFloat(reflect.ValueOf(vv).Float(), 'f', -1, 64), nil
	case encoding.TextMarshaler:
		b, err := vv.MarshalText()
		if err != nil {
			return "", fmt.Errorf("tool: format result: %w", err)
		}
		return string(b), nil
	case fmt.Stringer:
		return vv.String(), nil
	default:
		b, err := json.Marshal(vv)
		if err != nil {
			return "", fmt.Errorf("tool: format result: %w", err)
		}
		return string(b), nil
	}
}
