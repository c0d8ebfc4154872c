package tool

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/casualjim/hoot/pkg/reflectx"
	"github.com/casualjim/hoot/pkg/stdx"
	"github.com/fogfish/opts"
	"github.com/invopop/jsonschema"
	validator "github.com/santhosh-tekuri/jsonschema/v5"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	// ErrNotFunction is returned when a tool is built from a non-function value.
	ErrNotFunction = errors.New("tool: provided value is not a function")
	// ErrInvalidArguments is returned when call arguments do not satisfy the
	// tool's declared parameters.
	ErrInvalidArguments = errors.New("tool: invalid arguments")
)

// Definition describes a callable tool: its name, what it does, the names of
// its parameters and the Go function backing it.
//
// Parameters maps positional keys ("param0", "param1", ...) to argument names.
// A context.Context parameter is injected at call time and does not count as
// a position.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]string
	Function    any

	schema *validator.Schema
}

var functionReflector = jsonschema.Reflector{
	AllowAdditionalProperties: true,
	DoNotReference:            true,
}

// ToNameAndSchema returns the tool name and the JSON schema of its argument
// object, as sent to providers in the request's tool list.
func (td Definition) ToNameAndSchema() (string, *jsonschema.Schema) {
	return td.Name, parameterSchema(&functionReflector, td)
}

func parameterSchema(reflector *jsonschema.Reflector, td Definition) *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: orderedmap.New[string, *jsonschema.Schema](),
	}

	typ := reflect.TypeOf(td.Function)
	if typ == nil || typ.Kind() != reflect.Func {
		return schema
	}

	var required []string
	for i, paramType := range td.parameterTypes() {
		name := td.parameterName(i)
		propSchema := reflector.ReflectFromType(paramType)
		propSchema.Version = ""
		schema.Properties.Set(name, propSchema)
		required = append(required, name)
	}
	if len(required) > 0 {
		schema.Required = required
	}
	return schema
}

// parameterTypes returns the argument types decoded from the call arguments,
// which excludes injected contexts.
func (td Definition) parameterTypes() []reflect.Type {
	typ := reflect.TypeOf(td.Function)
	if typ == nil || typ.Kind() != reflect.Func {
		return nil
	}
	var out []reflect.Type
	for i := range typ.NumIn() {
		if reflectx.IsContext(typ.In(i)) {
			continue
		}
		out = append(out, typ.In(i))
	}
	return out
}

func (td Definition) parameterName(pos int) string {
	key := fmt.Sprintf("param%d", pos)
	if name, ok := td.Parameters[key]; ok && name != "" {
		return name
	}
	return key
}

// Option configures a Definition.
type Option = opts.Option[Definition]

// Must is New that panics on error, for tools declared at init time.
func Must(f any, options ...Option) Definition {
	return stdx.Must1(New(f, options...))
}

// New builds a Definition for the function f. When no Name option is given
// the function name is used.
//
//	weather := tool.Must(getWeather,
//		tool.Name("get_weather"),
//		tool.Description("Current weather for a city"),
//		tool.Parameters("city"),
//	)
func New(f any, options ...Option) (Definition, error) {
	if !reflectx.IsFunction(f) {
		return Definition{}, ErrNotFunction
	}
	typ := reflect.TypeOf(f)
	if typ.IsVariadic() {
		return Definition{}, fmt.Errorf("tool: variadic functions are not supported: %s", typ)
	}

	var def Definition
	if err := opts.Apply(&def, options); err != nil {
		return Definition{}, err
	}
	if def.Name == "" {
		def.Name = reflectx.FunctionName(f)
	}
	def.Function = f
	return def, nil
}

// Name sets the tool name advertised to the model.
var Name = opts.ForName[Definition, string]("Name")

// Description sets the tool description advertised to the model.
var Description = opts.ForName[Definition, string]("Description")

// Parameters names the function parameters in order, skipping any
// context.Context parameter.
func Parameters(parameters ...string) Option {
	return opts.Type[Definition](func(o *Definition) error {
		o.Parameters = make(map[string]string, len(parameters))
		for i, p := range parameters {
			o.Parameters[fmt.Sprintf("param%d", i)] = p
		}
		return nil
	})
}
