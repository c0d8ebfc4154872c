package lorem

import (
	"github.com/invopop/jsonschema"
)

// sample makes up a value that satisfies schema. Strings are lorem words,
// numbers are small and every declared property is filled in.
func (t *Transport) sample(schema *jsonschema.Schema) any {
	if schema == nil {
		return nil
	}
	if len(schema.Enum) > 0 {
		return schema.Enum[0]
	}
	if schema.Const != nil {
		return schema.Const
	}

	switch schema.Type {
	case "string":
		return t.formatted(schema.Format)
	case "integer":
		return 7
	case "number":
		return 2.5
	case "boolean":
		return true
	case "array":
		if schema.Items == nil {
			return []any{}
		}
		return []any{t.sample(schema.Items)}
	case "object", "":
		obj := map[string]any{}
		if schema.Properties == nil {
			return obj
		}
		for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
			obj[pair.Key] = t.sample(pair.Value)
		}
		return obj
	default:
		return nil
	}
}

func (t *Transport) formatted(format string) string {
	switch format {
	case "date-time":
		return "2024-01-02T03:04:05Z"
	case "date":
		return "2024-01-02"
	case "time":
		return "03:04:05Z"
	case "email":
		return t.word() + "@example.com"
	case "uri":
		return "https://example.com/" + t.word()
	default:
		return t.word()
	}
}
