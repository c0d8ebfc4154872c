package jsonx

import (
	"strings"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// ToDynamicJSON converts a Go value into its generic JSON object form by
// encoding and decoding it. Values that do not encode to an object fail.
func ToDynamicJSON(val any) (map[string]any, error) {
	b, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	result := make(map[string]any)
	if err := json.Unmarshal(b, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ParseValue decodes raw when it is a complete JSON document and reports
// whether it did. Invalid or truncated text is returned unchanged with false.
// Surrounding whitespace is ignored; an empty document is not valid.
func ParseValue(raw string) (any, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || !gjson.Valid(trimmed) {
		return raw, false
	}
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return raw, false
	}
	return v, true
}

// Stringify renders v as compact JSON. Strings are returned as is so tool
// results that already are text are not quoted twice.
func Stringify(v any) (string, error) {
	switch vv := v.(type) {
	case nil:
		return "", nil
	case string:
		return vv, nil
	case []byte:
		return string(vv), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
