package tool

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
	validator "github.com/santhosh-tekuri/jsonschema/v5"
)

// compile turns the reflected parameter schema into a validator.
func (td Definition) compile() (*validator.Schema, error) {
	_, schema := td.ToNameAndSchema()
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("tool %s: marshal schema: %w", td.Name, err)
	}

	const url = "schema.json"
	c := validator.NewCompiler()
	c.Draft = validator.Draft2020
	if err := c.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("tool %s: add schema: %w", td.Name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("tool %s: compile schema: %w", td.Name, err)
	}
	return compiled, nil
}

// Validate checks decoded arguments against the tool's parameter schema.
// Definitions that did not come from a Registry have no compiled schema and
// accept anything; raw text arguments are left to the call itself.
func (td Definition) Validate(args any) error {
	if td.schema == nil {
		return nil
	}
	if _, isText := args.(string); isText {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}

	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidArguments, td.Name, err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidArguments, td.Name, err)
	}
	if err := td.schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidArguments, td.Name, err)
	}
	return nil
}
