package chunk

import (
	"fmt"

	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var typeTemplates = map[Type][]byte{
	TypeText:       []byte(`{"type":"text"}`),
	TypeThinking:   []byte(`{"type":"thinking"}`),
	TypeToolCall:   []byte(`{"type":"tool_call"}`),
	TypeToolResult: []byte(`{"type":"tool_result"}`),
	TypeMeta:       []byte(`{"type":"meta"}`),
}

// MarshalJSON encodes the chunk with a "type" discriminator and only the
// fields that are set.
func (c Chunk) MarshalJSON() ([]byte, error) {
	tmpl, ok := typeTemplates[c.Type]
	if !ok {
		return nil, fmt.Errorf("chunk: unknown type %q", c.Type)
	}
	result := append([]byte(nil), tmpl...)

	var err error
	set := func(path string, value any) {
		if err != nil {
			return
		}
		result, err = sjson.SetBytes(result, path, value)
	}
	setRaw := func(path string, value any) {
		if err != nil {
			return
		}
		var b []byte
		if b, err = json.Marshal(value); err != nil {
			err = fmt.Errorf("chunk: marshal %s: %w", path, err)
			return
		}
		result, err = sjson.SetRawBytes(result, path, b)
	}

	if c.RunID != uuid.Nil {
		set("run_id", c.RunID.String())
	}
	set("step", c.Step)
	if c.Text != "" {
		set("text", c.Text)
	}
	if len(c.ToolCalls) > 0 {
		setRaw("tool_calls", c.ToolCalls)
	}
	if len(c.ToolResults) > 0 {
		setRaw("tool_results", c.ToolResults)
	}
	if c.FinishReason != "" {
		set("finish_reason", string(c.FinishReason))
	}
	if c.Usage != nil {
		setRaw("usage", c.Usage)
	}
	if c.Meta != nil {
		setRaw("meta", c.Meta)
	}
	if len(c.Additional) > 0 {
		setRaw("additional", c.Additional)
	}
	if !c.Timestamp.IsZero() {
		set("timestamp", c.Timestamp.String())
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UnmarshalJSON decodes a chunk produced by MarshalJSON.
func (c *Chunk) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("chunk: invalid json: %s", data)
	}

	typ := Type(gjson.GetBytes(data, "type").String())
	if _, ok := typeTemplates[typ]; !ok {
		return fmt.Errorf("chunk: missing or unknown type %q", typ)
	}

	var out Chunk
	out.Type = typ

	fields := gjson.GetManyBytes(data,
		"run_id", "step", "text", "tool_calls", "tool_results",
		"finish_reason", "usage", "meta", "additional", "timestamp",
	)

	if v := fields[0]; v.Exists() {
		if err := out.RunID.UnmarshalText([]byte(v.String())); err != nil {
			return fmt.Errorf("chunk: invalid run_id: %w", err)
		}
	}
	out.Step = int(fields[1].Int())
	out.Text = fields[2].String()

	decode := func(name string, v gjson.Result, dst any) error {
		if !v.Exists() {
			return nil
		}
		if err := json.Unmarshal([]byte(v.Raw), dst); err != nil {
			return fmt.Errorf("chunk: invalid %s: %w", name, err)
		}
		return nil
	}
	if err := decode("tool_calls", fields[3], &out.ToolCalls); err != nil {
		return err
	}
	if err := decode("tool_results", fields[4], &out.ToolResults); err != nil {
		return err
	}
	out.FinishReason = FinishReason(fields[5].String())
	if fields[6].Exists() {
		out.Usage = new(Usage)
		if err := decode("usage", fields[6], out.Usage); err != nil {
			return err
		}
	}
	if fields[7].Exists() {
		out.Meta = new(Meta)
		if err := decode("meta", fields[7], out.Meta); err != nil {
			return err
		}
	}
	if err := decode("additional", fields[8], &out.Additional); err != nil {
		return err
	}
	if v := fields[9]; v.Exists() {
		ts, err := strfmt.ParseDateTime(v.String())
		if err != nil {
			return fmt.Errorf("chunk: invalid timestamp: %w", err)
		}
		out.Timestamp = ts
	}

	*c = out
	return nil
}
