package tool

import (
	"fmt"
	"slices"
	"strings"

	"github.com/alphadose/haxmap"
	"github.com/bmatcuk/doublestar/v4"
)

// Registry resolves tools by name. Registration compiles each tool's
// parameter schema so that resolved definitions validate their arguments.
type Registry struct {
	tools *haxmap.Map[string, Definition]
}

// NewRegistry creates a registry holding defs. Duplicate names are an error.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{tools: haxmap.New[string, Definition]()}
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool to the registry.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tool: definition has no name")
	}
	if def.schema == nil {
		schema, err := def.compile()
		if err != nil {
			return err
		}
		def.schema = schema
	}

	if _, loaded := r.tools.GetOrCompute(def.Name, func() Definition { return def }); loaded {
		return fmt.Errorf("tool: %q is already registered", def.Name)
	}
	return nil
}

// Resolve finds a tool by the name the model used.
func (r *Registry) Resolve(name string) (Definition, bool) {
	return r.tools.Get(name)
}

func (r *Registry) Len() int {
	return int(r.tools.Len())
}

// Definitions returns every registered tool ordered by name.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, r.tools.Len())
	r.tools.ForEach(func(_ string, def Definition) bool {
		defs = append(defs, def)
		return true
	})
	slices.SortFunc(defs, func(a, b Definition) int {
		return strings.Compare(a.Name, b.Name)
	})
	return defs
}

// Filter returns a registry with the tools whose name matches any of the
// glob patterns, for example "fs_*" or "{weather,time}". No patterns keeps
// every tool.
func (r *Registry) Filter(patterns ...string) (*Registry, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("tool: invalid pattern %q: %w", p, doublestar.ErrBadPattern)
		}
	}

	out := &Registry{tools: haxmap.New[string, Definition]()}
	r.tools.ForEach(func(name string, def Definition) bool {
		if len(patterns) == 0 || matchAny(patterns, name) {
			out.tools.Set(name, def)
		}
		return true
	})
	return out, nil
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}
