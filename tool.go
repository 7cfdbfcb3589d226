package dagtalk

import (
	"encoding/json"
	"fmt"
)

// ToolSpec describes one action an instruction can resolve to: the schema
// shown to model resolvers plus the decoder that turns raw arguments into a
// typed Intent. Decode never executes anything.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  json.RawMessage // JSON Schema for the arguments object
	Decode      func(args json.RawMessage) (Intent, error)
}

// Registry holds the tool specs available to resolvers. It is read-only
// after construction and safe for concurrent readers.
type Registry struct {
	specs  []ToolSpec
	byName map[string]ToolSpec
}

// NewRegistry builds a Registry from specs. Names must be unique and
// non-empty, and every spec needs a Decode func.
func NewRegistry(specs ...ToolSpec) (*Registry, error) {
	r := &Registry{
		specs:  make([]ToolSpec, 0, len(specs)),
		byName: make(map[string]ToolSpec, len(specs)),
	}
	for _, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("tool spec with empty name")
		}
		if s.Decode == nil {
			return nil, fmt.Errorf("tool spec %q has no decoder", s.Name)
		}
		if _, ok := r.byName[s.Name]; ok {
			return nil, fmt.Errorf("duplicate tool spec %q", s.Name)
		}
		r.specs = append(r.specs, s)
		r.byName[s.Name] = s
	}
	return r, nil
}

// Specs returns the registered specs in registration order.
// The returned slice is a copy.
func (r *Registry) Specs() []ToolSpec {
	out := make([]ToolSpec, len(r.specs))
	copy(out, r.specs)
	return out
}

// Decode turns a named tool call into a typed Intent.
// Unregistered names return ErrUnknownTool.
func (r *Registry) Decode(name string, args json.RawMessage) (Intent, error) {
	s, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("decode %q: %w", name, ErrUnknownTool)
	}
	return s.Decode(args)
}
