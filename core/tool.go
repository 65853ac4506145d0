package core

// HTTPBinding locates the downstream endpoint behind a dynamic tool.
type HTTPBinding struct {
	Verb string `json:"verb" yaml:"verb"` // GET, POST, ...
	Path string `json:"path" yaml:"path"` // may contain {name} path templates
}

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
//
// A definition is treated as immutable once created; helpers that need a
// modified definition return a copy.
type ToolDefinition struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	HTTP        *HTTPBinding   `json:"http,omitempty" yaml:"http,omitempty"`
}

// ToolNames returns the names of defs in order.
func ToolNames(defs []ToolDefinition) []string {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}

// MergeTools concatenates the given lists and removes duplicates by name,
// keeping the first occurrence. The result never aliases any input slice.
func MergeTools(lists ...[]ToolDefinition) []ToolDefinition {
	total := 0
	for _, l := range lists {
		total += len(l)
	}
	seen := make(map[string]struct{}, total)
	merged := make([]ToolDefinition, 0, total)
	for _, l := range lists {
		for _, d := range l {
			if _, ok := seen[d.Name]; ok {
				continue
			}
			seen[d.Name] = struct{}{}
			merged = append(merged, d)
		}
	}
	return merged
}
