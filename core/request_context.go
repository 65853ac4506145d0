package core

// StaticRequestContext holds request data supplied once per conversation. It
// is described to the model in the system prompt and merged into every
// dynamic tool invocation underneath the model supplied arguments.
type StaticRequestContext struct {
	Headers         map[string]any `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body            any            `json:"body,omitempty" yaml:"body,omitempty"`
	PathParameters  map[string]any `json:"pathParameters,omitempty" yaml:"pathParameters,omitempty"`
	QueryParameters map[string]any `json:"queryParameters,omitempty" yaml:"queryParameters,omitempty"`
}

// IsEmpty reports whether no field is populated. A nil receiver is empty.
func (c *StaticRequestContext) IsEmpty() bool {
	if c == nil {
		return true
	}
	return len(c.Headers) == 0 && c.Body == nil && len(c.PathParameters) == 0 && len(c.QueryParameters) == 0
}
