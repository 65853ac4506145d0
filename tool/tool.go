// Package tool implements the runtime side of tool calling: the Tool wrapper
// the dispatcher routes to, the reserved catalog search tool, HTTP backed
// dynamic tools and the window that bounds how many dynamic tools stay
// visible to the model.
package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/toolmesh/core"
)

// Error codes carried by ToolError.
const (
	CodeExecution     = "EXECUTION_ERROR"
	CodeNoHTTPBinding = "NO_HTTP_BINDING"
	CodeTimeout       = "TIMEOUT"
)

// Call carries everything a tool needs for one invocation.
type Call struct {
	ID          string
	Args        map[string]any             // parsed model arguments
	Static      *core.StaticRequestContext // may be nil
	Credentials core.Credentials           // may be nil; never inspected here
}

// Tool is the runtime wrapper around a ToolDefinition.
//
// Dynamic reports whether the tool was discovered at runtime through catalog
// search. Only dynamic tools are subject to window eviction and only they are
// announced in the tool usage block of the system prompt.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Definition returns the declaration sent to the model.
	Definition() core.ToolDefinition

	// Dynamic reports whether the tool was discovered at runtime.
	Dynamic() bool

	// Call executes the tool.
	Call(ctx context.Context, call Call) (any, error)
}

// Definitions returns the declarations of tools in order.
func Definitions(tools []Tool) []core.ToolDefinition {
	defs := make([]core.ToolDefinition, len(tools))
	for i, t := range tools {
		defs[i] = t.Definition()
	}
	return defs
}

// Names returns the names of tools in order.
func Names(tools []Tool) []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name()
	}
	return names
}

// Find returns the tool called name.
func Find(tools []Tool, name string) (Tool, bool) {
	for _, t := range tools {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details error  `json:"details,omitempty"` // Underlying cause
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *ToolError) Unwrap() error { return e.Details }

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
