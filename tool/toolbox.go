package tool

import (
	"time"

	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/httpexec"
	"github.com/hupe1980/toolmesh/logging"
)

// ToolboxOptions configures a Toolbox.
type ToolboxOptions struct {
	// ExtraBase lists HTTP backed tools that are always available besides
	// the search tool. They are never evicted.
	ExtraBase   []core.ToolDefinition
	ToolTimeout time.Duration
	Logger      logging.Logger
}

// Toolbox turns tool definitions into runtime tools. It knows the base set
// (the search tool first, then ExtraBase) and builds HTTPTools for
// everything else.
type Toolbox struct {
	search   *SearchTool
	executor httpexec.Executor
	base     []core.ToolDefinition
	isBase   map[string]bool
	opts     ToolboxOptions
}

// NewToolbox creates a Toolbox. executor may be nil when no HTTP backed tool
// is ever resolved.
func NewToolbox(search *SearchTool, executor httpexec.Executor, optFns ...func(o *ToolboxOptions)) *Toolbox {
	var opts ToolboxOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	base := core.MergeTools([]core.ToolDefinition{search.Definition()}, opts.ExtraBase)
	isBase := make(map[string]bool, len(base))
	for _, d := range base {
		isBase[d.Name] = true
	}
	return &Toolbox{search: search, executor: executor, base: base, isBase: isBase, opts: opts}
}

// BaseDefinitions returns the always-available definitions, search tool first.
func (tb *Toolbox) BaseDefinitions() []core.ToolDefinition {
	return append([]core.ToolDefinition(nil), tb.base...)
}

// IsBase reports whether name belongs to the base set.
func (tb *Toolbox) IsBase(name string) bool { return tb.isBase[name] }

// Search returns the reserved search tool.
func (tb *Toolbox) Search() *SearchTool { return tb.search }

// Resolve maps defs to runtime tools in order.
func (tb *Toolbox) Resolve(defs []core.ToolDefinition) []Tool {
	tools := make([]Tool, 0, len(defs))
	for _, d := range defs {
		if d.Name == SearchToolName {
			tools = append(tools, tb.search)
			continue
		}
		tools = append(tools, NewHTTPTool(d, !tb.isBase[d.Name], tb.executor, tb.opts.ToolTimeout, tb.opts.Logger))
	}
	return tools
}
