package tool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/httpexec"
	"github.com/hupe1980/toolmesh/logging"
)

// HTTPTool exposes a downstream HTTP endpoint described by a definition's
// HTTPBinding. Calls are never retried since they may have side effects.
//
// Concurrency:
//
//	An HTTPTool has no internal mutable state after construction and is safe
//	for concurrent use by multiple goroutines.
type HTTPTool struct {
	def      core.ToolDefinition
	dynamic  bool
	executor httpexec.Executor
	timeout  time.Duration
	logger   logging.Logger
}

// NewHTTPTool wraps def. A zero timeout leaves the call bounded only by ctx.
func NewHTTPTool(def core.ToolDefinition, dynamic bool, executor httpexec.Executor, timeout time.Duration, logger logging.Logger) *HTTPTool {
	return &HTTPTool{
		def:      def,
		dynamic:  dynamic,
		executor: executor,
		timeout:  timeout,
		logger:   logging.OrNoOp(logger),
	}
}

// Name implements Tool.
func (t *HTTPTool) Name() string { return t.def.Name }

// Definition implements Tool.
func (t *HTTPTool) Definition() core.ToolDefinition { return t.def }

// Dynamic implements Tool.
func (t *HTTPTool) Dynamic() bool { return t.dynamic }

// Call assembles and performs the downstream request.
//
// Error Semantics:
//
//	missing binding / executor  -> *ToolError{Code: "NO_HTTP_BINDING"}
//	deadline exceeded           -> *ToolError{Code: "TIMEOUT"}
//	anything else               -> returned unchanged (transport and status errors)
//
// Logging Fields:
//
//	tool: tool name
//	call_id: tool call identifier (correlates model request & tool execution)
//	duration_ms: execution time in milliseconds
func (t *HTTPTool) Call(ctx context.Context, call Call) (any, error) {
	if t.def.HTTP == nil || t.executor == nil {
		return nil, NewToolError(t.def.Name, "tool has no HTTP binding", CodeNoHTTPBinding)
	}

	req, err := httpexec.Assemble(*t.def.HTTP, call.Static, call.Args, call.Credentials)
	if err != nil {
		return nil, &ToolError{Tool: t.def.Name, Message: err.Error(), Code: CodeExecution, Details: err}
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	start := time.Now()
	t.logger.Debug("tool.call.start", "tool", t.def.Name, "call_id", call.ID, "method", req.Method, "path", req.Path)

	result, err := t.executor.Execute(ctx, req)
	if err != nil {
		t.logger.Error("tool.call.error", "tool", t.def.Name, "call_id", call.ID, "error", err.Error())
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &ToolError{Tool: t.def.Name, Message: fmt.Sprintf("no response within %s", t.timeout), Code: CodeTimeout, Details: err}
		}
		return nil, err
	}

	t.logger.Info("tool.call.success", "tool", t.def.Name, "call_id", call.ID, "duration_ms", time.Since(start).Milliseconds())
	return result, nil
}
