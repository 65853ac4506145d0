package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/logging"
	"github.com/hupe1980/toolmesh/tool"
)

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	// MaxDynamicTools caps the discovered tools a search may leave in the
	// window. Negative means no cap.
	MaxDynamicTools int
	Logger          logging.Logger
}

// Dispatcher routes a tool call request to the matching active tool and
// records the outcome in the conversation.
type Dispatcher struct {
	maxDynamic int
	logger     logging.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(optFns ...func(o *DispatcherOptions)) *Dispatcher {
	opts := DispatcherOptions{MaxDynamicTools: -1}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Dispatcher{maxDynamic: opts.MaxDynamicTools, logger: logging.OrNoOp(opts.Logger)}
}

// dispatchCall is the classified form of a tool call request. Exactly one
// of the variants below is selected per request.
type dispatchCall interface {
	request() core.ToolCallRequest
}

// dynamicCall targets an HTTP backed tool.
type dynamicCall struct {
	call core.ToolCallRequest
	tool tool.Tool
}

// searchCall targets the reserved catalog search tool.
type searchCall struct {
	call   core.ToolCallRequest
	search *tool.SearchTool
}

// unresolvedCall names a tool outside the active set.
type unresolvedCall struct {
	call      core.ToolCallRequest
	available []string
}

func (c dynamicCall) request() core.ToolCallRequest    { return c.call }
func (c searchCall) request() core.ToolCallRequest     { return c.call }
func (c unresolvedCall) request() core.ToolCallRequest { return c.call }

func classify(call core.ToolCallRequest, active []tool.Tool) dispatchCall {
	t, ok := tool.Find(active, call.Name)
	if !ok {
		return unresolvedCall{call: call, available: tool.Names(active)}
	}
	if s, ok := t.(*tool.SearchTool); ok {
		return searchCall{call: call, search: s}
	}
	return dynamicCall{call: call, tool: t}
}

// Dispatch executes call against the active tools and returns conv extended
// with the assistant tool call echo and a function result message.
//
// The result message carries the window for the next turn: the current
// active definitions, plus the tools found when the call was a catalog
// search. Found tools become the newest window entries; matches beyond
// MaxDynamicTools are left out of the window and the summary. A call naming a tool outside the active set does not fail the
// turn; its result message holds the *core.UnresolvedToolError text so the
// model can correct itself. Argument payloads that are not a JSON object
// fail with *core.MalformedArgumentsError. Tool and catalog failures are
// returned to the caller.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	call core.ToolCallRequest,
	active []tool.Tool,
	conv core.Conversation,
	static *core.StaticRequestContext,
	creds core.Credentials,
) (core.Conversation, error) {
	current := tool.Definitions(active)
	echo := core.NewToolCallMessage(call)

	switch c := classify(call, active).(type) {
	case searchCall:
		args, err := parseArguments(call)
		if err != nil {
			return core.Conversation{}, err
		}
		query, ok := args["query"].(string)
		if !ok {
			return core.Conversation{}, &core.MalformedArgumentsError{
				Tool:      call.Name,
				Arguments: call.Arguments,
				Err:       errors.New(`missing string field "query"`),
			}
		}

		start := time.Now()
		found, err := c.search.Search(ctx, query)
		if err != nil {
			d.logger.Error("tool.dispatch.search.error", "call_id", call.ID, "query", query, "error", err.Error())
			return core.Conversation{}, err
		}
		d.logger.Info("tool.dispatch.search", "call_id", call.ID, "query", query,
			"found", core.ToolNames(found), "duration_ms", time.Since(start).Milliseconds())

		window, added, skipped := d.searchWindow(active, found)
		if len(skipped) > 0 {
			d.logger.Warn("tool.dispatch.search.window_full", "call_id", call.ID,
				"max_dynamic", d.maxDynamic, "skipped", core.ToolNames(skipped))
		}
		summary := searchSummary(query, added, skipped, d.maxDynamic)
		return conv.Append(echo, core.NewFunctionResultMessage(call, summary, window)), nil

	case dynamicCall:
		args, err := parseArguments(call)
		if err != nil {
			return core.Conversation{}, err
		}
		result, err := c.tool.Call(ctx, tool.Call{ID: call.ID, Args: args, Static: static, Credentials: creds})
		if err != nil {
			return core.Conversation{}, fmt.Errorf("call tool %s: %w", call.Name, err)
		}
		content, err := resultContent(result)
		if err != nil {
			return core.Conversation{}, fmt.Errorf("encode result of tool %s: %w", call.Name, err)
		}
		d.logger.Debug("tool.dispatch.dynamic", "call_id", call.ID, "tool", call.Name)
		return conv.Append(echo, core.NewFunctionResultMessage(call, content, current)), nil

	case unresolvedCall:
		uerr := &core.UnresolvedToolError{Name: call.Name, Available: c.available}
		d.logger.Warn("tool.dispatch.unresolved", "call_id", call.ID, "tool", call.Name, "available", c.available)
		return conv.Append(echo, core.NewFunctionResultMessage(call, uerr.Error(), current)), nil
	}
	return conv, nil
}

// parseArguments decodes the argument payload. An empty payload is an empty
// object.
func parseArguments(call core.ToolCallRequest) (map[string]any, error) {
	raw := strings.TrimSpace(call.Arguments)
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, &core.MalformedArgumentsError{Tool: call.Name, Arguments: call.Arguments, Err: err}
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// searchWindow builds the window following a search. Base tools stay in
// front, then the remaining current tools, then the found ones in rank
// order. Found dynamic tools past the cap are skipped.
func (d *Dispatcher) searchWindow(active []tool.Tool, found []core.ToolDefinition) (window, added, skipped []core.ToolDefinition) {
	var base, current []core.ToolDefinition
	isBase := make(map[string]bool)
	for _, t := range active {
		def := t.Definition()
		current = append(current, def)
		if !t.Dynamic() {
			base = append(base, def)
			isBase[def.Name] = true
		}
	}

	dynamic := 0
	for _, def := range core.MergeTools(found) {
		switch {
		case isBase[def.Name]:
			added = append(added, def)
		case d.maxDynamic < 0 || dynamic < d.maxDynamic:
			added = append(added, def)
			dynamic++
		default:
			skipped = append(skipped, def)
		}
	}

	isAdded := make(map[string]bool, len(added))
	for _, def := range added {
		isAdded[def.Name] = true
	}
	older := make([]core.ToolDefinition, 0, len(current))
	for _, def := range current {
		if !isAdded[def.Name] {
			older = append(older, def)
		}
	}

	window = core.MergeTools(base, older, added)
	if d.maxDynamic >= 0 {
		window = tool.ComputeActiveTools(window, base, d.maxDynamic)
	}
	return window, added, skipped
}

func searchSummary(query string, added, skipped []core.ToolDefinition, maxDynamic int) string {
	if len(added) == 0 && len(skipped) == 0 {
		return fmt.Sprintf("No tools found for %q.", query)
	}
	var b strings.Builder
	if len(added) > 0 {
		fmt.Fprintf(&b, "Found %d tools: %s. They are now available to call.",
			len(added), strings.Join(core.ToolNames(added), ", "))
	}
	if len(skipped) > 0 {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%d more matched but exceed the limit of %d discovered tools: %s.",
			len(skipped), maxDynamic, strings.Join(core.ToolNames(skipped), ", "))
	}
	return b.String()
}

func resultContent(result any) (string, error) {
	switch v := result.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	}
	b, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
