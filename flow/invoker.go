package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/logging"
	"github.com/hupe1980/toolmesh/model"
)

// Completion is the outcome of one model call: either a plain assistant
// message (Text) or a single tool call request (ToolCall non-nil).
type Completion struct {
	Text     string
	ToolCall *core.ToolCallRequest
	Usage    *model.TokenUsage
}

// IsToolCall reports whether the model requested a tool.
func (c *Completion) IsToolCall() bool { return c.ToolCall != nil }

// InvokerOptions configures an Invoker.
type InvokerOptions struct {
	Stream bool
	Logger logging.Logger
}

// Invoker sends a rewritten conversation to the completion model with tool
// choice "auto". Calls are never retried.
type Invoker struct {
	model model.Model
	opts  InvokerOptions
}

// NewInvoker creates an Invoker for m.
func NewInvoker(m model.Model, optFns ...func(o *InvokerOptions)) *Invoker {
	var opts InvokerOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &Invoker{model: m, opts: opts}
}

// Invoke performs one completion call.
//
// The model's channels are drained completely and the last final
// (non-partial) response wins. When that response carries several tool calls
// only the first one is returned; the rest are logged and dropped. A missing
// final response yields a *core.NoResponseError; a final response without
// text or tool call is an empty reply.
func (inv *Invoker) Invoke(ctx context.Context, conv core.Conversation, tools []core.ToolDefinition) (*Completion, error) {
	msgs := conv.Messages()
	wire := make([]core.Message, len(msgs))
	for i, m := range msgs {
		wire[i] = m.Wire()
	}

	req := model.Request{
		Messages:   wire,
		Tools:      tools,
		ToolChoice: model.ToolChoiceAuto,
		Stream:     inv.opts.Stream,
	}

	info := inv.model.Info()
	start := time.Now()
	inv.opts.Logger.Debug("model.invoke.start", "model", info.Name, "messages", len(wire), "tools", len(tools))

	respCh, errCh := inv.model.Generate(ctx, req)
	final, err := drain(ctx, respCh, errCh)
	if err != nil {
		inv.opts.Logger.Error("model.invoke.error", "model", info.Name, "error", err.Error())
		var nre *core.NoResponseError
		if errors.As(err, &nre) {
			return nil, err
		}
		return nil, fmt.Errorf("model %s: %w", info.Name, err)
	}
	if final == nil {
		return nil, &core.NoResponseError{Model: info.Name, Reason: "no final response"}
	}

	fields := []any{"model", info.Name, "duration_ms", time.Since(start).Milliseconds(), "finish_reason", final.FinishReason}
	if final.Usage != nil {
		fields = append(fields, "prompt_tokens", final.Usage.PromptTokens, "completion_tokens", final.Usage.CompletionTokens)
	}
	inv.opts.Logger.Info("model.invoke.complete", fields...)

	c := &Completion{Text: final.Content, Usage: final.Usage}
	if len(final.ToolCalls) > 0 {
		call := final.ToolCalls[0]
		if call.ID == "" {
			call.ID = core.NewID()
		}
		c.ToolCall = &call
		if dropped := final.ToolCalls[1:]; len(dropped) > 0 {
			names := make([]string, len(dropped))
			for i, d := range dropped {
				names[i] = d.Name
			}
			inv.opts.Logger.Warn("model.invoke.extra_tool_calls", "model", info.Name, "kept", call.Name, "dropped", names)
		}
	}
	return c, nil
}

// drain consumes both channels until they are closed and returns the last
// final response or the first error.
func drain(ctx context.Context, respCh <-chan model.Response, errCh <-chan error) (*model.Response, error) {
	var final *model.Response
	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if resp.Partial {
				continue
			}
			r := resp
			final = &r
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return nil, err
			}
		}
	}
	return final, nil
}
