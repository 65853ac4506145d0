// Package toolmesh runs one model turn over a conversation whose tool set
// grows on demand. Each turn:
//  1. derives the tool window from the last message (tool.ComputeActiveTools)
//  2. composes the system prompt (prompt.Compose)
//  3. rewrites the conversation around it, appending the user query (flow.Rewrite)
//  4. calls the completion model with tool choice "auto" (flow.Invoker)
//  5. dispatches a requested tool call (flow.Dispatcher) or appends the
//     assistant reply tagged with the active tool set.
//
// A turn never loops on tool results; callers decide whether to request
// another turn. An Orchestrator holds no mutable state and may serve many
// conversations concurrently, provided each conversation has at most one
// turn in flight.
package toolmesh

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/toolmesh/catalog"
	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/flow"
	"github.com/hupe1980/toolmesh/httpexec"
	"github.com/hupe1980/toolmesh/logging"
	"github.com/hupe1980/toolmesh/model"
	"github.com/hupe1980/toolmesh/prompt"
	"github.com/hupe1980/toolmesh/tool"
)

// Options configures an Orchestrator.
type Options struct {
	// Model is the completion service. Required.
	Model model.Model

	// Resolver backs the reserved catalog search tool. Required.
	Resolver catalog.Resolver

	// Executor performs the HTTP calls of dynamic tools. Calls to dynamic
	// tools fail with NO_HTTP_BINDING when nil.
	Executor httpexec.Executor

	// BasePrompt is the personality prompt every system prompt starts with.
	BasePrompt string

	// BaseTools are HTTP backed tools available on every turn in addition to
	// the search tool. They are never evicted.
	BaseTools []core.ToolDefinition

	// MaxDynamicTools caps how many discovered tools stay in the window.
	MaxDynamicTools int

	// SearchLimit caps the number of tools a single search returns.
	SearchLimit int

	// CatalogTimeout bounds each catalog search attempt.
	CatalogTimeout time.Duration

	// CatalogRetries is the number of additional search attempts after a
	// failure. Dynamic tool calls are never retried.
	CatalogRetries int

	// ToolTimeout bounds each dynamic tool call.
	ToolTimeout time.Duration

	// Stream requests streamed completions from the model.
	Stream bool

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Orchestrator sequences a single turn. Construct with New.
type Orchestrator struct {
	opts       Options
	toolbox    *tool.Toolbox
	invoker    *flow.Invoker
	dispatcher *flow.Dispatcher
}

// TurnInput is the input of one turn.
type TurnInput struct {
	// Conversation so far; may be empty.
	Conversation core.Conversation
	// Query is the new user message; empty means none.
	Query string
	// StaticContext is described in the prompt and merged into dynamic tool calls.
	StaticContext *core.StaticRequestContext
	// Credentials are passed through to dynamic tool calls.
	Credentials core.Credentials
}

// New creates an Orchestrator.
func New(optFns ...func(o *Options)) (*Orchestrator, error) {
	opts := Options{
		MaxDynamicTools: 5,
		SearchLimit:     5,
		CatalogTimeout:  10 * time.Second,
		CatalogRetries:  2,
		ToolTimeout:     30 * time.Second,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Model == nil {
		return nil, errors.New("toolmesh: model is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("toolmesh: catalog resolver is required")
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	if opts.MaxDynamicTools < 0 {
		opts.MaxDynamicTools = 0
	}

	search := tool.NewSearchTool(opts.Resolver, func(o *tool.SearchOptions) {
		o.Limit = opts.SearchLimit
		o.Timeout = opts.CatalogTimeout
		o.Retries = opts.CatalogRetries
		o.Logger = opts.Logger
	})
	toolbox := tool.NewToolbox(search, opts.Executor, func(o *tool.ToolboxOptions) {
		o.ExtraBase = opts.BaseTools
		o.ToolTimeout = opts.ToolTimeout
		o.Logger = opts.Logger
	})

	return &Orchestrator{
		opts:    opts,
		toolbox: toolbox,
		invoker: flow.NewInvoker(opts.Model, func(o *flow.InvokerOptions) {
			o.Stream = opts.Stream
			o.Logger = opts.Logger
		}),
		dispatcher: flow.NewDispatcher(func(o *flow.DispatcherOptions) {
			o.MaxDynamicTools = opts.MaxDynamicTools
			o.Logger = opts.Logger
		}),
	}, nil
}

// BaseTools returns the always-available tool definitions, search tool first.
func (o *Orchestrator) BaseTools() []core.ToolDefinition { return o.toolbox.BaseDefinitions() }

// Search queries the catalog the same way the search tool does, including
// timeout and retries.
func (o *Orchestrator) Search(ctx context.Context, query string) ([]core.ToolDefinition, error) {
	return o.toolbox.Search().Search(ctx, query)
}

// Turn runs one model turn and returns the updated conversation. The input
// conversation is never modified.
func (o *Orchestrator) Turn(ctx context.Context, in TurnInput) (core.Conversation, error) {
	start := time.Now()

	window := tool.ComputeActiveTools(in.Conversation.LastActiveTools(), o.toolbox.BaseDefinitions(), o.opts.MaxDynamicTools)
	active := o.toolbox.Resolve(window)
	o.opts.Logger.Debug("turn.start", "messages", in.Conversation.Len(), "active_tools", core.ToolNames(window))

	system, err := prompt.Compose(o.opts.BasePrompt, active, in.StaticContext)
	if err != nil {
		return core.Conversation{}, err
	}

	conv := flow.Rewrite(in.Conversation, system, in.Query)

	completion, err := o.invoker.Invoke(ctx, conv, window)
	if err != nil {
		return core.Conversation{}, err
	}

	if completion.IsToolCall() {
		conv, err = o.dispatcher.Dispatch(ctx, *completion.ToolCall, active, conv, in.StaticContext, in.Credentials)
		if err != nil {
			return core.Conversation{}, err
		}
	} else {
		conv = conv.Append(core.NewAssistantMessage(completion.Text, window))
	}

	o.opts.Logger.Info("turn.complete", "messages", conv.Len(), "tool_call", completion.IsToolCall(), "duration_ms", time.Since(start).Milliseconds())
	return conv, nil
}

// Run repeats Turn until the model answers with a plain assistant message,
// feeding tool results back without a new user query. maxSteps bounds the
// number of turns (0 means unlimited); exceeding it returns the conversation
// so far together with an error wrapping core.ErrStepLimit.
func (o *Orchestrator) Run(ctx context.Context, in TurnInput, maxSteps int) (core.Conversation, error) {
	limiter := core.NewStepLimiter(maxSteps)
	conv := in.Conversation
	for {
		if err := limiter.Next(); err != nil {
			return conv, err
		}
		next, err := o.Turn(ctx, in)
		if err != nil {
			return conv, err
		}
		conv = next

		last, _ := conv.Last()
		if last.Role != core.RoleFunction {
			return conv, nil
		}
		in.Conversation = conv
		in.Query = ""
	}
}
