package tool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/toolmesh/catalog"
	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/logging"
)

// SearchToolName is the reserved name of the catalog search tool. It is
// always part of the base tool set.
const SearchToolName = "find_tools"

// searchParameters is the JSON schema of the search tool arguments.
func searchParameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Natural language description of the capability you need, e.g. 'book a flight'",
			},
		},
		"required": []string{"query"},
	}
}

// SearchOptions configures the search tool.
type SearchOptions struct {
	Limit   int           // maximum definitions returned per search (0 = resolver default)
	Timeout time.Duration // per attempt; 0 disables
	Retries int           // additional attempts after a failure
	Backoff time.Duration // delay before the first retry, doubled each time
	Logger  logging.Logger
}

// SearchTool resolves a query through a catalog.Resolver. Searching is a
// pure read, so failed attempts are retried with exponential backoff.
type SearchTool struct {
	resolver catalog.Resolver
	opts     SearchOptions
	def      core.ToolDefinition
}

// NewSearchTool creates the reserved catalog search tool.
func NewSearchTool(resolver catalog.Resolver, optFns ...func(o *SearchOptions)) *SearchTool {
	opts := SearchOptions{
		Limit:   5,
		Timeout: 10 * time.Second,
		Retries: 2,
		Backoff: 200 * time.Millisecond,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &SearchTool{
		resolver: resolver,
		opts:     opts,
		def: core.ToolDefinition{
			Name: SearchToolName,
			Description: "Search the API catalog for tools that can fulfil the user's request. " +
				"Call this when none of the available tools fits; matching tools become callable on the next turn.",
			Parameters: searchParameters(),
		},
	}
}

// Name implements Tool.
func (s *SearchTool) Name() string { return SearchToolName }

// Definition implements Tool.
func (s *SearchTool) Definition() core.ToolDefinition { return s.def }

// Dynamic implements Tool. The search tool is always a base tool.
func (s *SearchTool) Dynamic() bool { return false }

// Call implements Tool; it expects a "query" string argument.
func (s *SearchTool) Call(ctx context.Context, call Call) (any, error) {
	query, _ := call.Args["query"].(string)
	return s.Search(ctx, query)
}

// Search resolves query, retrying transient failures. Cancellation of ctx
// stops retrying immediately.
func (s *SearchTool) Search(ctx context.Context, query string) ([]core.ToolDefinition, error) {
	var lastErr error
	backoff := s.opts.Backoff
	for attempt := 0; attempt <= s.opts.Retries; attempt++ {
		if attempt > 0 {
			s.opts.Logger.Warn("tool.search.retry", "attempt", attempt, "query", query, "error", lastErr.Error())
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		defs, err := s.resolveOnce(ctx, query)
		if err == nil {
			return defs, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	if errors.Is(lastErr, context.DeadlineExceeded) {
		return nil, &ToolError{Tool: SearchToolName, Message: "catalog search timed out", Code: CodeTimeout, Details: lastErr}
	}
	return nil, fmt.Errorf("catalog search %q: %w", query, lastErr)
}

func (s *SearchTool) resolveOnce(ctx context.Context, query string) ([]core.ToolDefinition, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	return s.resolver.Resolve(ctx, query, s.opts.Limit)
}
