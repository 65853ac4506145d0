package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/httpexec"
)

// FakeResolver returns canned results per query. Failures queued with
// FailNext are returned first, one per call.
type FakeResolver struct {
	mu       sync.Mutex
	results  map[string][]core.ToolDefinition
	failures []error
	queries  []string
}

// NewFakeResolver creates an empty FakeResolver.
func NewFakeResolver() *FakeResolver {
	return &FakeResolver{results: map[string][]core.ToolDefinition{}}
}

// On registers the result for query (chainable).
func (f *FakeResolver) On(query string, defs ...core.ToolDefinition) *FakeResolver {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[query] = defs
	return f
}

// FailNext queues errors returned by the next calls (chainable).
func (f *FakeResolver) FailNext(errs ...error) *FakeResolver {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, errs...)
	return f
}

// Queries returns every query received, including failed attempts.
func (f *FakeResolver) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// Resolve implements catalog.Resolver.
func (f *FakeResolver) Resolve(ctx context.Context, query string, limit int) ([]core.ToolDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defs := f.results[query]
	if limit > 0 && len(defs) > limit {
		defs = defs[:limit]
	}
	return append([]core.ToolDefinition(nil), defs...), nil
}

// FakeExecutor records requests and answers with a fixed result or error.
type FakeExecutor struct {
	mu       sync.Mutex
	Result   any
	Err      error
	requests []httpexec.Request
}

// Execute implements httpexec.Executor.
func (f *FakeExecutor) Execute(_ context.Context, req httpexec.Request) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.Result, f.Err
}

// Requests returns every request received.
func (f *FakeExecutor) Requests() []httpexec.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]httpexec.Request(nil), f.requests...)
}
