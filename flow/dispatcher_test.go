package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/internal/testutil"
	"github.com/hupe1980/toolmesh/tool"
)

func newActive(t *testing.T, resolver *testutil.FakeResolver, exec *testutil.FakeExecutor, dynamic ...string) ([]tool.Tool, *tool.Toolbox) {
	t.Helper()
	tb := tool.NewToolbox(tool.NewSearchTool(resolver), exec)
	defs := append(tb.BaseDefinitions(), testutil.Defs(dynamic...)...)
	return tb.Resolve(defs), tb
}

func TestDispatch_SearchExpandsWindow(t *testing.T) {
	resolver := testutil.NewFakeResolver().On("travel", testutil.Defs("getWeather", "bookFlight")...)
	active, tb := newActive(t, resolver, &testutil.FakeExecutor{})
	conv := testutil.NewConversationBuilder().System("sys").User("plan a trip").Build()
	call := core.ToolCallRequest{ID: "c1", Name: tool.SearchToolName, Arguments: `{"query":"travel"}`}

	got, err := NewDispatcher().Dispatch(context.Background(), call, active, conv, nil, nil)
	require.NoError(t, err)
	require.Equal(t, conv.Len()+2, got.Len())

	echo := got.At(conv.Len())
	assert.Equal(t, core.RoleAssistant, echo.Role)
	require.NotNil(t, echo.ToolCall)
	assert.Equal(t, call, *echo.ToolCall)

	result, _ := got.Last()
	assert.Equal(t, core.RoleFunction, result.Role)
	assert.Equal(t, "c1", result.ToolCallID)
	assert.Equal(t, tool.SearchToolName, result.Name)
	assert.Equal(t, "Found 2 tools: getWeather, bookFlight. They are now available to call.", result.Content)

	want := append(core.ToolNames(tb.BaseDefinitions()), "getWeather", "bookFlight")
	assert.Equal(t, want, core.ToolNames(result.ActiveTools))
	assert.Equal(t, 2, conv.Len())
}

func TestDispatch_SearchDedupsKnownTools(t *testing.T) {
	resolver := testutil.NewFakeResolver().On("w", testutil.Defs("getWeather", tool.SearchToolName)...)
	active, _ := newActive(t, resolver, &testutil.FakeExecutor{}, "getWeather")
	call := core.ToolCallRequest{ID: "c1", Name: tool.SearchToolName, Arguments: `{"query":"w"}`}

	got, err := NewDispatcher().Dispatch(context.Background(), call, active, core.Conversation{}, nil, nil)
	require.NoError(t, err)
	last, _ := got.Last()
	assert.Equal(t, []string{tool.SearchToolName, "getWeather"}, core.ToolNames(last.ActiveTools))
}

func TestDispatch_SearchRefoundToolBecomesNewest(t *testing.T) {
	resolver := testutil.NewFakeResolver().On("more", testutil.Defs("c", "a")...)
	active, tb := newActive(t, resolver, &testutil.FakeExecutor{}, "a", "b")
	call := core.ToolCallRequest{ID: "c1", Name: tool.SearchToolName, Arguments: `{"query":"more"}`}

	d := NewDispatcher(func(o *DispatcherOptions) { o.MaxDynamicTools = 2 })
	got, err := d.Dispatch(context.Background(), call, active, core.Conversation{}, nil, nil)
	require.NoError(t, err)

	last, _ := got.Last()
	assert.Equal(t, "Found 2 tools: c, a. They are now available to call.", last.Content)
	assert.Equal(t, []string{tool.SearchToolName, "c", "a"}, core.ToolNames(last.ActiveTools))

	next := tool.ComputeActiveTools(last.ActiveTools, tb.BaseDefinitions(), 2)
	assert.Equal(t, []string{tool.SearchToolName, "c", "a"}, core.ToolNames(next))
}

func TestDispatch_SearchBeyondCapIsNotAnnounced(t *testing.T) {
	resolver := testutil.NewFakeResolver().On("travel", testutil.Defs("getWeather", "bookFlight", "bookHotel")...)
	active, tb := newActive(t, resolver, &testutil.FakeExecutor{}, "old")
	call := core.ToolCallRequest{ID: "c1", Name: tool.SearchToolName, Arguments: `{"query":"travel"}`}

	d := NewDispatcher(func(o *DispatcherOptions) { o.MaxDynamicTools = 2 })
	got, err := d.Dispatch(context.Background(), call, active, core.Conversation{}, nil, nil)
	require.NoError(t, err)

	last, _ := got.Last()
	assert.Equal(t, "Found 2 tools: getWeather, bookFlight. They are now available to call. "+
		"1 more matched but exceed the limit of 2 discovered tools: bookHotel.", last.Content)
	assert.Equal(t, []string{tool.SearchToolName, "getWeather", "bookFlight"}, core.ToolNames(last.ActiveTools))

	next := tool.ComputeActiveTools(last.ActiveTools, tb.BaseDefinitions(), 2)
	assert.Equal(t, core.ToolNames(last.ActiveTools), core.ToolNames(next))
}

func TestDispatch_SearchWithZeroCap(t *testing.T) {
	resolver := testutil.NewFakeResolver().On("w", testutil.Defs("getWeather")...)
	active, _ := newActive(t, resolver, &testutil.FakeExecutor{})
	call := core.ToolCallRequest{ID: "c1", Name: tool.SearchToolName, Arguments: `{"query":"w"}`}

	d := NewDispatcher(func(o *DispatcherOptions) { o.MaxDynamicTools = 0 })
	got, err := d.Dispatch(context.Background(), call, active, core.Conversation{}, nil, nil)
	require.NoError(t, err)

	last, _ := got.Last()
	assert.Equal(t, "1 more matched but exceed the limit of 0 discovered tools: getWeather.", last.Content)
	assert.Equal(t, []string{tool.SearchToolName}, core.ToolNames(last.ActiveTools))
}

func TestDispatch_SearchNoResults(t *testing.T) {
	active, _ := newActive(t, testutil.NewFakeResolver(), &testutil.FakeExecutor{})
	call := core.ToolCallRequest{ID: "c1", Name: tool.SearchToolName, Arguments: `{"query":"nothing"}`}

	got, err := NewDispatcher().Dispatch(context.Background(), call, active, core.Conversation{}, nil, nil)
	require.NoError(t, err)
	last, _ := got.Last()
	assert.Equal(t, `No tools found for "nothing".`, last.Content)
	assert.Equal(t, []string{tool.SearchToolName}, core.ToolNames(last.ActiveTools))
}

func TestDispatch_SearchFailurePropagates(t *testing.T) {
	boom := errors.New("catalog down")
	resolver := testutil.NewFakeResolver().FailNext(boom, boom, boom)
	tb := tool.NewToolbox(tool.NewSearchTool(resolver, func(o *tool.SearchOptions) { o.Backoff = 0 }), nil)
	active := tb.Resolve(tb.BaseDefinitions())
	call := core.ToolCallRequest{ID: "c1", Name: tool.SearchToolName, Arguments: `{"query":"x"}`}

	_, err := NewDispatcher().Dispatch(context.Background(), call, active, core.Conversation{}, nil, nil)
	assert.ErrorIs(t, err, boom)
}

func TestDispatch_SearchMissingQuery(t *testing.T) {
	active, _ := newActive(t, testutil.NewFakeResolver(), &testutil.FakeExecutor{})
	call := core.ToolCallRequest{ID: "c1", Name: tool.SearchToolName, Arguments: `{"q":"x"}`}

	_, err := NewDispatcher().Dispatch(context.Background(), call, active, core.Conversation{}, nil, nil)
	var mae *core.MalformedArgumentsError
	assert.ErrorAs(t, err, &mae)
}

func TestDispatch_DynamicTool(t *testing.T) {
	exec := &testutil.FakeExecutor{Result: map[string]any{"temp": 21}}
	active, _ := newActive(t, testutil.NewFakeResolver(), exec, "getWeather")
	static := &core.StaticRequestContext{QueryParameters: map[string]any{"units": "metric"}}
	creds := core.BearerToken("t")
	call := core.ToolCallRequest{ID: "c2", Name: "getWeather", Arguments: `{"city":"Lisbon"}`}

	got, err := NewDispatcher().Dispatch(context.Background(), call, active, core.Conversation{}, static, creds)
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())

	last, _ := got.Last()
	assert.Equal(t, `{"temp":21}`, last.Content)
	assert.Equal(t, "getWeather", last.Name)
	assert.Equal(t, []string{tool.SearchToolName, "getWeather"}, core.ToolNames(last.ActiveTools))

	reqs := exec.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Lisbon", reqs[0].Query.Get("city"))
	assert.Equal(t, "metric", reqs[0].Query.Get("units"))
	assert.Equal(t, creds, reqs[0].Credentials)
}

func TestDispatch_DynamicStringResultAndEmptyArgs(t *testing.T) {
	exec := &testutil.FakeExecutor{Result: "sunny"}
	active, _ := newActive(t, testutil.NewFakeResolver(), exec, "getWeather")
	call := core.ToolCallRequest{ID: "c2", Name: "getWeather"}

	got, err := NewDispatcher().Dispatch(context.Background(), call, active, core.Conversation{}, nil, nil)
	require.NoError(t, err)
	last, _ := got.Last()
	assert.Equal(t, "sunny", last.Content)
}

func TestDispatch_DynamicFailureIsNotRetried(t *testing.T) {
	boom := errors.New("503")
	exec := &testutil.FakeExecutor{Err: boom}
	active, _ := newActive(t, testutil.NewFakeResolver(), exec, "bookFlight")
	call := core.ToolCallRequest{ID: "c3", Name: "bookFlight", Arguments: `{}`}

	_, err := NewDispatcher().Dispatch(context.Background(), call, active, core.Conversation{}, nil, nil)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, exec.Requests(), 1)
}

func TestDispatch_MalformedArguments(t *testing.T) {
	exec := &testutil.FakeExecutor{}
	active, _ := newActive(t, testutil.NewFakeResolver(), exec, "getWeather")

	for _, args := range []string{`{"city":`, `[1,2]`, `"text"`} {
		call := core.ToolCallRequest{ID: "c4", Name: "getWeather", Arguments: args}
		_, err := NewDispatcher().Dispatch(context.Background(), call, active, core.Conversation{}, nil, nil)
		var mae *core.MalformedArgumentsError
		require.ErrorAs(t, err, &mae, args)
		assert.Equal(t, "getWeather", mae.Tool)
		assert.Equal(t, args, mae.Arguments)
	}
	assert.Empty(t, exec.Requests())
}

func TestDispatch_UnresolvedToolInjectsError(t *testing.T) {
	active, _ := newActive(t, testutil.NewFakeResolver(), &testutil.FakeExecutor{}, "getWeather")
	conv := testutil.NewConversationBuilder().User("hi").Build()
	call := core.ToolCallRequest{ID: "c5", Name: "launchRocket", Arguments: `{}`}

	got, err := NewDispatcher().Dispatch(context.Background(), call, active, conv, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 3, got.Len())

	last, _ := got.Last()
	assert.Equal(t, core.RoleFunction, last.Role)
	want := (&core.UnresolvedToolError{Name: "launchRocket", Available: []string{tool.SearchToolName, "getWeather"}}).Error()
	assert.Equal(t, want, last.Content)
	assert.Equal(t, []string{tool.SearchToolName, "getWeather"}, core.ToolNames(last.ActiveTools))
}

func TestClassify(t *testing.T) {
	active, _ := newActive(t, testutil.NewFakeResolver(), &testutil.FakeExecutor{}, "getWeather")

	assert.IsType(t, searchCall{}, classify(core.ToolCallRequest{Name: tool.SearchToolName}, active))
	assert.IsType(t, dynamicCall{}, classify(core.ToolCallRequest{Name: "getWeather"}, active))
	assert.IsType(t, unresolvedCall{}, classify(core.ToolCallRequest{Name: "nope"}, active))
}
