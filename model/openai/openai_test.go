package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/model"
	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T, handler http.HandlerFunc) *Model {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewModel(func(o *Options) {
		o.APIKey = "test-key"
		o.BaseURL = srv.URL + "/"
	})
}

func drain(t *testing.T, respCh <-chan model.Response, errCh <-chan error) ([]model.Response, error) {
	t.Helper()
	var out []model.Response
	for r := range respCh {
		out = append(out, r)
	}
	return out, <-errCh
}

func TestGenerate_ToolCallAndAutoChoice(t *testing.T) {
	var body map[string]any
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"tool_calls","message":{"role":"assistant","content":null,
				"tool_calls":[{"id":"call_1","type":"function","function":{"name":"find_tools","arguments":"{\"query\":\"travel\"}"}}]}}],
			"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	})

	req := model.Request{
		Messages: []core.Message{
			{Role: core.RoleSystem, Content: "You are helpful."},
			{Role: core.RoleUser, Content: "plan a trip"},
		},
		Tools: []core.ToolDefinition{{
			Name:        "find_tools",
			Description: "Search the catalog",
			Parameters:  map[string]any{"type": "object"},
		}},
		ToolChoice: model.ToolChoiceAuto,
	}

	respCh, errCh := m.Generate(context.Background(), req)
	resps, err := drain(t, respCh, errCh)
	require.NoError(t, err)
	require.Len(t, resps, 1)
	require.Len(t, resps[0].ToolCalls, 1)
	assert.Equal(t, core.ToolCallRequest{ID: "call_1", Name: "find_tools", Arguments: `{"query":"travel"}`}, resps[0].ToolCalls[0])
	assert.Equal(t, 15, resps[0].Usage.TotalTokens)

	assert.Equal(t, "auto", body["tool_choice"])
	msgs, _ := body["messages"].([]any)
	assert.Len(t, msgs, 2)
	tools, _ := body["tools"].([]any)
	assert.Len(t, tools, 1)
}

func TestGenerate_NoChoices(t *testing.T) {
	m := newTestModel(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c2","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[]}`))
	})

	respCh, errCh := m.Generate(context.Background(), model.Request{
		Messages: []core.Message{{Role: core.RoleUser, Content: "hi"}},
	})
	_, err := drain(t, respCh, errCh)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNoResponse))
}

func TestBuildMessages_ToolRoundTrip(t *testing.T) {
	call := core.ToolCallRequest{ID: "call_9", Name: "getWeather", Arguments: `{"city":"Oslo"}`}
	msgs := buildMessages([]core.Message{
		{Role: core.RoleUser, Content: "weather?"},
		{Role: core.RoleAssistant, ToolCall: &call},
		{Role: core.RoleFunction, Name: "getWeather", Content: "sunny", ToolCallID: "call_9"},
		{Role: core.RoleFunction, Name: "legacy", Content: "ok"},
	})
	require.Len(t, msgs, 4)
	require.NotNil(t, msgs[1].OfAssistant)
	assert.Equal(t, "call_9", msgs[1].OfAssistant.ToolCalls[0].ID)
	require.NotNil(t, msgs[2].OfTool)
	assert.Equal(t, "call_9", msgs[2].OfTool.ToolCallID)
	require.NotNil(t, msgs[3].OfUser)
}

func TestBuildParams_NoToolsOmitsChoice(t *testing.T) {
	m := NewModelFromClient(nil)
	params := m.buildParams(model.Request{Messages: []core.Message{{Role: core.RoleUser, Content: "hi"}}})
	assert.Empty(t, params.Tools)
	assert.Equal(t, openai.ChatCompletionToolChoiceOptionUnionParam{}, params.ToolChoice)
}

func streamChunk(content, finish string) string {
	reason := "null"
	if finish != "" {
		reason = fmt.Sprintf("%q", finish)
	}
	delta := "{}"
	if content != "" {
		delta = fmt.Sprintf(`{"content":%q}`, content)
	}
	return fmt.Sprintf("data: {\"id\":\"s1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"gpt-4o-mini\","+
		"\"choices\":[{\"index\":0,\"delta\":%s,\"finish_reason\":%s}]}\n\n", delta, reason)
}

func TestGenerate_Streaming(t *testing.T) {
	m := newTestModel(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, streamChunk("Hel", ""))
		_, _ = io.WriteString(w, streamChunk("lo", ""))
		_, _ = io.WriteString(w, streamChunk("", "stop"))
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	})

	respCh, errCh := m.Generate(context.Background(), model.Request{
		Messages: []core.Message{{Role: core.RoleUser, Content: "hi"}},
		Stream:   true,
	})
	resps, err := drain(t, respCh, errCh)
	require.NoError(t, err)
	require.Len(t, resps, 3)
	assert.True(t, resps[0].Partial)
	assert.False(t, resps[2].Partial)
	assert.Equal(t, "Hello", resps[2].Content)
	assert.Equal(t, "stop", resps[2].FinishReason)
}

func TestGenerate_StreamingStopsWhenConsumerLeaves(t *testing.T) {
	m := newTestModel(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for i := 0; i < 200; i++ {
			_, _ = io.WriteString(w, streamChunk("x", ""))
		}
		_, _ = io.WriteString(w, streamChunk("", "stop"))
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	})

	ctx, cancel := context.WithCancel(context.Background())
	respCh, errCh := m.Generate(ctx, model.Request{
		Messages: []core.Message{{Role: core.RoleUser, Content: "hi"}},
		Stream:   true,
	})
	<-respCh
	cancel()

	done := make(chan struct{})
	go func() {
		for range errCh {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("generate goroutine still blocked after cancel")
	}
}
