package httpexec

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hupe1980/toolmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble_MergesStaticAndModelArguments(t *testing.T) {
	static := &core.StaticRequestContext{
		Headers:         map[string]any{"X-Tenant": "acme", "X-Trace": "static"},
		Body:            map[string]any{"currency": "EUR", "seats": 1.0},
		PathParameters:  map[string]any{"region": "eu"},
		QueryParameters: map[string]any{"lang": "en"},
	}
	args := map[string]any{
		"headers":        map[string]any{"X-Trace": "model"},
		"body":           map[string]any{"seats": 2.0},
		"pathParameters": map[string]any{"flight": "LH 400"},
		"passenger":      "Ada",
	}

	req, err := Assemble(core.HTTPBinding{Verb: "post", Path: "/{region}/flights/{flight}"}, static, args, core.BearerToken("t"))
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/eu/flights/LH%20400", req.Path)
	assert.Equal(t, "acme", req.Header.Get("X-Tenant"))
	assert.Equal(t, "model", req.Header.Get("X-Trace"))
	assert.Equal(t, "en", req.Query.Get("lang"))
	assert.Equal(t, map[string]any{"currency": "EUR", "seats": 2.0, "passenger": "Ada"}, req.Body)
	assert.Equal(t, core.BearerToken("t"), req.Credentials)
}

func TestAssemble_GetExtrasGoToQuery(t *testing.T) {
	req, err := Assemble(core.HTTPBinding{Verb: "GET", Path: "/weather/{city}"}, nil, map[string]any{
		"pathParameters": map[string]any{"city": "Oslo"},
		"units":          "metric",
		"days":           3.0,
		"fields":         []any{"temp", "wind"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "/weather/Oslo", req.Path)
	assert.Equal(t, "metric", req.Query.Get("units"))
	assert.Equal(t, "3", req.Query.Get("days"))
	assert.Equal(t, []string{"temp", "wind"}, req.Query["fields"])
	assert.Nil(t, req.Body)
}

func TestAssemble_MissingPathParameter(t *testing.T) {
	_, err := Assemble(core.HTTPBinding{Verb: "GET", Path: "/weather/{city}"}, nil, map[string]any{}, nil)
	assert.ErrorIs(t, err, ErrMissingPathParameter)
}

func TestClient_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/flights":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			assert.Equal(t, "toolmesh-test", r.Header.Get("User-Agent"))
			raw, _ := io.ReadAll(r.Body)
			var body map[string]any
			require.NoError(t, json.Unmarshal(raw, &body))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"booking":"B-1","seats":` + jsonNumber(body["seats"]) + `}`))
		case "/api/ping":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("pong"))
		default:
			http.Error(w, "no such route", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL+"/api/", func(o *Options) {
		o.Header = http.Header{"User-Agent": []string{"toolmesh-test"}}
	})
	ctx := context.Background()

	out, err := c.Execute(ctx, Request{
		Method:      http.MethodPost,
		Path:        "/flights",
		Body:        map[string]any{"seats": 2},
		Credentials: core.BearerToken("secret"),
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"booking": "B-1", "seats": 2.0}, out)

	out, err = c.Execute(ctx, Request{Method: http.MethodGet, Path: "ping"})
	require.NoError(t, err)
	assert.Equal(t, "pong", out)

	_, err = c.Execute(ctx, Request{Method: http.MethodGet, Path: "/missing"})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func jsonNumber(v any) string {
	raw, _ := json.Marshal(v)
	return string(raw)
}
