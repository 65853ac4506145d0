package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hupe1980/toolmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertions)
var (
	_ Registry = (*MemoryResolver)(nil)
	_ Registry = (*BoltResolver)(nil)
	_ Resolver = (*RemoteResolver)(nil)
)

func travelTools() []core.ToolDefinition {
	return []core.ToolDefinition{
		{Name: "getWeather", Description: "Current weather forecast for a travel destination", HTTP: &core.HTTPBinding{Verb: "GET", Path: "/weather/{city}"}},
		{Name: "bookFlight", Description: "Book a flight for travel between two airports", HTTP: &core.HTTPBinding{Verb: "POST", Path: "/flights"}},
		{Name: "listInvoices", Description: "List accounting invoices", HTTP: &core.HTTPBinding{Verb: "GET", Path: "/invoices"}},
	}
}

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"get", "weather"}, terms("getWeather"))
	assert.Equal(t, []string{"book", "a", "flight", "2"}, terms("Book a flight-2"))
	assert.Empty(t, terms("  "))
}

func TestMemoryResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryResolver(travelTools()...)

	got, err := r.Resolve(ctx, "travel", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"getWeather", "bookFlight"}, core.ToolNames(got))

	got, _ = r.Resolve(ctx, "weather", 10)
	assert.Equal(t, []string{"getWeather"}, core.ToolNames(got))

	got, _ = r.Resolve(ctx, "", 2)
	assert.Len(t, got, 2)

	got, _ = r.Resolve(ctx, "quantum", 10)
	assert.Empty(t, got)
}

func TestMemoryResolver_MatchesWholeTerms(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryResolver(travelTools()...)

	got, err := r.Resolve(ctx, "a", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"getWeather", "bookFlight"}, core.ToolNames(got))

	got, _ = r.Resolve(ctx, "count", 10)
	assert.Empty(t, got)

	got, _ = r.Resolve(ctx, "invoices", 10)
	assert.Equal(t, []string{"listInvoices"}, core.ToolNames(got))
}

func TestMemoryResolver_RegisterDelete(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryResolver(travelTools()...)

	require.NoError(t, r.Register(ctx, core.ToolDefinition{Name: "getWeather", Description: "replaced"}))
	all, _ := r.List(ctx)
	require.Len(t, all, 3)
	assert.Equal(t, "replaced", all[0].Description)

	require.NoError(t, r.Delete(ctx, "bookFlight"))
	assert.ErrorIs(t, r.Delete(ctx, "bookFlight"), ErrNotFound)
	assert.ErrorIs(t, r.Register(ctx, core.ToolDefinition{}), ErrInvalidName)

	all, _ = r.List(ctx)
	assert.Equal(t, []string{"getWeather", "listInvoices"}, core.ToolNames(all))
}

func TestBoltResolver_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	b, err := NewBoltResolver(path)
	require.NoError(t, err)
	require.NoError(t, b.Register(ctx, travelTools()...))
	require.NoError(t, b.Close())

	b, err = NewBoltResolver(path)
	require.NoError(t, err)
	defer b.Close()

	def, err := b.Get(ctx, "bookFlight")
	require.NoError(t, err)
	assert.Equal(t, "/flights", def.HTTP.Path)

	got, err := b.Resolve(ctx, "travel", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)

	require.NoError(t, b.Delete(ctx, "getWeather"))
	_, err = b.Get(ctx, "getWeather")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := b.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bookFlight", "listInvoices"}, core.ToolNames(all))
}

func TestRemoteResolver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "travel", r.URL.Query().Get("q"))
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tools":[{"name":"getWeather","description":"w"},{"name":"bookFlight","description":"f"}]}`))
	}))
	defer srv.Close()

	r := NewRemoteResolver(srv.URL+"/", func(o *RemoteOptions) {
		o.Header.Set("X-API-Key", "secret")
	})
	got, err := r.Resolve(context.Background(), "travel", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"getWeather", "bookFlight"}, core.ToolNames(got))
}

func TestRemoteResolver_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "index offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewRemoteResolver(srv.URL).Resolve(context.Background(), "x", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestLoadDefinitions(t *testing.T) {
	src := `
tools:
  - name: getWeather
    description: Weather by city
    http:
      verb: GET
      path: /weather/{city}
    parameters:
      type: object
      properties:
        pathParameters:
          type: object
`
	defs, err := LoadDefinitions(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "GET", defs[0].HTTP.Verb)
	assert.Equal(t, "object", defs[0].Parameters["type"])

	_, err = LoadDefinitions(strings.NewReader("tools:\n  - description: nameless\n"))
	assert.ErrorIs(t, err, ErrInvalidName)
}
