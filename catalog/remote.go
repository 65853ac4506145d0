package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/toolmesh/core"
)

// RemoteResolver queries an external search service (typically a vector
// index over API operations) with GET {BaseURL}/search?q=<query>&limit=<n>.
// The service answers with {"tools": [ToolDefinition...]}.
type RemoteResolver struct {
	baseURL    string
	httpClient *http.Client
	header     http.Header
}

// RemoteOptions configures a RemoteResolver.
type RemoteOptions struct {
	Timeout time.Duration
	Header  http.Header // sent with every request (e.g. an API key)
	Client  *http.Client
}

// NewRemoteResolver creates a client for the search service at baseURL.
func NewRemoteResolver(baseURL string, optFns ...func(o *RemoteOptions)) *RemoteResolver {
	opts := RemoteOptions{Timeout: 10 * time.Second, Header: http.Header{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &RemoteResolver{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		header:     opts.Header,
	}
}

type searchResponse struct {
	Tools []core.ToolDefinition `json:"tools"`
}

// Resolve implements Resolver.
func (r *RemoteResolver) Resolve(ctx context.Context, query string, limit int) ([]core.ToolDefinition, error) {
	q := url.Values{}
	q.Set("q", query)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("catalog search error (status %d): %s", resp.StatusCode, string(body))
	}

	var out searchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if limit > 0 && len(out.Tools) > limit {
		out.Tools = out.Tools[:limit]
	}
	return out.Tools, nil
}
