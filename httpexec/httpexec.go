// Package httpexec performs the downstream HTTP calls behind dynamic tools.
// It assembles a request from a tool's HTTP binding, the conversation's
// static request context, the model supplied arguments and the caller's
// credentials, and decodes the response into structured data or text.
package httpexec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/logging"
)

// Reserved argument keys a model may use to address request parts directly.
const (
	ArgHeaders         = "headers"
	ArgBody            = "body"
	ArgPathParameters  = "pathParameters"
	ArgQueryParameters = "queryParameters"
)

// ErrMissingPathParameter is returned when a {name} template in the path
// has no value.
var ErrMissingPathParameter = errors.New("missing path parameter")

// Request is a fully assembled downstream call.
type Request struct {
	Method      string
	Path        string // templates already substituted
	Header      http.Header
	Query       url.Values
	Body        any // JSON encoded when non-nil
	Credentials core.Credentials
}

// Executor performs a downstream call and returns the decoded response:
// a JSON value for JSON responses, otherwise the body as a string.
type Executor interface {
	Execute(ctx context.Context, req Request) (any, error)
}

// StatusError reports a downstream response with status >= 400.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Options configures a Client.
type Options struct {
	Timeout time.Duration
	Client  *http.Client
	Header  http.Header // default headers (e.g. User-Agent)
	Logger  logging.Logger
}

// Client is the default Executor backed by net/http.
type Client struct {
	baseURL    string
	httpClient *http.Client
	header     http.Header
	logger     logging.Logger
}

// New creates a Client resolving relative tool paths against baseURL.
// Tool paths that are absolute URLs are used as is.
func New(baseURL string, optFns ...func(o *Options)) *Client {
	opts := Options{Timeout: 30 * time.Second}
	for _, fn := range optFns {
		fn(&opts)
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		header:     opts.Header,
		logger:     logging.OrNoOp(opts.Logger),
	}
}

// Assemble builds a Request for binding. Static context values are applied
// first and model arguments override them key by key. Top-level argument
// keys outside the reserved ones go to the query string for GET, HEAD and
// DELETE and into the JSON body otherwise.
func Assemble(binding core.HTTPBinding, static *core.StaticRequestContext, args map[string]any, creds core.Credentials) (Request, error) {
	method := strings.ToUpper(binding.Verb)
	if method == "" {
		method = http.MethodGet
	}
	if static == nil {
		static = &core.StaticRequestContext{}
	}

	headers := mergeMaps(static.Headers, asMap(args[ArgHeaders]))
	pathParams := mergeMaps(static.PathParameters, asMap(args[ArgPathParameters]))
	queryParams := mergeMaps(static.QueryParameters, asMap(args[ArgQueryParameters]))

	body := static.Body
	if b, ok := args[ArgBody]; ok {
		sm, sok := body.(map[string]any)
		am, aok := b.(map[string]any)
		if sok && aok {
			body = mergeMaps(sm, am)
		} else {
			body = b
		}
	}

	extras := make(map[string]any)
	for k, v := range args {
		switch k {
		case ArgHeaders, ArgBody, ArgPathParameters, ArgQueryParameters:
			continue
		}
		extras[k] = v
	}
	if len(extras) > 0 {
		switch method {
		case http.MethodGet, http.MethodHead, http.MethodDelete:
			queryParams = mergeMaps(queryParams, extras)
		default:
			switch b := body.(type) {
			case nil:
				body = extras
			case map[string]any:
				body = mergeMaps(b, extras)
			default:
				queryParams = mergeMaps(queryParams, extras)
			}
		}
	}

	path, err := expandPath(binding.Path, pathParams)
	if err != nil {
		return Request{}, err
	}

	req := Request{
		Method:      method,
		Path:        path,
		Header:      http.Header{},
		Query:       url.Values{},
		Body:        body,
		Credentials: creds,
	}
	for k, v := range headers {
		req.Header.Set(k, stringify(v))
	}
	for k, v := range queryParams {
		if list, ok := v.([]any); ok {
			for _, item := range list {
				req.Query.Add(k, stringify(item))
			}
			continue
		}
		req.Query.Set(k, stringify(v))
	}
	return req, nil
}

// expandPath substitutes {name} templates with escaped path parameters.
func expandPath(path string, params map[string]any) (string, error) {
	var b strings.Builder
	for {
		start := strings.IndexByte(path, '{')
		if start < 0 {
			b.WriteString(path)
			return b.String(), nil
		}
		end := strings.IndexByte(path[start:], '}')
		if end < 0 {
			b.WriteString(path)
			return b.String(), nil
		}
		name := path[start+1 : start+end]
		v, ok := params[name]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrMissingPathParameter, name)
		}
		b.WriteString(path[:start])
		b.WriteString(url.PathEscape(stringify(v)))
		path = path[start+end+1:]
	}
}

// Execute implements Executor.
func (c *Client) Execute(ctx context.Context, r Request) (any, error) {
	target := r.Path
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(target, "/")
	}
	if len(r.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + r.Query.Encode()
	}

	var reqBody io.Reader
	if r.Body != nil {
		buf, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range r.Header {
		req.Header[k] = append([]string(nil), vs...)
	}
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if r.Credentials != nil {
		if err := r.Credentials.Apply(req); err != nil {
			return nil, fmt.Errorf("apply credentials: %w", err)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	c.logger.Debug("httpexec.response", "method", r.Method, "url", target, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode >= 400 {
		return nil, &StatusError{Method: r.Method, URL: target, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return decodeBody(resp.Header.Get("Content-Type"), raw), nil
}

func decodeBody(contentType string, raw []byte) any {
	if len(raw) == 0 {
		return ""
	}
	if strings.Contains(contentType, "json") {
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			return v
		}
	}
	return string(raw)
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// mergeMaps returns a new map with the entries of every input, later maps
// overriding earlier ones.
func mergeMaps(maps ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprint(t)
	case map[string]any, []any:
		raw, _ := json.Marshal(t)
		return string(raw)
	default:
		return fmt.Sprint(t)
	}
}
