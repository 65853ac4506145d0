package core

import (
	"errors"
	"net/http"
)

// Credentials is opaque authentication material applied to outbound dynamic
// tool requests. The orchestrator passes it through without inspecting it.
type Credentials interface {
	Apply(req *http.Request) error
}

// BearerToken sets an "Authorization: Bearer" header.
type BearerToken string

// Apply implements Credentials.
func (t BearerToken) Apply(req *http.Request) error {
	if t == "" {
		return errors.New("empty bearer token")
	}
	req.Header.Set("Authorization", "Bearer "+string(t))
	return nil
}

// APIKey sets a static key header (for example X-API-Key).
type APIKey struct {
	Header string
	Value  string
}

// Apply implements Credentials.
func (k APIKey) Apply(req *http.Request) error {
	if k.Header == "" {
		return errors.New("api key header name is required")
	}
	req.Header.Set(k.Header, k.Value)
	return nil
}

// BasicAuth applies HTTP basic authentication.
type BasicAuth struct {
	Username string
	Password string
}

// Apply implements Credentials.
func (b BasicAuth) Apply(req *http.Request) error {
	req.SetBasicAuth(b.Username, b.Password)
	return nil
}
