// Package catalog resolves natural-language queries to candidate tool
// definitions. The orchestrator only depends on the Resolver interface;
// this package ships an in-memory index, a bbolt backed store and a client
// for a remote search service.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"github.com/hupe1980/toolmesh/core"
	"gopkg.in/yaml.v3"
)

// Resolver maps a free-text query to an ordered list of tool definitions,
// best match first. An empty result is not an error.
type Resolver interface {
	Resolve(ctx context.Context, query string, limit int) ([]core.ToolDefinition, error)
}

// Registry is a Resolver whose entries can be managed.
type Registry interface {
	Resolver
	Register(ctx context.Context, defs ...core.ToolDefinition) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]core.ToolDefinition, error)
}

// Common sentinel errors.
var (
	ErrNotFound    = errors.New("tool definition not found")
	ErrInvalidName = errors.New("tool definition requires a name")
)

// File is the on-disk YAML layout accepted by LoadDefinitions.
type File struct {
	Tools []core.ToolDefinition `yaml:"tools"`
}

// LoadDefinitions decodes a YAML catalog file.
func LoadDefinitions(r io.Reader) ([]core.ToolDefinition, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	for i, d := range f.Tools {
		if d.Name == "" {
			return nil, fmt.Errorf("tool #%d: %w", i, ErrInvalidName)
		}
	}
	return f.Tools, nil
}

// terms splits s into lowercase words, also breaking camelCase identifiers
// ("getWeather" -> "get", "weather").
func terms(s string) []string {
	var (
		out []string
		cur []rune
	)
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	var prev rune
	for _, r := range s {
		switch {
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			flush()
			cur = append(cur, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			cur = append(cur, r)
		default:
			flush()
		}
		prev = r
	}
	flush()
	return out
}

// score counts how many query terms equal a term of the definition's name
// or description. Name hits weigh double.
func score(def core.ToolDefinition, query []string) int {
	name := termSet(def.Name)
	desc := termSet(def.Description)
	s := 0
	for _, q := range query {
		if name[q] {
			s += 2
		}
		if desc[q] {
			s++
		}
	}
	return s
}

func termSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range terms(s) {
		set[t] = true
	}
	return set
}

// rank filters defs to those matching query and orders them by score,
// keeping input order for ties. An empty query matches everything.
func rank(defs []core.ToolDefinition, query string, limit int) []core.ToolDefinition {
	q := terms(query)
	type hit struct {
		def   core.ToolDefinition
		score int
	}
	hits := make([]hit, 0, len(defs))
	for _, d := range defs {
		if len(q) == 0 {
			hits = append(hits, hit{def: d})
			continue
		}
		if s := score(d, q); s > 0 {
			hits = append(hits, hit{def: d, score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]core.ToolDefinition, len(hits))
	for i, h := range hits {
		out[i] = h.def
	}
	return out
}
