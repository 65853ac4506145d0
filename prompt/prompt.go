// Package prompt composes the system instructions sent with every turn: the
// base personality prompt, a usage block for dynamically discovered tools
// and an optional description of the static request context.
//
// Composition is a pure function of its inputs; identical inputs always
// produce identical text.
package prompt

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/tool"
)

// Block titles and field labels of the request context block.
const (
	ContextTitle         = "Request context:"
	LabelHeaders         = "Headers:"
	LabelBody            = "Request body:"
	LabelPathParameters  = "Path parameters:"
	LabelQueryParameters = "Query parameters:"
)

const toolUsageDirectives = `- Only call these tools once you know every required parameter.
- If required information is missing, keep asking the user for it instead of guessing.
- After calling a tool, incorporate its result into your reply.`

// Compose builds the system prompt for one turn.
func Compose(base string, active []tool.Tool, ctx *core.StaticRequestContext) (string, error) {
	blocks := make([]string, 0, 3)
	if base != "" {
		blocks = append(blocks, base)
	}

	if usage := dynamicBlock(active); usage != "" {
		blocks = append(blocks, usage)
	}

	if !ctx.IsEmpty() {
		block, err := contextBlock(ctx)
		if err != nil {
			return "", err
		}
		blocks = append(blocks, block)
	}

	return strings.Join(blocks, "\n\n"), nil
}

func dynamicBlock(active []tool.Tool) string {
	var names []string
	for _, t := range active {
		if t.Dynamic() {
			names = append(names, t.Name())
		}
	}
	if len(names) == 0 {
		return ""
	}
	return fmt.Sprintf("The following tools were discovered for this conversation: %s.\n%s",
		strings.Join(names, ", "), toolUsageDirectives)
}

func contextBlock(ctx *core.StaticRequestContext) (string, error) {
	var b strings.Builder
	b.WriteString(ContextTitle)

	write := func(label string, v any) error {
		out, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("serialize %s: %w", strings.TrimSuffix(strings.ToLower(label), ":"), err)
		}
		b.WriteString("\n")
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(indent(strings.TrimRight(string(out), " \t\r\n")))
		return nil
	}

	if len(ctx.Headers) > 0 {
		if err := write(LabelHeaders, ctx.Headers); err != nil {
			return "", err
		}
	}
	if ctx.Body != nil {
		if err := write(LabelBody, ctx.Body); err != nil {
			return "", err
		}
	}
	if len(ctx.PathParameters) > 0 {
		if err := write(LabelPathParameters, ctx.PathParameters); err != nil {
			return "", err
		}
	}
	if len(ctx.QueryParameters) > 0 {
		if err := write(LabelQueryParameters, ctx.QueryParameters); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight("  "+l, " \t")
	}
	return strings.Join(lines, "\n")
}
