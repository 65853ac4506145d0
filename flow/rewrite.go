package flow

import "github.com/hupe1980/toolmesh/core"

// Rewrite returns [system(systemPrompt)] followed by every non-system message
// of prior in order, plus a trailing user message when query is not empty.
// prior is never modified.
func Rewrite(prior core.Conversation, systemPrompt, query string) core.Conversation {
	rest := prior.Filter(func(m core.Message) bool { return m.Role != core.RoleSystem })

	out := core.NewConversation(core.NewSystemMessage(systemPrompt)).Append(rest.Messages()...)
	if query != "" {
		out = out.Append(core.NewUserMessage(query))
	}
	return out
}
