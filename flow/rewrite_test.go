package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/internal/testutil"
)

func roles(conv core.Conversation) []core.Role {
	out := make([]core.Role, conv.Len())
	for i, m := range conv.Messages() {
		out[i] = m.Role
	}
	return out
}

func TestRewrite_FreshConversation(t *testing.T) {
	got := Rewrite(core.Conversation{}, "You are helpful.", "hi")

	require.Equal(t, 2, got.Len())
	assert.Equal(t, core.RoleSystem, got.At(0).Role)
	assert.Equal(t, "You are helpful.", got.At(0).Content)
	assert.Equal(t, core.RoleUser, got.At(1).Role)
	assert.Equal(t, "hi", got.At(1).Content)
}

func TestRewrite_ReplacesSystemAndPreservesOrder(t *testing.T) {
	prior := testutil.NewConversationBuilder().
		System("old").
		User("u1").
		ToolCall("c1", "find_tools", `{"query":"x"}`).
		FunctionResult("c1", "find_tools", "Found").
		System("stray").
		Assistant("a1").
		Build()

	got := Rewrite(prior, "new", "")

	assert.Equal(t, []core.Role{core.RoleSystem, core.RoleUser, core.RoleAssistant, core.RoleFunction, core.RoleAssistant}, roles(got))
	assert.Equal(t, "new", got.At(0).Content)
	msgs := got.Messages()
	assert.Equal(t, []string{"m2", "m3", "m4", "m6"}, []string{msgs[1].ID, msgs[2].ID, msgs[3].ID, msgs[4].ID})
}

func TestRewrite_DoesNotMutatePrior(t *testing.T) {
	prior := testutil.NewConversationBuilder().System("old").User("u1").Build()
	before := prior.Messages()

	_ = Rewrite(prior, "new", "next")

	assert.Equal(t, before, prior.Messages())
}
