package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hupe1980/toolmesh"
	"github.com/hupe1980/toolmesh/core"
)

var (
	promptColor = color.New(color.FgGreen, color.Bold)
	replyColor  = color.New(color.FgCyan)
	toolColor   = color.New(color.FgYellow)
	errorColor  = color.New(color.FgRed)
)

func newChatCmd() *cobra.Command {
	var maxSteps int

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the model in the terminal",
		Long: `Reads one user message per line and runs turns until the model replies
in plain text or --max-steps turns have been taken. Type /exit to quit and
/tools to list the tools of the current window.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			o, err := rt.newOrchestrator()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max-steps") {
				maxSteps = rt.cfg.Orchestrator.MaxSteps
			}
			return chatLoop(cmd.Context(), o, cmd.InOrStdin(), cmd.OutOrStdout(), maxSteps)
		},
	}

	cmd.Flags().IntVar(&maxSteps, "max-steps", 5, "Maximum turns per user message (0 = unlimited)")

	return cmd
}

func chatLoop(ctx context.Context, o *toolmesh.Orchestrator, in io.Reader, out io.Writer, maxSteps int) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var conv core.Conversation
	scanner := bufio.NewScanner(in)
	for {
		promptColor.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/tools":
			tools := conv.LastActiveTools()
			if tools == nil {
				tools = o.BaseTools()
			}
			toolColor.Fprintln(out, strings.Join(core.ToolNames(tools), ", "))
			continue
		}

		start := conv.Len()
		next, err := o.Run(ctx, toolmesh.TurnInput{Conversation: conv, Query: line}, maxSteps)
		if err != nil && !errors.Is(err, core.ErrStepLimit) {
			errorColor.Fprintf(out, "error: %v\n", err)
			continue
		}
		printNew(out, next, start)
		if err != nil {
			errorColor.Fprintf(out, "stopped after %d turns\n", maxSteps)
		}
		conv = next
	}
}

// printNew prints the tool traffic and replies a run appended after the
// first prevLen messages.
func printNew(out io.Writer, conv core.Conversation, prevLen int) {
	msgs := conv.Messages()
	for i := prevLen; i < len(msgs); i++ {
		m := msgs[i]
		switch {
		case m.HasToolCall():
			toolColor.Fprintf(out, "  → %s(%s)\n", m.ToolCall.Name, m.ToolCall.Arguments)
		case m.Role == core.RoleFunction:
			toolColor.Fprintf(out, "  ← %s\n", truncate(m.Content, 200))
		case m.Role == core.RoleAssistant:
			replyColor.Fprintln(out, m.Content)
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
