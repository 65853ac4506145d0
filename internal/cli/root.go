// Package cli implements the toolmesh command line: a REST server, an
// interactive chat loop and catalog maintenance commands.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	configPath   string
	outputFormat string
)

// NewRootCmd creates the top-level toolmesh CLI command with all subcommands.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toolmesh",
		Short: "Tool-calling orchestrator with on-demand tool discovery",
		Long: `toolmesh lets a language model discover HTTP tools from a catalog while
keeping only a bounded window of them visible per turn.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table|json|yaml")

	cmd.AddCommand(
		newServeCmd(),
		newChatCmd(),
		newCatalogCmd(),
	)

	return cmd
}
