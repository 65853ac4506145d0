package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hupe1980/toolmesh/core"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the tool catalog",
	}
	cmd.AddCommand(newCatalogImportCmd(), newCatalogSearchCmd(), newCatalogListCmd())
	return cmd
}

func newCatalogImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>...",
		Short: "Register tool definitions from YAML files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()
			if rt.registry == nil {
				return errors.New("the configured catalog is read-only")
			}

			defs, err := importFiles(cmd.Context(), rt.registry, args)
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "imported %d tools\n", len(defs))
			return nil
		},
	}
}

func newCatalogSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the catalog the way the model does",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			defs, err := rt.resolver.Resolve(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			return printDefinitions(cmd, defs)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 5, "Maximum number of results")

	return cmd
}

func newCatalogListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every registered tool",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()
			if rt.registry == nil {
				return errors.New("the configured catalog cannot be listed")
			}

			defs, err := rt.registry.List(cmd.Context())
			if err != nil {
				return err
			}
			return printDefinitions(cmd, defs)
		},
	}
}

func printDefinitions(cmd *cobra.Command, defs []core.ToolDefinition) error {
	if defs == nil {
		defs = []core.ToolDefinition{}
	}
	rows := make([][]string, 0, len(defs))
	for _, d := range defs {
		endpoint := "-"
		if d.HTTP != nil {
			endpoint = fmt.Sprintf("%s %s", strings.ToUpper(d.HTTP.Verb), d.HTTP.Path)
		}
		rows = append(rows, []string{d.Name, endpoint, d.Description})
	}
	return printOutput(cmd.OutOrStdout(), defs, []string{"NAME", "ENDPOINT", "DESCRIPTION"}, rows)
}
