package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

func newToolsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:         "tools",
		Short:       "List the tools available to --tool",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := ctx.toolRegistry()
			if err != nil {
				return err
			}

			type toolView struct {
				Ref         string         `json:"ref"`
				Name        string         `json:"name"`
				Description string         `json:"description,omitempty"`
				Strict      bool           `json:"strict"`
				Parameters  map[string]any `json:"parameters"`
			}
			var views []toolView
			for _, ref := range registry.Refs() {
				desc, err := registry.Describe(ref)
				if err != nil {
					return fmt.Errorf("describe %s: %w", ref, err)
				}
				views = append(views, toolView{
					Ref:         ref,
					Name:        desc.Name,
					Description: desc.Description,
					Strict:      desc.Strict,
					Parameters:  desc.Parameters,
				})
			}

			if asJSON {
				return writeJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "No tools registered")
				return nil
			}
			rows := make([][]string, 0, len(views))
			for _, view := range views {
				rows = append(rows, []string{view.Name, yesNo(view.Strict), parameterNames(view.Parameters), view.Description})
			}
			fmt.Fprintln(out, renderTable(out, []column{
				{title: "Name"},
				{title: "Strict"},
				{title: "Parameters"},
				{title: "Description"},
			}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print tool descriptors as JSON")
	return cmd
}

func parameterNames(schema map[string]any) string {
	props, ok := schema["properties"].(map[string]any)
	if !ok || len(props) == 0 {
		return "-"
	}
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}
