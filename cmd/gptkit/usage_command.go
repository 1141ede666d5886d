package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"gptkit/internal/usage"
)

func newUsageCommand(ctx *commandContext) *cobra.Command {
	var recent int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show recorded token usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openUsage()
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("usage ledger is disabled; set [usage] enabled = true in the config")
			}
			defer store.Close()

			totals, err := store.Totals(cmd.Context())
			if err != nil {
				return err
			}
			var entries []usage.Entry
			if recent > 0 {
				if entries, err = store.Recent(cmd.Context(), recent); err != nil {
					return err
				}
			}

			if asJSON {
				return writeJSON(cmd, map[string]any{"totals": totals, "recent": entries})
			}

			out := cmd.OutOrStdout()
			if len(totals) == 0 {
				fmt.Fprintf(out, "No usage recorded in %s\n", store.Path())
				return nil
			}
			rows := make([][]string, 0, len(totals))
			for _, total := range totals {
				rows = append(rows, []string{
					total.Model,
					strconv.Itoa(total.Requests),
					strconv.Itoa(total.PromptTokens),
					strconv.Itoa(total.CompletionTokens),
					strconv.Itoa(total.TotalTokens),
				})
			}
			fmt.Fprintln(out, renderTable(out, []column{
				{title: "Model"},
				{title: "Requests", alignRight: true},
				{title: "Prompt", alignRight: true},
				{title: "Completion", alignRight: true},
				{title: "Total", alignRight: true},
			}, rows))

			if len(entries) > 0 {
				rows = rows[:0]
				for _, entry := range entries {
					tool := entry.Tool
					if tool == "" {
						tool = "-"
					}
					rows = append(rows, []string{
						entry.CreatedAt.Local().Format("2006-01-02 15:04:05"),
						entry.Model,
						tool,
						strconv.Itoa(entry.TotalTokens),
					})
				}
				fmt.Fprintln(out, renderTable(out, []column{
					{title: "When"},
					{title: "Model"},
					{title: "Tool"},
					{title: "Total", alignRight: true},
				}, rows))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&recent, "recent", "n", 0, "Also list the N most recent requests")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print usage as JSON")
	cmd.AddCommand(newUsageClearCommand(ctx))
	return cmd
}

func newUsageClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openUsage()
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("usage ledger is disabled; set [usage] enabled = true in the config")
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d usage entries\n", removed)
			return nil
		},
	}
}
