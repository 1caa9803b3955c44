package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"reelsync/internal/api"
	"reelsync/internal/catalog"
	"reelsync/internal/config"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize catalog contents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *catalog.Store) error {
				stats, err := api.NewCatalogService(store).Stats(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, stats)
				}
				out := cmd.OutOrStdout()
				rows := [][]string{
					{"Titles", strconv.FormatInt(stats.Titles, 10)},
					{"Linked", strconv.FormatInt(stats.Linked, 10)},
					{"Unlinked", strconv.FormatInt(stats.Unlinked, 10)},
					{"Streams", strconv.FormatInt(stats.Streams, 10)},
				}
				fmt.Fprintln(out, renderTable(out, []string{"Catalog", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				fmt.Fprintf(out, "Database: %s\n", store.Path())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
