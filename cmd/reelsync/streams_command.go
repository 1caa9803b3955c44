package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"reelsync/internal/api"
	"reelsync/internal/catalog"
	"reelsync/internal/config"
)

func newStreamsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "streams <title-id>",
		Short: "List the streams recorded for a title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTitleID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *catalog.Store) error {
				detail, err := api.NewCatalogService(store).Describe(cmd.Context(), id)
				if err != nil {
					return err
				}
				if detail == nil {
					return fmt.Errorf("title %d not found", id)
				}
				if jsonOutput {
					return writeJSON(cmd, detail.Streams)
				}
				renderStreams(cmd.OutOrStdout(), detail.Streams)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderStreams(out io.Writer, streams []api.Stream) {
	if len(streams) == 0 {
		fmt.Fprintln(out, "No streams recorded")
		return
	}
	rows := make([][]string, 0, len(streams))
	for _, stream := range streams {
		rows = append(rows, []string{
			strconv.FormatInt(stream.ID, 10),
			dashIfEmpty(stream.Label),
			dashIfEmpty(stream.Quality),
			stream.URL,
		})
	}
	fmt.Fprintln(out, renderTable(out,
		[]string{"ID", "Label", "Quality", "URL"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	))
}
