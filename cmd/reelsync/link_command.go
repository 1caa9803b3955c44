package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"reelsync/internal/api"
	"reelsync/internal/catalog"
	"reelsync/internal/config"
	"reelsync/internal/identification"
	"reelsync/internal/linking"
)

func newLinkCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "link <title-id> <imdb-id>",
		Short: "Link a title to an IMDb id and merge its TMDB metadata",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTitleID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				logger, err := ctx.commandLogger(cfg)
				if err != nil {
					return err
				}
				resolver, err := identification.NewResolverFromConfig(cfg, logger)
				if err != nil {
					return err
				}
				if !resolver.Enabled() {
					return errors.New("tmdb.api_key is not configured (or export TMDB_API_KEY)")
				}

				title, err := linking.New(store, resolver, logger).Link(cmd.Context(), id, args[1])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.FromTitle(title))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Linked %q (%s) to %s\n", title.Title, formatYear(title.Year), title.IMDBID)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output linked title as JSON")
	return cmd
}
