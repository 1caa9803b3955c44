package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reelsync/internal/api"
	"reelsync/internal/catalog"
	"reelsync/internal/config"
)

func newTitlesCommand(ctx *commandContext) *cobra.Command {
	titlesCmd := &cobra.Command{
		Use:   "titles",
		Short: "Inspect and manage catalog titles",
	}
	titlesCmd.AddCommand(newTitlesListCommand(ctx))
	titlesCmd.AddCommand(newTitlesShowCommand(ctx))
	titlesCmd.AddCommand(newTitlesRemoveCommand(ctx))
	return titlesCmd
}

func newTitlesListCommand(ctx *commandContext) *cobra.Command {
	var (
		query      api.ListQuery
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog titles, newest release year first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *catalog.Store) error {
				items, err := api.NewCatalogService(store).List(cmd.Context(), query)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.TitleListResponse{Items: items})
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No titles found")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						item.Title,
						formatYear(item.Year),
						dashIfEmpty(item.IMDBID),
						formatRating(item.Rating),
						dashIfEmpty(strings.Join(item.Genres, ", ")),
					})
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"ID", "Title", "Year", "IMDb", "Rating", "Genres"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&query.LinkedOnly, "linked", false, "Only show titles linked to IMDb")
	cmd.Flags().IntVar(&query.Limit, "limit", 100, "Maximum number of titles to show")
	cmd.Flags().IntVar(&query.Offset, "offset", 0, "Number of titles to skip")
	cmd.Flags().StringVar(&query.Search, "search", "", "Case-insensitive substring match on the title")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newTitlesShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <title-id>",
		Short: "Show one title with its streams",
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
					return writeJSON(cmd, detail)
				}
				renderTitleDetail(cmd, detail)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newTitlesRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <title-id>",
		Short: "Delete a title and its streams",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTitleID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *catalog.Store) error {
				if err := store.DeleteTitle(cmd.Context(), id); err != nil {
					if errors.Is(err, catalog.ErrNotFound) {
						return fmt.Errorf("title %d not found", id)
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed title %d\n", id)
				return nil
			})
		},
	}
}

func renderTitleDetail(cmd *cobra.Command, detail *api.TitleDetail) {
	out := cmd.OutOrStdout()
	title := detail.Title
	rows := [][]string{
		{"ID", strconv.FormatInt(title.ID, 10)},
		{"Title", title.Title},
		{"Year", formatYear(title.Year)},
		{"Linked", yesNo(title.Linked)},
		{"IMDb", dashIfEmpty(title.IMDBID)},
		{"TMDB", formatTMDBID(title.TMDBID)},
		{"Rating", formatRating(title.Rating)},
		{"Runtime", formatRuntime(title.Runtime)},
		{"Language", dashIfEmpty(title.Language)},
		{"Genres", dashIfEmpty(strings.Join(title.Genres, ", "))},
		{"Poster", dashIfEmpty(title.Poster)},
		{"Description", dashIfEmpty(title.Description)},
		{"Updated", dashIfEmpty(title.UpdatedAt)},
	}
	fmt.Fprintln(out, renderTable(out, []string{"Field", "Value"}, rows, nil))
	fmt.Fprintln(out)
	renderStreams(out, detail.Streams)
}

func formatYear(year int) string {
	if year == 0 {
		return "-"
	}
	return strconv.Itoa(year)
}

func formatRating(rating float64) string {
	if rating == 0 {
		return "-"
	}
	return strconv.FormatFloat(rating, 'f', 1, 64)
}

func formatRuntime(minutes int) string {
	if minutes == 0 {
		return "-"
	}
	return fmt.Sprintf("%d min", minutes)
}

func formatTMDBID(id int64) string {
	if id == 0 {
		return "-"
	}
	return strconv.FormatInt(id, 10)
}

func dashIfEmpty(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
