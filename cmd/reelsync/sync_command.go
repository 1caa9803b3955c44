package main

import (
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"reelsync/internal/api"
	"reelsync/internal/catalog"
	"reelsync/internal/config"
	"reelsync/internal/syncer"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var (
		full       bool
		mode       string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if full {
				if mode != "" && mode != config.ModeFull {
					return errors.New("--full conflicts with --mode " + mode)
				}
				mode = config.ModeFull
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			lock := flock.New(cfg.LockPath())
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("a reelsync daemon owns %s; trigger a run with POST /api/sync instead", cfg.Paths.DataDir)
			}
			defer lock.Unlock() //nolint:errcheck

			logger, err := ctx.commandLogger(cfg)
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return ctx.withStore(func(cfg *config.Config, store *catalog.Store) error {
				orchestrator, err := syncer.Build(cfg, store, logger)
				if err != nil {
					return err
				}
				summary, runErr := orchestrator.Run(signalCtx, mode)
				if jsonOutput {
					if err := writeJSON(cmd, api.FromSummary(summary)); err != nil {
						return err
					}
					return runErr
				}
				if summary.RunID != "" {
					printSummary(cmd, summary)
				}
				return runErr
			})
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Crawl every listing page instead of only the first")
	cmd.Flags().StringVar(&mode, "mode", "", "Crawl mode (incremental or full); defaults to sync.mode")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output summary as JSON")
	return cmd
}

func printSummary(cmd *cobra.Command, summary syncer.Summary) {
	out := cmd.OutOrStdout()
	rows := [][]string{
		{"Run", summary.RunID},
		{"Mode", summary.Mode},
		{"Pages", strconv.Itoa(summary.Pages)},
		{"Candidates", strconv.Itoa(summary.Candidates)},
		{"Skipped", strconv.Itoa(summary.Skipped)},
		{"No stream", strconv.Itoa(summary.NoMedia)},
		{"Stored", strconv.Itoa(summary.Stored)},
		{"Linked", strconv.Itoa(summary.Linked)},
		{"Failed", strconv.Itoa(summary.Failed)},
		{"Duration", summary.Duration.Round(10 * time.Millisecond).String()},
	}
	fmt.Fprintln(out, renderTable(out, []string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
}
