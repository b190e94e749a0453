package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/pdqa/internal/app"
	"github.com/doeshing/pdqa/internal/domain"
	"github.com/doeshing/pdqa/internal/infrastructure/cli/helpers"
	"github.com/doeshing/pdqa/internal/infrastructure/history"
)

// NewHistoryCommand creates the history command with all subcommands
func NewHistoryCommand(container *app.Container) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect questions asked from this machine",
	}

	historyCmd.AddCommand(
		newHistoryListCommand(container),
		newHistorySearchCommand(container),
		newHistoryClearCommand(container),
		newHistoryExportCommand(container),
		newHistoryStatsCommand(container),
		newHistoryRetainCommand(container),
	)

	return historyCmd
}

func newHistoryListCommand(container *app.Container) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent history entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listHistoryEntries(cmd.Context(), cmd.OutOrStdout(), container, limit, "")
		},
	}

	cmd.Flags().IntVar(&limit, "limit", domain.DefaultHistoryLimit, "Max entries to show")
	return cmd
}

func newHistorySearchCommand(container *app.Container) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <keyword...>",
		Short: "Search questions and answers, or match a query id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listHistoryEntries(cmd.Context(), cmd.OutOrStdout(), container, limit, strings.Join(args, " "))
		},
	}

	cmd.Flags().IntVar(&limit, "limit", domain.DefaultHistorySearchLimit, "Limit search results")
	return cmd
}

func newHistoryClearCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all history entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := historyStore(container)
			if err != nil {
				return err
			}
			if err := store.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), MsgHistoryCleared)
			return nil
		},
	}
}

func newHistoryExportCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "export <path|->",
		Short: "Export history as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return exportHistory(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), container, args[0])
		},
	}
}

func newHistoryStatsCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show completion rate, top questions and most cited documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := historyStore(container)
			if err != nil {
				return err
			}
			records, err := store.Records(cmd.Context(), MaxHistoryAnalysisRecords, "")
			if err != nil {
				return fmt.Errorf("failed to retrieve history for analysis: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, domain.MsgNoHistoryRecord)
				return nil
			}
			helpers.RenderHistoryStatistics(out, helpers.AnalyzeHistory(records))
			return nil
		},
	}
}

func newHistoryRetainCommand(container *app.Container) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "retain",
		Short: "Prune history older than N days and update retention policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				return errors.New(ErrInvalidRetainDays)
			}
			return updateHistoryRetention(cmd.Context(), cmd.OutOrStdout(), container, days)
		},
	}

	cmd.Flags().IntVar(&days, "days", domain.DefaultHistoryRetainDays, "Days to retain history")
	return cmd
}

func historyStore(container *app.Container) (history.Store, error) {
	if container.HistoryStore != nil {
		return container.HistoryStore, nil
	}
	if container.HistoryErr != nil {
		return nil, fmt.Errorf("history store unavailable: %w", container.HistoryErr)
	}
	return nil, errors.New("history store unavailable")
}

func listHistoryEntries(ctx context.Context, out io.Writer, container *app.Container, limit int, search string) error {
	store, err := historyStore(container)
	if err != nil {
		return err
	}

	records, err := store.Records(ctx, limit, search)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, domain.MsgNoHistoryRecord)
		return nil
	}

	helpers.RenderHistory(out, records)
	return nil
}

func exportHistory(ctx context.Context, stdout, stderr io.Writer, container *app.Container, path string) error {
	store, err := historyStore(container)
	if err != nil {
		return err
	}

	w := stdout
	if path != "-" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, domain.SecureFilePermissions)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}

	n, err := history.ExportJSONL(ctx, store, w)
	if err != nil {
		return fmt.Errorf("failed to export history to %s: %w", path, err)
	}
	if path != "-" {
		fmt.Fprintf(stderr, "Exported %d entries to %s\n", n, path)
	}
	return nil
}

func updateHistoryRetention(ctx context.Context, out io.Writer, container *app.Container, days int) error {
	store, err := historyStore(container)
	if err != nil {
		return err
	}

	removed, err := store.Prune(ctx, time.Now().Add(-time.Duration(days)*24*time.Hour))
	if err != nil {
		return fmt.Errorf("failed to prune old history: %w", err)
	}

	cfg, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.History.RetentionDays = days
	if err := helpers.SaveConfigWithValidation(container, cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "Removed %d entries; retaining the last %d days of history.\n", removed, days)
	return nil
}
