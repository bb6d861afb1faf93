package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"stillpoint/internal/clock"
	"stillpoint/internal/kvstore"
	"stillpoint/internal/logging"
	"stillpoint/internal/retryqueue"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := kvstore.Open(cfg, clock.System())
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			entries, err := store.ListHistory(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No archived sessions")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					shortID(entry.SessionID),
					displayProfileName(entry.ProfileType),
					formatDuration(entry.DurationSeconds),
					entry.CompletedAt.Local().Format(time.RFC3339),
				})
			}
			headers := []string{"Session", "Profile", "Duration", "Completed"}

			if isatty.IsTerminal(os.Stdout.Fd()) {
				aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}
				fmt.Fprintln(out, renderTable(headers, rows, aligns))
				return nil
			}
			for _, row := range rows {
				fmt.Fprintln(out, strings.Join(row, "\t"))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of sessions to list")
	return cmd
}

func newPendingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List sessions awaiting resubmission",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := kvstore.Open(cfg, clock.System())
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			queue := retryqueue.New(store, nil, logging.NewNop(), cfg.Session.RetryQueueLimit)
			records, err := queue.Pending(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "Retry queue is empty")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, record := range records {
				completed := time.UnixMilli(record.CompletedAtMs).Local().Format(time.RFC3339)
				rows = append(rows, []string{
					shortID(record.SessionID),
					displayProfileName(record.ProfileType),
					formatDuration(record.DurationSeconds),
					completed,
				})
			}
			headers := []string{"Session", "Profile", "Duration", "Completed"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}
			fmt.Fprintln(out, renderTable(headers, rows, aligns))
			fmt.Fprintf(out, "%d of %d queue slots used\n", len(records), cfg.Session.RetryQueueLimit)
			return nil
		},
	}
}

func newFlushCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Ask the daemon to resubmit queued sessions now",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Succeeded   int `json:"succeeded"`
				StillFailed int `json:"still_failed"`
			}
			if err := ctx.postJSON("/api/flush", nil, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Flushed retry queue: %d submitted, %d still pending\n",
				resp.Succeeded, resp.StillFailed)
			return nil
		},
	}
}

func shortID(id string) string {
	if idx := strings.IndexByte(id, '-'); idx > 0 {
		return id[:idx]
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
