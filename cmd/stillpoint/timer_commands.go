package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newTargetCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "target <seconds>",
		Short: "Set the countdown target, or 0 for an open-ended session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("parse target %q: %w", args[0], err)
			}
			body := map[string]int{"seconds": seconds}
			if err := ctx.postJSON("/api/timer/target", body, nil); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if seconds <= 0 {
				fmt.Fprintln(out, "Timer target cleared; sessions will count up")
				return nil
			}
			fmt.Fprintf(out, "Timer target set to %s\n", formatDuration(seconds))
			return nil
		},
	}
	return cmd
}

func newValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Force a timer consistency check after suspected sleep or stall",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status engineStatus
			if err := ctx.postJSON("/api/timer/validate", nil, &status); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderStatus(status))
			return nil
		},
	}
}
