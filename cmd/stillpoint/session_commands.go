package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	var profile string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a meditation session",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				SessionID string `json:"session_id"`
			}
			body := map[string]string{"profile": profile}
			if err := ctx.postJSON("/api/session/start", body, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session started: %s\n", resp.SessionID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&profile, "profile", "p", "", "Visual profile for the session (default profile when omitted)")
	return cmd
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the active session and submit it",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				ElapsedSeconds   int `json:"elapsed_seconds"`
				RemainingSeconds int `json:"remaining_seconds"`
			}
			if err := ctx.postJSON("/api/session/stop", nil, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session stopped after %s\n", formatDuration(resp.ElapsedSeconds))
			return nil
		},
	}
}

func newSwitchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "switch <profile>",
		Short: "Switch the active session to a different profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"profile": args[0]}
			if err := ctx.postJSON("/api/session/profile", body, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Switched to profile %s\n", args[0])
			return nil
		},
	}
}
