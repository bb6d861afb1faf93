package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type engineStatus struct {
	Running          bool    `json:"running"`
	SessionActive    bool    `json:"session_active"`
	SessionID        string  `json:"session_id"`
	Profile          string  `json:"profile"`
	TimerRunning     bool    `json:"timer_running"`
	HasTarget        bool    `json:"has_target"`
	TargetSeconds    int     `json:"target_seconds"`
	ElapsedSeconds   int     `json:"elapsed_seconds"`
	RemainingSeconds int     `json:"remaining_seconds"`
	Multiplier       float64 `json:"multiplier"`
	PresenceSize     float64 `json:"presence_size"`
	ImmersionLevel   float64 `json:"immersion_level"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Running  bool         `json:"running"`
				Engine   engineStatus `json:"engine"`
				DBPath   string       `json:"db_path"`
				LockPath string       `json:"lock_path"`
			}
			if err := ctx.getJSON("/api/status", &resp); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon running: %s\n", yesNo(resp.Running))
			fmt.Fprintf(out, "Database: %s\n", resp.DBPath)
			fmt.Fprintln(out, renderStatus(resp.Engine))
			return nil
		},
	}
}

func renderStatus(status engineStatus) string {
	rows := [][]string{
		{"Session active", yesNo(status.SessionActive)},
	}
	if status.SessionActive {
		rows = append(rows,
			[]string{"Session ID", status.SessionID},
			[]string{"Profile", displayProfileName(status.Profile)},
		)
	}
	rows = append(rows,
		[]string{"Timer running", yesNo(status.TimerRunning)},
		[]string{"Elapsed", formatDuration(status.ElapsedSeconds)},
	)
	if status.HasTarget {
		rows = append(rows,
			[]string{"Target", formatDuration(status.TargetSeconds)},
			[]string{"Remaining", formatDuration(status.RemainingSeconds)},
		)
	}
	rows = append(rows,
		[]string{"Multiplier", fmt.Sprintf("%.2f", status.Multiplier)},
		[]string{"Presence size", fmt.Sprintf("%.1f", status.PresenceSize)},
		[]string{"Immersion", fmt.Sprintf("%.2f", status.ImmersionLevel)},
	)
	return renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft})
}
