package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newBreathCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "breath <amplitude>",
		Short: "Feed a single breath amplitude sample to the daemon",
		Long:  "Feeds one normalized breath amplitude (0.0-1.0) to the daemon and prints the resulting presence output. Intended for testing the mapping pipeline without a sensor bridge.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amplitude, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("parse amplitude %q: %w", args[0], err)
			}
			var resp struct {
				Size           float64 `json:"size"`
				ImmersionLevel float64 `json:"immersion_level"`
			}
			body := map[string]float64{"amplitude": amplitude}
			if err := ctx.postJSON("/api/breath", body, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "size=%.1f immersion=%.2f\n", resp.Size, resp.ImmersionLevel)
			return nil
		},
	}
}

func newMultiplierCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "multiplier <value>",
		Short: "Set the user size multiplier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("parse multiplier %q: %w", args[0], err)
			}
			body := map[string]float64{"multiplier": value}
			if err := ctx.postJSON("/api/multiplier", body, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Multiplier set to %.2f\n", value)
			return nil
		},
	}
}
