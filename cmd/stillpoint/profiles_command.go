package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stillpoint/internal/presence"
)

func newProfilesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the configured visual profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			registry, err := presence.NewRegistry(cfg)
			if err != nil {
				return err
			}

			defaultName := registry.Default().Name
			rows := make([][]string, 0, len(registry.Names()))
			for _, name := range registry.Names() {
				profile, _ := registry.Lookup(name)
				display := displayProfileName(name)
				if name == defaultName {
					display += " (default)"
				}
				rows = append(rows, []string{
					display,
					fmt.Sprintf("%.0f-%.0f", profile.MinSize, profile.MaxSize),
					fmt.Sprintf("%.2f-%.2f", profile.MultiplierMin, profile.MultiplierMax),
					fmt.Sprintf("%.0f", profile.ImmersionThreshold),
					fmt.Sprintf("%.2f", profile.SmoothingFactor),
				})
			}

			headers := []string{"Profile", "Size", "Multiplier", "Threshold", "Smoothing"}
			aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(headers, rows, aligns))
			fmt.Fprintf(out, "Size ceiling: %.0f\n", registry.Ceiling())
			return nil
		},
	}
}
