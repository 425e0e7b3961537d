package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/templui/goaltrack/internal/app"
)

func ReconcileCmd() *cobra.Command {
	var dryRun bool

	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute accumulated minutes of goals that drifted from their time logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				out := cmd.OutOrStdout()

				if dryRun {
					drifts, err := a.Reconciler.Scan(cmd.Context())
					if err != nil {
						return err
					}
					for _, d := range drifts {
						fmt.Fprintf(out, "%s\tstored=%d\tlogged=%d\n", d.GoalID, d.AccumulatedMinutes, d.LoggedMinutes)
					}
					fmt.Fprintf(out, "%d goal(s) drifted\n", len(drifts))
					return nil
				}

				report, err := a.Reconciler.Run(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%d goal(s) drifted, %d repaired\n", report.Drifted, report.Repaired)
				return nil
			})
		},
	}

	reconcileCmd.Flags().BoolVar(&dryRun, "dry-run", false, "list drifted goals without repairing them")
	return reconcileCmd
}
