package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/templui/goaltrack/internal/app"
)

func ExportCmd() *cobra.Command {
	var (
		userID string
		stdout bool
	)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export a user's goals and time logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				out := cmd.OutOrStdout()

				if stdout {
					doc, err := a.ExportService.Build(cmd.Context(), userID)
					if err != nil {
						return err
					}
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(doc)
				}

				export, err := a.ExportService.Export(cmd.Context(), userID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "exported %d goal(s) to %s\n%s\n", export.Goals, export.Key, export.URL)
				return nil
			})
		},
	}

	exportCmd.Flags().StringVar(&userID, "user", "", "user ID to export (required)")
	exportCmd.Flags().BoolVar(&stdout, "stdout", false, "print the export instead of uploading it")
	exportCmd.MarkFlagRequired("user")
	return exportCmd
}
