package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/templui/goaltrack/cmd/goalctl/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "goalctl",
		Short:        "Operations tooling for goaltrack",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cmd.MigrateCmd())
	rootCmd.AddCommand(cmd.ReconcileCmd())
	rootCmd.AddCommand(cmd.ExportCmd())
	rootCmd.AddCommand(cmd.TokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
