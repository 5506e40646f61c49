package main

import (
	"github.com/spf13/cobra"

	"spendtracker/internal/cli"
)

var flagEnvFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "spendtracker",
		Short: "Monthly expense tracker",
		Long:  "Record expenses, review them by category and export reports, from the browser or the terminal.",
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if flagEnvFile != "" {
				cli.LoadEnvFile(flagEnvFile)
			} else {
				cli.LoadEnvFile()
			}
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "dotenv file to load (default .env)")

	serve := newServeCmd()
	root.AddCommand(serve, newTUICmd(), newEventsCmd())

	// Bare invocation serves the web UI.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())
	return root
}
