package main

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"spendtracker/internal/cli"
	"spendtracker/internal/tui"
)

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Launch the interactive terminal UI",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			// The screen belongs to Bubble Tea; keep logs out of it.
			logger := cli.SetupLogger(cfg, io.Discard)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			pub, async, err := cli.Publisher(ctx, cfg, logger)
			if err != nil {
				return err
			}
			ledger, err := cli.OpenLedger(ctx, cfg, pub, logger)
			if err != nil {
				_ = pub.Close()
				return err
			}

			drained := make(chan struct{})
			if async != nil {
				go func() {
					_ = async.Run(ctx)
					close(drained)
				}()
			} else {
				close(drained)
			}

			app := tui.NewApp(ctx, ledger, cfg.CurrencySymbol)
			_, runErr := tea.NewProgram(app, tea.WithAltScreen()).Run()

			cancel()
			<-drained
			if err := ledger.Close(); err != nil {
				logger.Error("Ledger close failed", "error", err)
			}
			if runErr != nil {
				return fmt.Errorf("TUI error: %w", runErr)
			}
			return nil
		},
	}
}
