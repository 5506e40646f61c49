package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"spendtracker/internal/cli"
	apphttp "spendtracker/internal/http"
	"spendtracker/internal/log"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web UI",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			logger := cli.SetupLogger(cfg, cmd.OutOrStdout())

			ctx, stop := cli.GracefulShutdown(cmd.Context(), logger)
			defer stop()

			pub, async, err := cli.Publisher(ctx, cfg, logger)
			if err != nil {
				return err
			}
			ledger, err := cli.OpenLedger(ctx, cfg, pub, logger)
			if err != nil {
				_ = pub.Close()
				return err
			}
			defer func() {
				if err := ledger.Close(); err != nil {
					logger.Error("Ledger close failed", log.FieldError, err)
				}
			}()

			opts := apphttp.Options{
				Addr:               ":" + cfg.Port,
				Currency:           cfg.CurrencySymbol,
				RateLimitPerMinute: cfg.RateLimitPerMinute,
				ReportCacheTTL:     cfg.ReportCacheTTL,
				ShutdownTimeout:    cfg.ShutdownTimeout,
				Logger:             logger,
				Ready:              ledger.Ready,
			}
			if async != nil {
				opts.Events = async
			}
			srv, err := apphttp.NewServer(opts, ledger)
			if err != nil {
				return err
			}

			logger.Info("Starting spendtracker",
				log.FieldOperation, log.OpStartup,
				"port", cfg.Port,
				"backend", cfg.LedgerBackend,
				"events", cfg.EventsEnabled())

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Run(gctx) })
			if async != nil {
				g.Go(func() error { return async.Run(gctx) })
			}
			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.Info("Server stopped gracefully")
			return nil
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")
	return cmd
}
