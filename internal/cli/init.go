// Package cli holds the start-up steps shared by the spendtracker commands:
// environment, configuration, logging, ledger and event wiring.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"spendtracker/internal/backend"
	"spendtracker/internal/config"
	"spendtracker/internal/events"
	"spendtracker/internal/log"
	"spendtracker/internal/services"
)

const (
	eventQueueSize   = 256
	amqpDialAttempts = 3
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile(paths ...string) {
	_ = godotenv.Load(paths...)
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the application logger from cfg and installs it as the
// slog default.
func SetupLogger(cfg *config.Config, out io.Writer) *log.Logger {
	level, _ := log.ParseLevel(cfg.LogLevel)
	if out == nil {
		out = os.Stdout
	}
	logger := log.New(log.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    out,
	})
	log.SetDefault(logger)
	return logger
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM.
func GracefulShutdown(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		if parent.Err() == nil {
			logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
		}
	}()
	return ctx, stop
}

// Publisher returns the event publisher for cfg. When AMQP is configured the
// broker client sits behind an Async queue that the caller must Run; otherwise
// async is nil and publishing is a no-op.
func Publisher(ctx context.Context, cfg *config.Config, logger *log.Logger) (pub events.Publisher, async *events.Async, err error) {
	if !cfg.EventsEnabled() {
		logger.Info("AMQP_URL not set, ledger events disabled", log.FieldComponent, log.ComponentEvents)
		return events.Nop{}, nil, nil
	}

	client, err := events.Dial(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingPrefix, amqpDialAttempts)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Connected to AMQP broker",
		log.FieldComponent, log.ComponentEvents,
		"exchange", cfg.AMQPExchange,
		"routing_prefix", cfg.AMQPRoutingPrefix)

	async = events.NewAsync(client, eventQueueSize)
	return async, async, nil
}

// Ledger is a ledger service over the configured backend.
type Ledger struct {
	*services.LedgerService
	Ready func(context.Context) error
}

// OpenLedger creates the configured book and wraps it in a LedgerService.
// Closing the service closes the book and the publisher.
func OpenLedger(ctx context.Context, cfg *config.Config, pub events.Publisher, logger *log.Logger) (*Ledger, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", bc.Type, err)
	}
	return &Ledger{
		LedgerService: services.NewLedgerService(res.Book, pub, logger),
		Ready:         res.Ready,
	}, nil
}
