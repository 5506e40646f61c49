package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"spendtracker/internal/cli"
	"spendtracker/internal/core"
	"spendtracker/internal/events"
	"spendtracker/internal/worker"
)

var outputFormats = []string{"text", "json", "yaml"}

func newEventsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail ledger events from the AMQP exchange",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !slices.Contains(outputFormats, format) {
				return fmt.Errorf("unknown output format %q (valid: %s)", format, strings.Join(outputFormats, ", "))
			}
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			if !cfg.EventsEnabled() {
				return errors.New("AMQP_URL is not set; nothing to subscribe to")
			}
			logger := cli.SetupLogger(cfg, cmd.ErrOrStderr())

			ctx, stop := cli.GracefulShutdown(cmd.Context(), logger)
			defer stop()

			client, err := events.Dial(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingPrefix, 3)
			if err != nil {
				return err
			}
			defer client.Close()

			out := cmd.OutOrStdout()
			tail := worker.NewTailWorker(func(ev *events.ExpenseEvent) error {
				return writeEvent(out, ev, format)
			}, logger)
			err = tail.Run(ctx, client)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "text", "output format: text, json or yaml")
	return cmd
}

var (
	addedColor   = color.New(color.FgGreen, color.Bold).SprintFunc()
	removedColor = color.New(color.FgRed, color.Bold).SprintFunc()
	dimColor     = color.New(color.Faint).SprintFunc()
)

// writeEvent prints one event. Text is one line per event followed by the
// totals; json is one object per line; yaml is a document stream.
func writeEvent(w io.Writer, ev *events.ExpenseEvent, format string) error {
	switch format {
	case "json":
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case "yaml":
		data, err := yaml.Marshal(ev)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "---\n%s", data)
		return err
	default:
		_, err := io.WriteString(w, formatText(ev))
		return err
	}
}

func formatText(ev *events.ExpenseEvent) string {
	verb := addedColor("+ added  ")
	if ev.Type == events.EventExpenseRemoved {
		verb = removedColor("- removed")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s #%d %s %s (%s)\n",
		dimColor(ev.Timestamp.Format("15:04:05")),
		verb,
		ev.Entry.ID,
		ev.Entry.Name,
		ev.Entry.Amount,
		ev.Entry.Category.Label())

	parts := make([]string, 0, len(core.Categories))
	for _, c := range core.Categories {
		if v, ok := ev.Totals[c]; ok {
			parts = append(parts, c.Label()+"="+v)
		}
	}
	fmt.Fprintf(&b, "  %s %s\n", dimColor(fmt.Sprintf("v%d", ev.Version)), strings.Join(parts, " "))
	return b.String()
}
