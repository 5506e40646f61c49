// Package worker consumes ledger events published to the broker.
package worker

import (
	"context"
	"fmt"
	"sync"

	"spendtracker/internal/events"
	"spendtracker/internal/log"
)

// Sink receives each accepted event, e.g. to print it.
type Sink func(*events.ExpenseEvent) error

// Stats counts what a TailWorker has seen.
type Stats struct {
	Processed  int64
	Added      int64
	Removed    int64
	Duplicates int64
	// Missed is the number of versions skipped between consecutive events,
	// i.e. events the publisher dropped or the broker lost.
	Missed int64
}

// TailWorker follows the event stream of one ledger session. Versions are
// strictly increasing per session, so a jump means lost events and a repeat
// means a redelivery.
type TailWorker struct {
	sink   Sink
	logger *log.Logger

	mu          sync.Mutex
	lastVersion int64
	stats       Stats
}

func NewTailWorker(sink Sink, logger *log.Logger) *TailWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &TailWorker{sink: sink, logger: logger.WithComponent(log.ComponentEvents)}
}

// HandleEvent processes a single ledger event.
func (w *TailWorker) HandleEvent(ctx context.Context, ev *events.ExpenseEvent) error {
	w.mu.Lock()
	switch {
	case ev.Version <= w.lastVersion && ev.Version > 1:
		w.stats.Duplicates++
		w.mu.Unlock()
		w.logger.DebugContext(ctx, "Skipping replayed event",
			log.FieldEventID, ev.ID,
			log.FieldVersion, ev.Version)
		return nil
	case ev.Version == 1 && w.lastVersion > 0:
		// A new session restarted the counter.
		w.logger.InfoContext(ctx, "Ledger session restarted", "previous_version", w.lastVersion)
	case w.lastVersion > 0 && ev.Version > w.lastVersion+1:
		missed := ev.Version - w.lastVersion - 1
		w.stats.Missed += missed
		w.logger.WarnContext(ctx, "Ledger events missed",
			"missed", missed,
			"from_version", w.lastVersion+1,
			"to_version", ev.Version-1)
	}
	w.lastVersion = ev.Version
	w.stats.Processed++
	switch ev.Type {
	case events.EventExpenseAdded:
		w.stats.Added++
	case events.EventExpenseRemoved:
		w.stats.Removed++
	}
	w.mu.Unlock()

	w.logger.DebugContext(ctx, "Processing ledger event",
		log.FieldEventID, ev.ID,
		log.FieldVersion, ev.Version,
		log.FieldEntryID, ev.Entry.ID)

	if w.sink == nil {
		return nil
	}
	if err := w.sink(ev); err != nil {
		return fmt.Errorf("handle event %s: %w", ev.ID, err)
	}
	return nil
}

func (w *TailWorker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Subscriber is satisfied by *events.Client.
type Subscriber interface {
	Subscribe(ctx context.Context, handler func(*events.ExpenseEvent) error) error
}

// Run consumes from sub until ctx is done and logs a summary on the way out.
func (w *TailWorker) Run(ctx context.Context, sub Subscriber) error {
	err := sub.Subscribe(ctx, func(ev *events.ExpenseEvent) error {
		return w.HandleEvent(ctx, ev)
	})
	s := w.Stats()
	w.logger.Info("Event tail stopped",
		"processed", s.Processed,
		"added", s.Added,
		"removed", s.Removed,
		"missed", s.Missed,
		"duplicates", s.Duplicates)
	return err
}
