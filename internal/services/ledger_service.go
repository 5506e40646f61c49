// Package services coordinates the ledger with everything that reacts to it.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"spendtracker/internal/core"
	"spendtracker/internal/events"
	"spendtracker/internal/ledger"
	"spendtracker/internal/log"
)

// Snapshot is a consistent view of the ledger at one version.
type Snapshot struct {
	Entries []core.Entry
	Totals  core.Totals
	Series  []ledger.Slice
	Total   core.Money
	Version int64
}

// LedgerService wraps a ledger.Book with logging, a version counter and
// event publication. Publication is best-effort: a failed publish is logged
// and never fails the mutation.
type LedgerService struct {
	book      ledger.Book
	publisher events.Publisher
	logger    *log.Logger
	structLog *log.StructuredLogger

	// mu orders mutations against snapshots so a Snapshot never mixes
	// entries and totals from different versions.
	mu      sync.RWMutex
	version atomic.Int64
}

func NewLedgerService(book ledger.Book, publisher events.Publisher, logger *log.Logger) *LedgerService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentLedger)
	return &LedgerService{
		book:      book,
		publisher: publisher,
		logger:    logger,
		structLog: log.NewStructuredLogger(logger),
	}
}

// AddExpense records a new expense. Validation failures wrap
// core.ErrInvalidEntry.
func (s *LedgerService) AddExpense(ctx context.Context, name string, category core.Category, amount core.Money) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.book.AddExpense(ctx, name, category, amount)
	if err != nil {
		if !errors.Is(err, core.ErrInvalidEntry) {
			s.structLog.LogError(ctx, "Failed to add expense", err, log.OpAdd, log.ErrorTypeDatabase, nil)
		}
		return core.Entry{}, err
	}

	v := s.version.Add(1)
	s.structLog.LogExpenseAdded(ctx, entry.ID, entry.Name, string(entry.Category), entry.Amount.String(), v)
	s.publish(ctx, events.EventExpenseAdded, entry, v)
	return entry, nil
}

// RemoveExpense deletes the entry with id. An unknown id reports false and
// does not change the version.
func (s *LedgerService) RemoveExpense(ctx context.Context, id int64) (core.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, ok, err := s.book.RemoveExpense(ctx, id)
	if err != nil {
		s.structLog.LogError(ctx, "Failed to remove expense", err, log.OpRemove, log.ErrorTypeDatabase,
			log.NewFields().WithEntry(id, "", "", ""))
		return core.Entry{}, false, err
	}
	if !ok {
		s.logger.DebugContext(ctx, "Remove of unknown expense ignored", log.FieldEntryID, id)
		return core.Entry{}, false, nil
	}

	v := s.version.Add(1)
	s.structLog.LogExpenseRemoved(ctx, removed.ID, removed.Name, string(removed.Category), removed.Amount.String(), v)
	s.publish(ctx, events.EventExpenseRemoved, removed, v)
	return removed, true, nil
}

func (s *LedgerService) publish(ctx context.Context, typ events.EventType, entry core.Entry, version int64) {
	totals, err := s.book.CategoryTotals(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Skipping event, totals unavailable", log.FieldError, err)
		return
	}
	ev := events.NewExpenseEvent(typ, entry, totals, version)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			log.FieldError, err,
			log.FieldEventID, ev.ID,
			log.FieldVersion, version)
	}
}

func (s *LedgerService) Entries(ctx context.Context) ([]core.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.book.Entries(ctx)
}

func (s *LedgerService) CategoryTotals(ctx context.Context) (core.Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.book.CategoryTotals(ctx)
}

// Version counts successful mutations since start.
func (s *LedgerService) Version() int64 {
	return s.version.Load()
}

func (s *LedgerService) Snapshot(ctx context.Context) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.book.Entries(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list entries: %w", err)
	}
	totals, err := s.book.CategoryTotals(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("category totals: %w", err)
	}
	return Snapshot{
		Entries: entries,
		Totals:  totals,
		Series:  ledger.Series(totals),
		Total:   totals.Sum(),
		Version: s.version.Load(),
	}, nil
}

// Close releases the publisher and, when it holds resources, the book.
func (s *LedgerService) Close() error {
	var errs []error
	if err := s.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("publisher: %w", err))
	}
	if c, ok := s.book.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("book: %w", err))
		}
	}
	return errors.Join(errs...)
}
