package events

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

var ErrQueueFull = errors.New("event queue full")

const drainTimeout = 2 * time.Second

// Async decouples ledger mutations from broker latency: Publish enqueues and
// returns immediately, Run forwards queued events to the wrapped publisher.
type Async struct {
	next    Publisher
	queue   chan *ExpenseEvent
	dropped atomic.Int64
	sent    atomic.Int64
}

var _ Publisher = (*Async)(nil)

func NewAsync(next Publisher, size int) *Async {
	if size < 1 {
		size = 1
	}
	return &Async{next: next, queue: make(chan *ExpenseEvent, size)}
}

// Publish enqueues ev, or drops it with ErrQueueFull when the queue is full.
func (a *Async) Publish(_ context.Context, ev *ExpenseEvent) error {
	select {
	case a.queue <- ev:
		return nil
	default:
		a.dropped.Add(1)
		return ErrQueueFull
	}
}

// Run forwards events until ctx is done, then flushes what is still queued.
func (a *Async) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			a.drain()
			return nil
		case ev := <-a.queue:
			a.forward(ctx, ev)
		}
	}
}

func (a *Async) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case ev := <-a.queue:
			a.forward(ctx, ev)
		default:
			return
		}
	}
}

func (a *Async) forward(ctx context.Context, ev *ExpenseEvent) {
	if err := a.next.Publish(ctx, ev); err != nil {
		slog.WarnContext(ctx, "Failed to publish ledger event",
			"error", err,
			"event_id", ev.ID,
			"type", ev.Type)
		return
	}
	a.sent.Add(1)
}

func (a *Async) Dropped() int64 { return a.dropped.Load() }

func (a *Async) Sent() int64 { return a.sent.Load() }

func (a *Async) Close() error { return a.next.Close() }
