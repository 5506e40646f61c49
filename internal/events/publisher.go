// Package events fans ledger mutations out over AMQP.
package events

import "context"

// Publisher delivers ledger events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev *ExpenseEvent) error
	Close() error
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, *ExpenseEvent) error { return nil }

func (Nop) Close() error { return nil }
