package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendtracker/internal/core"
	"spendtracker/internal/events"
	"spendtracker/internal/ledger"
	"spendtracker/internal/log"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []*events.ExpenseEvent
	err    error
	closed bool
}

func (f *fakePublisher) Publish(_ context.Context, ev *events.ExpenseEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func newService(t *testing.T, pub events.Publisher) *LedgerService {
	t.Helper()
	logger := log.New(log.Config{Output: &bytes.Buffer{}})
	return NewLedgerService(ledger.New(), pub, logger)
}

func TestLedgerService_AddPublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	svc := newService(t, pub)
	ctx := context.Background()

	entry, err := svc.AddExpense(ctx, "Coffee", core.Food, core.MustMoney("50"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.ID)
	assert.Equal(t, int64(1), svc.Version())

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, events.EventExpenseAdded, ev.Type)
	assert.Equal(t, "Coffee", ev.Entry.Name)
	assert.Equal(t, "50.00", ev.Totals[core.Food])
	assert.Equal(t, int64(1), ev.Version)
}

func TestLedgerService_RemoveUnknownKeepsVersion(t *testing.T) {
	pub := &fakePublisher{}
	svc := newService(t, pub)

	_, ok, err := svc.RemoveExpense(context.Background(), 999)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, svc.Version())
	assert.Empty(t, pub.events)
}

func TestLedgerService_RemovePublishesTotalsAfterRemoval(t *testing.T) {
	pub := &fakePublisher{}
	svc := newService(t, pub)
	ctx := context.Background()

	e, err := svc.AddExpense(ctx, "Rent", core.RentAndAssets, core.MustMoney("1000"))
	require.NoError(t, err)

	removed, ok, err := svc.RemoveExpense(ctx, e.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, e, removed)

	require.Len(t, pub.events, 2)
	assert.Equal(t, events.EventExpenseRemoved, pub.events[1].Type)
	assert.Equal(t, "0.00", pub.events[1].Totals[core.RentAndAssets])
	assert.Equal(t, int64(2), svc.Version())
}

func TestLedgerService_PublishFailureDoesNotFailMutation(t *testing.T) {
	svc := newService(t, &fakePublisher{err: errors.New("broker down")})

	_, err := svc.AddExpense(context.Background(), "Bus", core.Transport, core.MustMoney("20"))
	require.NoError(t, err)

	totals, err := svc.CategoryTotals(context.Background())
	require.NoError(t, err)
	assert.True(t, totals[core.Transport].Equal(core.MustMoney("20")))
}

func TestLedgerService_InvalidInput(t *testing.T) {
	pub := &fakePublisher{}
	svc := newService(t, pub)

	_, err := svc.AddExpense(context.Background(), "  ", core.Food, core.MustMoney("1"))
	require.ErrorIs(t, err, core.ErrInvalidEntry)
	assert.ErrorIs(t, err, core.ErrEmptyName)
	assert.Zero(t, svc.Version())
	assert.Empty(t, pub.events)
}

func TestLedgerService_Snapshot(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	_, err := svc.AddExpense(ctx, "Bus", core.Transport, core.MustMoney("20"))
	require.NoError(t, err)
	_, err = svc.AddExpense(ctx, "Taxi", core.Transport, core.MustMoney("30"))
	require.NoError(t, err)

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Entries, 2)
	assert.True(t, snap.Totals[core.Transport].Equal(core.MustMoney("50")))
	assert.True(t, snap.Total.Equal(core.MustMoney("50")))
	assert.Equal(t, int64(2), snap.Version)
	require.Len(t, snap.Series, len(core.Categories))
	assert.Equal(t, 100.0, snap.Series[1].Percent)
}

func TestLedgerService_Close(t *testing.T) {
	pub := &fakePublisher{}
	svc := newService(t, pub)
	require.NoError(t, svc.Close())
	assert.True(t, pub.closed)
}
