// Package ledgertest holds the behavioural contract shared by every
// ledger.Book implementation.
package ledgertest

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendtracker/internal/core"
	"spendtracker/internal/ledger"
)

// Factory returns a fresh, empty book. Cleanup should be registered on t.
type Factory func(t *testing.T) ledger.Book

// Run executes the full contract against books produced by newBook.
func Run(t *testing.T, newBook Factory) {
	t.Run("starts empty", func(t *testing.T) { testStartsEmpty(t, newBook(t)) })
	t.Run("add coffee", func(t *testing.T) { testAddCoffee(t, newBook(t)) })
	t.Run("same category accumulates", func(t *testing.T) { testSameCategoryAccumulates(t, newBook(t)) })
	t.Run("remove restores zero", func(t *testing.T) { testRemoveRestoresZero(t, newBook(t)) })
	t.Run("remove unknown is a no-op", func(t *testing.T) { testRemoveUnknown(t, newBook(t)) })
	t.Run("remove is idempotent", func(t *testing.T) { testRemoveIdempotent(t, newBook(t)) })
	t.Run("add then remove round-trips", func(t *testing.T) { testRoundTrip(t, newBook(t)) })
	t.Run("ids are never reused", func(t *testing.T) { testIDsNeverReused(t, newBook(t)) })
	t.Run("insertion order is kept", func(t *testing.T) { testInsertionOrder(t, newBook(t)) })
	t.Run("invalid input is rejected", func(t *testing.T) { testInvalidRejected(t, newBook(t)) })
	t.Run("totals match entries under random operations", func(t *testing.T) { testRandomSequence(t, newBook(t)) })
}

func add(t *testing.T, b ledger.Book, name string, c core.Category, amount string) core.Entry {
	t.Helper()
	e, err := b.AddExpense(context.Background(), name, c, core.MustMoney(amount))
	require.NoError(t, err)
	return e
}

func totals(t *testing.T, b ledger.Book) core.Totals {
	t.Helper()
	tot, err := b.CategoryTotals(context.Background())
	require.NoError(t, err)
	return tot
}

func entries(t *testing.T, b ledger.Book) []core.Entry {
	t.Helper()
	es, err := b.Entries(context.Background())
	require.NoError(t, err)
	return es
}

// AssertConsistent checks that every category total equals the sum of the
// amounts of the entries currently in that category.
func AssertConsistent(t *testing.T, b ledger.Book) {
	t.Helper()
	want := core.NewTotals()
	for _, e := range entries(t, b) {
		want[e.Category] = want[e.Category].Add(e.Amount)
	}
	got := totals(t, b)
	for _, c := range core.Categories {
		assert.Truef(t, want[c].Equal(got[c]), "category %s: want %s, got %s", c, want[c].Amount, got[c].Amount)
	}
}

func testStartsEmpty(t *testing.T, b ledger.Book) {
	assert.Empty(t, entries(t, b))
	tot := totals(t, b)
	assert.Len(t, tot, len(core.Categories))
	for _, c := range core.Categories {
		assert.True(t, tot[c].IsZero(), "category %s should start at zero", c)
	}
}

func testAddCoffee(t *testing.T, b ledger.Book) {
	e := add(t, b, "Coffee", core.Food, "50")
	assert.Equal(t, int64(1), e.ID)
	assert.Equal(t, "Coffee", e.Name)
	assert.Equal(t, core.Food, e.Category)
	assert.Equal(t, "50.00", e.Amount.String())

	assert.Equal(t, "50.00", totals(t, b)[core.Food].String())
	assert.Len(t, entries(t, b), 1)
}

func testSameCategoryAccumulates(t *testing.T, b ledger.Book) {
	add(t, b, "Bus", core.Transport, "20")
	add(t, b, "Taxi", core.Transport, "30")
	assert.Equal(t, "50.00", totals(t, b)[core.Transport].String())
	AssertConsistent(t, b)
}

func testRemoveRestoresZero(t *testing.T, b ledger.Book) {
	e := add(t, b, "Rent", core.RentAndAssets, "1000")
	require.Equal(t, int64(1), e.ID)

	removed, ok, err := b.RemoveExpense(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, e.ID, removed.ID)
	assert.True(t, removed.Amount.Equal(e.Amount))

	assert.True(t, totals(t, b)[core.RentAndAssets].IsZero())
	assert.Empty(t, entries(t, b))
}

func testRemoveUnknown(t *testing.T, b ledger.Book) {
	_, ok, err := b.RemoveExpense(context.Background(), 999)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, entries(t, b))
	assert.True(t, totals(t, b).Sum().IsZero())
}

func testRemoveIdempotent(t *testing.T, b ledger.Book) {
	add(t, b, "Bread", core.Groceries, "3.20")
	e := add(t, b, "Milk", core.Groceries, "1.10")

	_, ok, err := b.RemoveExpense(context.Background(), e.ID)
	require.NoError(t, err)
	require.True(t, ok)
	afterOnce := totals(t, b)
	entriesOnce := entries(t, b)

	_, ok, err = b.RemoveExpense(context.Background(), e.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, afterOnce.Equal(totals(t, b)))
	assert.Equal(t, len(entriesOnce), len(entries(t, b)))
	assert.Equal(t, "3.20", totals(t, b)[core.Groceries].String())
}

func testRoundTrip(t *testing.T, b ledger.Book) {
	add(t, b, "Lunch", core.Food, "12.35")
	add(t, b, "Train", core.Transport, "7.1")
	beforeTotals := totals(t, b)
	beforeEntries := entries(t, b)

	e := add(t, b, "Dinner", core.Food, "0.333")
	_, ok, err := b.RemoveExpense(context.Background(), e.ID)
	require.NoError(t, err)
	require.True(t, ok)

	assert.True(t, beforeTotals.Equal(totals(t, b)))
	after := entries(t, b)
	require.Len(t, after, len(beforeEntries))
	for i := range after {
		assert.Equal(t, beforeEntries[i].ID, after[i].ID)
		assert.Equal(t, beforeEntries[i].Name, after[i].Name)
		assert.True(t, beforeEntries[i].Amount.Equal(after[i].Amount))
	}
}

func testIDsNeverReused(t *testing.T, b ledger.Book) {
	seen := map[int64]bool{}
	for i := 0; i < 3; i++ {
		e := add(t, b, "x", core.Miscellaneous, "1")
		seen[e.ID] = true
	}
	// Remove the newest entry: a max+1 scheme would hand its id out again.
	_, _, err := b.RemoveExpense(context.Background(), 3)
	require.NoError(t, err)
	_, _, err = b.RemoveExpense(context.Background(), 1)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		e := add(t, b, "y", core.Miscellaneous, "1")
		assert.False(t, seen[e.ID], "id %d was reused", e.ID)
		seen[e.ID] = true
	}
}

func testInsertionOrder(t *testing.T, b ledger.Book) {
	add(t, b, "a", core.Food, "1")
	mid := add(t, b, "b", core.Transport, "2")
	add(t, b, "c", core.Groceries, "3")
	_, _, err := b.RemoveExpense(context.Background(), mid.ID)
	require.NoError(t, err)
	add(t, b, "d", core.Food, "4")

	var names []string
	for _, e := range entries(t, b) {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"a", "c", "d"}, names)
}

func testInvalidRejected(t *testing.T, b ledger.Book) {
	add(t, b, "Coffee", core.Food, "50")
	before := totals(t, b)

	ctx := context.Background()
	_, err := b.AddExpense(ctx, "", core.Food, core.MustMoney("1"))
	assert.ErrorIs(t, err, core.ErrInvalidEntry)
	assert.ErrorIs(t, err, core.ErrEmptyName)

	_, err = b.AddExpense(ctx, "Trip", core.Category("Travel"), core.MustMoney("1"))
	assert.ErrorIs(t, err, core.ErrUnknownCategory)

	_, err = b.AddExpense(ctx, "Refund", core.Food, core.Zero.Sub(core.MustMoney("5")))
	assert.ErrorIs(t, err, core.ErrNegativeAmount)

	assert.True(t, before.Equal(totals(t, b)))
	assert.Len(t, entries(t, b), 1)

	// The failed attempts must not burn ids either way; the next id is still
	// greater than every id handed out so far.
	e := add(t, b, "Tea", core.Food, "2")
	assert.Greater(t, e.ID, int64(1))
}

func testRandomSequence(t *testing.T, b ledger.Book) {
	rng := rand.New(rand.NewSource(42))
	amounts := []string{"0", "0.01", "1", "2.5", "19.99", "100", "1000.001"}
	var live []int64
	for i := 0; i < 200; i++ {
		if len(live) > 0 && rng.Intn(3) == 0 {
			j := rng.Intn(len(live))
			_, ok, err := b.RemoveExpense(context.Background(), live[j])
			require.NoError(t, err)
			require.True(t, ok)
			live = append(live[:j], live[j+1:]...)
		} else {
			c := core.Categories[rng.Intn(len(core.Categories))]
			e := add(t, b, "item", c, amounts[rng.Intn(len(amounts))])
			live = append(live, e.ID)
		}
		if i%25 == 0 {
			AssertConsistent(t, b)
		}
	}
	AssertConsistent(t, b)
	assert.Len(t, entries(t, b), len(live))
}
