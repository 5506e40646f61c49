package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendtracker/internal/core"
)

func TestSeriesOrderAndLabels(t *testing.T) {
	s := Series(core.NewTotals())
	require.Len(t, s, 5)
	var names []string
	for _, sl := range s {
		names = append(names, sl.Name)
		assert.Zero(t, sl.Percent)
	}
	assert.Equal(t, []string{"Food", "Transport", "Groceries", "Rent and Assets", "Miscellaneous"}, names)
}

func TestSeriesPercent(t *testing.T) {
	tot := core.NewTotals()
	tot[core.Food] = core.MustMoney("50")
	tot[core.Transport] = core.MustMoney("25")
	tot[core.RentAndAssets] = core.MustMoney("25")

	s := Series(tot)
	assert.Equal(t, 50.0, s[0].Percent)
	assert.Equal(t, 25.0, s[1].Percent)
	assert.Equal(t, 0.0, s[2].Percent)
	assert.Equal(t, 25.0, s[3].Percent)

	top, ok := Largest(s)
	require.True(t, ok)
	assert.Equal(t, core.Food, top.Category)
}

func TestSeriesPercentRounding(t *testing.T) {
	tot := core.NewTotals()
	tot[core.Food] = core.MustMoney("1")
	tot[core.Groceries] = core.MustMoney("2")
	s := Series(tot)
	assert.Equal(t, 33.3, s[0].Percent)
	assert.Equal(t, 66.7, s[2].Percent)
}

func TestLargestEmpty(t *testing.T) {
	_, ok := Largest(Series(core.NewTotals()))
	assert.False(t, ok)
}
