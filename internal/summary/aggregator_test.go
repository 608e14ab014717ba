package summary

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"cashbook/internal/categories"
	"cashbook/internal/core"
	"cashbook/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 2, 15, 10, 30, 0, 0, time.UTC)

func newAggregator(t *testing.T, txs ...core.Transaction) (*Aggregator, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	for _, tx := range txs {
		_, err := store.Insert(context.Background(), tx)
		require.NoError(t, err)
	}
	reg := categories.NewRegistry(store, time.Hour)
	return NewAggregator(store, reg, WithClock(func() time.Time { return fixedNow })), store
}

func tx(y, m, d int, cents int64, kind core.Kind, category string) core.Transaction {
	return core.Transaction{
		Date:        core.NewDate(y, m, d),
		Description: category + " entry",
		Amount:      core.Money{Cents: cents},
		Kind:        kind,
		Category:    category,
	}
}

func januaryScenario() []core.Transaction {
	return []core.Transaction{
		tx(2024, 1, 5, 500000, core.KindIncome, "Salary"),
		tx(2024, 1, 10, 150000, core.KindExpense, "Rent"),
		tx(2024, 1, 12, 45000, core.KindExpense, "Food"),
	}
}

func january() core.Filter {
	return core.Between(core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31))
}

func TestBalanceJanuaryScenario(t *testing.T) {
	agg, _ := newAggregator(t, januaryScenario()...)

	got, err := agg.Balance(context.Background(), january())
	require.NoError(t, err)
	assert.Equal(t, int64(500000), got.Income.Cents)
	assert.Equal(t, int64(195000), got.Expense.Cents)
	assert.Equal(t, int64(305000), got.Balance.Cents)
}

func TestBalanceNoRowsIsZero(t *testing.T) {
	agg, _ := newAggregator(t)
	got, err := agg.Balance(context.Background(), core.All())
	require.NoError(t, err)
	assert.Zero(t, got.Income.Cents)
	assert.Zero(t, got.Expense.Cents)
	assert.Zero(t, got.Balance.Cents)
}

func TestBalanceRespectsKindFilter(t *testing.T) {
	agg, _ := newAggregator(t, januaryScenario()...)
	got, err := agg.Balance(context.Background(), january().WithKind(core.KindExpense))
	require.NoError(t, err)
	assert.Zero(t, got.Income.Cents)
	assert.Equal(t, int64(195000), got.Expense.Cents)
	assert.Equal(t, int64(-195000), got.Balance.Cents)
}

func TestByCategoryScenario(t *testing.T) {
	agg, _ := newAggregator(t, januaryScenario()...)

	got, err := agg.ByCategory(context.Background(), january())
	require.NoError(t, err)
	require.Len(t, got.Expense, 2)
	assert.Equal(t, "Rent", got.Expense[0].Category)
	assert.Equal(t, int64(150000), got.Expense[0].Total.Cents)
	assert.Equal(t, 1, got.Expense[0].Count)
	assert.Equal(t, "Food", got.Expense[1].Category)
	assert.Equal(t, int64(45000), got.Expense[1].Total.Cents)
	assert.Equal(t, core.DefaultColor, got.Expense[0].Color, "unregistered category falls back to neutral")
	require.Len(t, got.Income, 1)
}

func TestByCategoryColorsAndTiebreak(t *testing.T) {
	agg, _ := newAggregator(t,
		tx(2024, 1, 3, 1000, core.KindExpense, "Transporte"),
		tx(2024, 1, 4, 1000, core.KindExpense, "Lazer"),
		tx(2024, 1, 5, 500, core.KindExpense, "Lazer"),
		tx(2024, 1, 6, 1500, core.KindExpense, "Moradia"),
	)
	got, err := agg.ByCategory(context.Background(), core.All())
	require.NoError(t, err)
	require.Len(t, got.Expense, 3)
	// Lazer 1500 and Moradia 1500 tie; name ascending breaks it.
	assert.Equal(t, []string{"Lazer", "Moradia", "Transporte"}, []string{
		got.Expense[0].Category, got.Expense[1].Category, got.Expense[2].Category,
	})
	assert.Equal(t, "#20c997", got.Expense[0].Color)
	assert.Equal(t, "#fd7e14", got.Expense[1].Color)
	assert.Empty(t, got.Income)
}

func TestCategoryTotalsPartitionKindTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cats := []string{"Moradia", "Lazer", "Saúde", "Salário", "Vendas"}
	var txs []core.Transaction
	for i := 0; i < 200; i++ {
		kind := core.KindExpense
		if rng.Intn(2) == 0 {
			kind = core.KindIncome
		}
		txs = append(txs, tx(2024, 1+rng.Intn(2), 1+rng.Intn(28), int64(1+rng.Intn(100000)), kind, cats[rng.Intn(len(cats))]))
	}
	agg, _ := newAggregator(t, txs...)
	ctx := context.Background()

	for _, f := range []core.Filter{core.All(), january(), january().WithCategory("Lazer")} {
		bal, err := agg.Balance(ctx, f)
		require.NoError(t, err)
		breakdown, err := agg.ByCategory(ctx, f)
		require.NoError(t, err)

		for _, kind := range core.Kinds() {
			var sum int64
			for _, c := range breakdown.Of(kind) {
				sum += c.Total.Cents
			}
			want := bal.Income.Cents
			if kind == core.KindExpense {
				want = bal.Expense.Cents
			}
			assert.Equal(t, want, sum, "kind %s", kind)
		}
		assert.Equal(t, bal.Income.Cents-bal.Expense.Cents, bal.Balance.Cents)
	}
}

func TestByMonthWindow(t *testing.T) {
	agg, _ := newAggregator(t,
		tx(2023, 8, 31, 100, core.KindIncome, "Vendas"), // outside a 6-month window
		tx(2023, 9, 1, 1000, core.KindIncome, "Vendas"),
		tx(2024, 1, 10, 150000, core.KindExpense, "Moradia"),
		tx(2024, 1, 5, 500000, core.KindIncome, "Salário"),
		tx(2024, 2, 29, 700, core.KindExpense, "Lazer"),
	)
	ctx := context.Background()

	for _, window := range []int{1, 6, 12, 25} {
		months, err := agg.ByMonth(ctx, window)
		require.NoError(t, err)
		require.Len(t, months, window)
		seen := map[core.YearMonth]bool{}
		for i, m := range months {
			assert.False(t, seen[m.Month], "month %s repeated", m.Month)
			seen[m.Month] = true
			if i > 0 {
				assert.Equal(t, months[i-1].Month.AddMonths(1), m.Month, "chronological")
			}
		}
		assert.Equal(t, "2024-02", months[window-1].Month.String())
	}

	months, err := agg.ByMonth(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, "2023-09", months[0].Month.String())
	assert.Equal(t, int64(1000), months[0].Income.Cents)
	assert.Equal(t, 0, months[2].Count, "empty months are present with zero totals")
	jan := months[4]
	assert.Equal(t, int64(350000), jan.Balance.Cents)
	assert.Equal(t, 2, jan.Count)

	_, err = agg.ByMonth(ctx, 0)
	assert.ErrorIs(t, err, core.ErrInvalidWindow)
}

func TestDetailed(t *testing.T) {
	agg, _ := newAggregator(t, append(januaryScenario(),
		tx(2024, 1, 20, 12000, core.KindExpense, "Saúde"),
		tx(2024, 2, 1, 29900, core.KindExpense, "Educação"),
	)...)
	ctx := context.Background()

	got, err := agg.Detailed(ctx, january())
	require.NoError(t, err)
	require.Len(t, got.Transactions, 4)
	assert.Equal(t, 4, got.Stats.Count)
	assert.Equal(t, int64(500000), got.Stats.MaxIncome.Cents)
	assert.Equal(t, int64(150000), got.Stats.MaxExpense.Cents)
	assert.Equal(t, int64(207000), got.Totals.Expense.Cents)

	onlyExpense, err := agg.Detailed(ctx, january().WithKind(core.KindExpense))
	require.NoError(t, err)
	assert.Zero(t, onlyExpense.Stats.MaxIncome.Cents, "no income rows means zero max income")
	assert.Len(t, onlyExpense.Transactions, 3)

	unknown, err := agg.Detailed(ctx, january().WithCategory("rent"))
	require.NoError(t, err)
	assert.Empty(t, unknown.Transactions, "category filter is exact")

	_, err = agg.Detailed(ctx, core.All())
	assert.ErrorIs(t, err, core.ErrRangeRequired)
}

func TestInvertedRangeIsEmptyNotError(t *testing.T) {
	agg, _ := newAggregator(t, januaryScenario()...)
	ctx := context.Background()
	inverted := core.Between(core.NewDate(2024, 1, 31), core.NewDate(2024, 1, 1))

	detailed, err := agg.Detailed(ctx, inverted)
	require.NoError(t, err)
	assert.Empty(t, detailed.Transactions)
	assert.Zero(t, detailed.Totals.Income.Cents)
	assert.Zero(t, detailed.Totals.Expense.Cents)
	assert.Zero(t, detailed.Stats.Count)

	bal, err := agg.Balance(ctx, inverted)
	require.NoError(t, err)
	assert.Zero(t, bal.Balance.Cents)

	breakdown, err := agg.ByCategory(ctx, inverted)
	require.NoError(t, err)
	assert.Empty(t, breakdown.Expense)
}

func TestOverviewAndRealtime(t *testing.T) {
	agg, _ := newAggregator(t,
		tx(2023, 6, 1, 90000, core.KindIncome, "Vendas"),
		tx(2024, 2, 1, 29900, core.KindExpense, "Educação"),
		tx(2024, 2, 15, 5000, core.KindIncome, "Freelance"),
		tx(2024, 2, 15, 2000, core.KindExpense, "Lazer"),
		tx(2024, 2, 18, 12000, core.KindExpense, "Saúde"),
		tx(2024, 2, 23, 100, core.KindExpense, "Lazer"), // beyond 7 days
	)
	ctx := context.Background()

	ov, err := agg.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(95000), ov.AllTime.Income.Cents)
	assert.Equal(t, int64(5000), ov.Last30Days.Income.Cents)
	assert.Equal(t, int64(44000), ov.Last30Days.Expense.Cents)

	rt, err := agg.Realtime(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rt.TodayCount)
	assert.Equal(t, int64(3000), rt.Today.Balance.Cents)
	require.Len(t, rt.Upcoming, 1)
	assert.Equal(t, "2024-02-18", rt.Upcoming[0].Date.String())
	require.NotNil(t, rt.TopExpense)
	assert.Equal(t, "Educação", rt.TopExpense.Category)
}

type failingReader struct{ storage.Reader }

func (failingReader) Sum(context.Context, core.Filter) (core.Money, error) {
	return core.Money{}, errors.New("disk I/O error")
}

func TestBalancePropagatesStoreFailure(t *testing.T) {
	agg := NewAggregator(failingReader{}, nil)
	_, err := agg.Balance(context.Background(), core.All())
	assert.ErrorContains(t, err, "disk I/O error")
}
